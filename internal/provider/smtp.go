package provider

import (
	"context"
	"crypto/tls"
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPConfig holds the connection settings for an SMTP relay.
type SMTPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	InsecureSkipVerify bool
}

// dialSender is the part of gomail.Dialer used by SMTPProvider.
type dialSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPProvider delivers mail through an SMTP relay (Gmail app passwords,
// SES, a local relay). gomail opens one connection per message.
type SMTPProvider struct {
	dialer dialSender
	host   string
}

func NewSMTPProvider(cfg SMTPConfig) *SMTPProvider {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &SMTPProvider{dialer: d, host: cfg.Host}
}

// Host returns the configured relay host, for logging.
func (p *SMTPProvider) Host() string { return p.host }

// Send builds the message and hands it to the relay. gomail has no context
// support, so the dial runs on its own goroutine and Send returns ctx.Err()
// if the context is done first. The goroutine finishes on its own once the
// SMTP exchange ends or the dialer's connect timeout fires.
func (p *SMTPProvider) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := buildMessage(msg)

	done := make(chan error, 1)
	go func() {
		done <- p.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", msg.To, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s: %w", msg.To, ctx.Err())
	}
}

func buildMessage(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.FromAddress, msg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	return m
}

// compile-time check that SMTPProvider implements Provider
var _ Provider = (*SMTPProvider)(nil)
