package provider

import (
	"context"
)

// Message is one outbound HTML email.
type Message struct {
	FromAddress string
	FromName    string
	To          string
	Subject     string
	HTML        string
}

// Provider abstracts delivery to an external email service.
// Mocking this interface in tests gives full control over provider behaviour
// without opening SMTP connections.
type Provider interface {
	Send(ctx context.Context, msg Message) error
}

// Func adapts a plain function to Provider.
type Func func(ctx context.Context, msg Message) error

func (f Func) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }
