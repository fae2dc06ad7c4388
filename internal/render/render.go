// Package render turns queue rows into self-contained HTML email bodies.
// Every variant shares one layout; all styling is inlined for email clients.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/pulse-fitness/notifier/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// MailParams is the data available to every variant template.
type MailParams struct {
	URL         string
	PulseLevel  int
	ActiveUsers int
}

var templates = map[domain.Variant]*template.Template{}

func init() {
	layout := template.Must(template.New("layout").ParseFS(templateFS, "templates/layout.html"))
	for _, v := range domain.Variants() {
		t := template.Must(layout.Clone())
		if _, err := t.ParseFS(templateFS, "templates/"+string(v)+".html"); err != nil {
			panic(err)
		}
		templates[v] = t
	}
}

var subjects = map[domain.Variant]string{
	domain.VariantWelcome:         "Welcome to Pulse Fitness!",
	domain.VariantCongratulations: "Great work today!",
	domain.VariantReminderSocial:  "Your friends are working out today",
	domain.VariantReminder:        "Time to get moving!",
}

// DefaultSubject is used when a queue row arrives without a subject line.
func DefaultSubject(v domain.Variant) string {
	return subjects[v]
}

// Variant renders the given variant. It is exposed separately from Render so
// each template can be exercised on its own.
func Variant(v domain.Variant, p MailParams) (string, error) {
	if !v.IsValid() {
		return "", fmt.Errorf("unknown variant %q", v)
	}
	t := templates[v]
	var b bytes.Buffer
	if err := t.ExecuteTemplate(&b, "layout", p); err != nil {
		return "", fmt.Errorf("render %s: %w", v, err)
	}
	return b.String(), nil
}

// Render selects the variant for item and renders it with baseURL as the
// call-to-action target. Output depends only on the item's template fields.
func Render(item *domain.QueueItem, baseURL string) (domain.Variant, string, error) {
	v := domain.SelectVariant(item)
	html, err := Variant(v, MailParams{
		URL:         baseURL,
		PulseLevel:  item.PulseLevel,
		ActiveUsers: item.ActiveUsers,
	})
	return v, html, err
}
