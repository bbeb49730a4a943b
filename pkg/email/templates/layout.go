package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const (
	bodyStyle   = "margin:0;padding:24px;background:#f4f5f7;font-family:Helvetica,Arial,sans-serif;color:#1f2937;"
	cardStyle   = "max-width:560px;margin:0 auto;background:#ffffff;border-radius:8px;padding:32px;"
	buttonStyle = "display:inline-block;padding:12px 20px;background:#4f46e5;color:#ffffff;border-radius:6px;text-decoration:none;font-weight:600;"
	mutedStyle  = "color:#6b7280;font-size:13px;"
)

// Layout wraps content in the shared email shell.
func Layout(title string, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html><head><meta charset="utf-8"><title>`+
			templ.EscapeString(title)+`</title></head><body style="`+bodyStyle+`"><div style="`+cardStyle+`">`); err != nil {
			return err
		}
		if err := content.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `<p style="`+mutedStyle+`">LearnPro · You received this email because you have a LearnPro account.</p></div></body></html>`)
		return err
	})
}

// Button renders a call to action link.
func Button(label string, href templ.SafeURL) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<p><a href="`+templ.EscapeString(string(href))+`" style="`+buttonStyle+`">`+
			templ.EscapeString(label)+`</a></p>`)
		return err
	})
}
