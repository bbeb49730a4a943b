package templates

import (
	"context"
	"io"
	"time"

	"github.com/a-h/templ"
)

// CertificateIssued is the data for the certificate email.
type CertificateIssued struct {
	LearnerName string
	CourseTitle string
	Number      string
	IssuedAt    time.Time
	VerifyURL   string
}

// CertificateIssuedEmail congratulates a learner and links to the public
// verification page.
func CertificateIssuedEmail(d CertificateIssued) templ.Component {
	name := d.LearnerName
	if name == "" {
		name = "there"
	}
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<h1>Congratulations, `+templ.EscapeString(name)+`!</h1>`+
			`<p>You passed the final exam for <strong>`+templ.EscapeString(d.CourseTitle)+`</strong>.</p>`+
			`<p>Certificate number: <code>`+templ.EscapeString(d.Number)+`</code><br>`+
			`Issued on `+templ.EscapeString(d.IssuedAt.UTC().Format("January 2, 2006"))+`</p>`); err != nil {
			return err
		}
		return Button("View certificate", templ.URL(d.VerifyURL)).Render(ctx, w)
	})
	return Layout("Your LearnPro certificate", body)
}
