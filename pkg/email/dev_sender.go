package email

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// DevSender writes each message to dir as a standalone HTML file that opens
// in a browser. The envelope is kept in a comment at the top of the file.
type DevSender struct {
	dir string
	now func() time.Time
}

func NewDevSender(dir string) *DevSender {
	return &DevSender{dir: dir, now: time.Now}
}

func (d *DevSender) SendEmail(_ context.Context, p SendEmailParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToSendEmail, err)
	}

	now := d.now()
	label := p.Tag
	if label == "" {
		label = p.Subject
	}
	name := now.Format("20060102T150405.000") + "_" + fileLabel(label) + ".html"

	var b strings.Builder
	b.WriteString("<!--\n")
	fmt.Fprintf(&b, "Date: %s\nTo: %s\nSubject: %s\n", now.Format(time.RFC3339), p.SendTo, html.EscapeString(p.Subject))
	if p.Tag != "" {
		fmt.Fprintf(&b, "Tag: %s\n", p.Tag)
	}
	keys := make([]string, 0, len(p.Metadata))
	for k := range p.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "Metadata-%s: %s\n", k, p.Metadata[k])
	}
	b.WriteString("-->\n")
	b.WriteString(p.BodyHTML)

	if err := os.WriteFile(filepath.Join(d.dir, name), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToSendEmail, err)
	}
	return nil
}

var nonFileChars = regexp.MustCompile(`[^a-z0-9_-]+`)

func fileLabel(s string) string {
	s = nonFileChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
	s = strings.Trim(s, "_")
	if len(s) > 64 {
		s = s[:64]
	}
	if s == "" {
		return "email"
	}
	return s
}
