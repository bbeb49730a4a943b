package email

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Sender sends transactional emails.
type Sender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams is one outgoing message. Tag and Metadata are passed to
// the provider for filtering and search.
type SendEmailParams struct {
	SendTo   string            `json:"send_to"`
	Subject  string            `json:"subject"`
	BodyHTML string            `json:"body_html"`
	Tag      string            `json:"tag,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks that the recipient, subject and body are present.
func (p SendEmailParams) Validate() error {
	switch {
	case strings.TrimSpace(p.SendTo) == "":
		return fmt.Errorf("%w: recipient is required", ErrInvalidParams)
	case !emailRegex.MatchString(p.SendTo):
		return fmt.Errorf("%w: recipient must be a valid email address", ErrInvalidParams)
	case strings.TrimSpace(p.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	case strings.TrimSpace(p.BodyHTML) == "":
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}

// NewFromConfig returns a Postmark sender when a server token is configured
// and a DevSender writing to cfg.DevDir otherwise.
func NewFromConfig(cfg Config, log *slog.Logger) (Sender, error) {
	if cfg.Enabled() {
		s, err := NewPostmarkClient(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	if log != nil {
		log.Info("postmark not configured, writing emails to disk", slog.String("dir", cfg.DevDir))
	}
	return NewDevSender(cfg.DevDir), nil
}
