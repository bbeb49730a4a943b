package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// postmarkAPI is the part of *postmark.Client the sender calls.
type postmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkSender delivers through Postmark's transactional API. Replies go to
// the support address.
type PostmarkSender struct {
	api     postmarkAPI
	from    string
	replyTo string
}

// NewPostmarkClient validates cfg and returns a Postmark backed sender. Only
// the server token is needed to send.
func NewPostmarkClient(cfg Config) (*PostmarkSender, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: POSTMARK_SERVER_TOKEN is empty", ErrInvalidConfig)
	}
	return newPostmarkSender(postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken), cfg)
}

func newPostmarkSender(api postmarkAPI, cfg Config) (*PostmarkSender, error) {
	for name, addr := range map[string]string{"SENDER_EMAIL": cfg.SenderEmail, "SUPPORT_EMAIL": cfg.SupportEmail} {
		if !emailRegex.MatchString(addr) {
			return nil, fmt.Errorf("%w: %s %q is not an email address", ErrInvalidConfig, name, addr)
		}
	}
	return &PostmarkSender{api: api, from: cfg.SenderEmail, replyTo: cfg.SupportEmail}, nil
}

func (s *PostmarkSender) SendEmail(ctx context.Context, p SendEmailParams) error {
	if err := p.Validate(); err != nil {
		return err
	}

	resp, err := s.api.SendEmail(ctx, postmark.Email{
		From:       s.from,
		ReplyTo:    s.replyTo,
		To:         p.SendTo,
		Subject:    p.Subject,
		Tag:        p.Tag,
		HTMLBody:   p.BodyHTML,
		Metadata:   p.Metadata,
		TrackOpens: true,
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	// Postmark reports rejected messages with a 200 and a non-zero code.
	if resp.ErrorCode != 0 {
		return fmt.Errorf("%w: postmark %d: %s", ErrFailedToSendEmail, resp.ErrorCode, resp.Message)
	}
	return nil
}
