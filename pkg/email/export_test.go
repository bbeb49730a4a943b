package email

import (
	"context"
	"time"

	"github.com/mrz1836/postmark"
)

// PostmarkFunc lets tests stand in for the Postmark API.
type PostmarkFunc func(ctx context.Context, e postmark.Email) (postmark.EmailResponse, error)

func (f PostmarkFunc) SendEmail(ctx context.Context, e postmark.Email) (postmark.EmailResponse, error) {
	return f(ctx, e)
}

func NewPostmarkSenderWithAPI(api PostmarkFunc, cfg Config) (*PostmarkSender, error) {
	return newPostmarkSender(api, cfg)
}

func (d *DevSender) SetClock(now func() time.Time) { d.now = now }
