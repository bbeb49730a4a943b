package email

import "errors"

var (
	ErrFailedToSendEmail = errors.New("email: delivery failed")
	ErrInvalidConfig     = errors.New("email: invalid configuration")
	ErrInvalidParams     = errors.New("email: invalid message")
)
