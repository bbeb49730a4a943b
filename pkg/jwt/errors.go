package jwt

import "errors"

var (
	ErrMissingSecret  = errors.New("jwt secret is required")
	ErrMissingToken   = errors.New("missing bearer token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrInvalidSubject = errors.New("token subject is not a valid user id")
	ErrForbidden      = errors.New("insufficient role")
)
