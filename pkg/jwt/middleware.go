package jwt

import (
	"net/http"
	"strings"
)

// ErrorResponder writes the response for a rejected request.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

func defaultResponder(w http.ResponseWriter, _ *http.Request, err error) {
	status := http.StatusUnauthorized
	if err == ErrForbidden {
		status = http.StatusForbidden
	}
	http.Error(w, http.StatusText(status), status)
}

// Middleware verifies the bearer token and stores the claims in the request
// context. Requests without a valid token are rejected through onError,
// which defaults to a plain 401.
func Middleware(s *Service, onError ErrorResponder) func(http.Handler) http.Handler {
	if onError == nil {
		onError = defaultResponder
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			claims, err := s.Parse(token)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// Optional stores the claims when a valid bearer token is present and lets
// anonymous requests through. A present but invalid token is still rejected.
func Optional(s *Service, onError ErrorResponder) func(http.Handler) http.Handler {
	if onError == nil {
		onError = defaultResponder
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, err := BearerToken(r)
			if err == nil {
				var claims *Claims
				if claims, err = s.Parse(token); err == nil {
					next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
					return
				}
			}
			onError(w, r, err)
		})
	}
}

// RequireAdmin rejects authenticated requests whose token lacks the admin role.
// It must run after Middleware.
func RequireAdmin(onError ErrorResponder) func(http.Handler) http.Handler {
	if onError == nil {
		onError = defaultResponder
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				onError(w, r, ErrMissingToken)
				return
			}
			if !claims.IsAdmin() {
				onError(w, r, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}
