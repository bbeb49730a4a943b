// Package learning exposes the LearnPro JSON API over chi.
//
// Routes live under /v1. Catalog reads accept an optional bearer token and
// mark courses the caller cannot open as locked. Webhook and certificate
// routes are public. Everything else requires a valid token, and /v1/admin
// additionally requires the admin role.
//
// Every response uses the handler.JSONResponse envelope. Domain errors are
// mapped to status codes and stable keys in errors.go; anything unmapped is
// logged and answered with a generic 500.
package learning
