// Package jwt verifies Supabase style HS256 access tokens with
// github.com/golang-jwt/jwt/v5 and exposes the caller's identity through the
// request context.
//
//	svc, _ := jwt.New(cfg)
//	r.Use(jwt.Middleware(svc, respond))
//	r.With(jwt.RequireAdmin(respond)).Route("/admin", adminRoutes)
//
// The token subject is the user's UUID; the admin role lives in
// app_metadata.role so users cannot grant it to themselves.
package jwt
