package middleware

import (
	"context"

	"github.com/blackrose-eve/eve-oauth2/validator"
)

type contextKey int

const claimsKey contextKey = iota

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *validator.IdentityClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims stored by the middleware, if any.
//
// Example:
//
//	claims, ok := middleware.ClaimsFromContext(r.Context())
//	if !ok {
//	    http.Error(w, "not logged in", http.StatusUnauthorized)
//	    return
//	}
//	fmt.Fprintf(w, "hello %s", claims.Name)
func ClaimsFromContext(ctx context.Context) (*validator.IdentityClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*validator.IdentityClaims)
	return claims, ok && claims != nil
}

// MustClaims returns the claims stored by the middleware or panics. Use it
// only behind a middleware that requires credentials.
func MustClaims(ctx context.Context) *validator.IdentityClaims {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		panic("middleware: no identity claims in context")
	}
	return claims
}
