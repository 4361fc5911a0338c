package http

import (
	"context"

	"funneltrack/internal/auth"
)

type contextKey string

const claimsContextKey contextKey = "claims"

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// claimsFrom returns the authenticated claims stored by requireAuth.
func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims, ok
}
