package auth

import "context"

type contextKey int

const claimsKey contextKey = iota

// Claims returns the identity claims from context, or nil if the request is
// not authenticated.
func Claims(ctx context.Context) *IdentityClaims {
	claims, _ := ctx.Value(claimsKey).(*IdentityClaims)
	return claims
}

// Subject returns the identity-provider subject from context, or empty
// string if not authenticated.
func Subject(ctx context.Context) string {
	claims := Claims(ctx)
	if claims == nil {
		return ""
	}
	return claims.RegisteredClaims.Subject
}

// Email returns the user's email from context, or empty string if not
// available.
func Email(ctx context.Context) string {
	claims := Claims(ctx)
	if claims == nil {
		return ""
	}
	return claims.Email
}

// IsAuthenticated reports whether the request carries valid claims.
func IsAuthenticated(ctx context.Context) bool {
	return Claims(ctx) != nil
}
