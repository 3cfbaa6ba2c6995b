package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// WithClaims returns a new context with the given claims. This is primarily
// for testing purposes.
func WithClaims(ctx context.Context, claims *IdentityClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// NewTestClaims creates IdentityClaims with the given subject and email.
// This is primarily for testing purposes.
func NewTestClaims(subject, email string) *IdentityClaims {
	return &IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subject,
		},
		Email: email,
	}
}
