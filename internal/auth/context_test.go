package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestClaims(t *testing.T) {
	t.Run("returns nil for empty context", func(t *testing.T) {
		assert.Nil(t, Claims(context.Background()))
	})

	t.Run("returns claims from context", func(t *testing.T) {
		claims := &IdentityClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user_123"},
			Email:            "test@example.com",
		}
		ctx := WithClaims(context.Background(), claims)

		got := Claims(ctx)
		assert.NotNil(t, got)
		assert.Equal(t, "user_123", got.RegisteredClaims.Subject)
		assert.Equal(t, "test@example.com", got.Email)
	})
}

func TestSubject(t *testing.T) {
	t.Run("empty without auth", func(t *testing.T) {
		assert.Equal(t, "", Subject(context.Background()))
	})

	t.Run("returns subject from claims", func(t *testing.T) {
		ctx := WithClaims(context.Background(), NewTestClaims("sub_abc", "a@b.com"))
		assert.Equal(t, "sub_abc", Subject(ctx))
	})
}

func TestEmail(t *testing.T) {
	ctx := WithClaims(context.Background(), NewTestClaims("sub_abc", "a@b.com"))
	assert.Equal(t, "a@b.com", Email(ctx))
	assert.Equal(t, "", Email(context.Background()))
}

func TestIsAuthenticated(t *testing.T) {
	assert.False(t, IsAuthenticated(context.Background()))
	ctx := WithClaims(context.Background(), NewTestClaims("sub_abc", ""))
	assert.True(t, IsAuthenticated(ctx))
}
