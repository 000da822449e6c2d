package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/peter-abah/conecr/internal/errors"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Issue("u1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	uid, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.issue("u1", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_WrongSecret(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	other := NewTokenService("other-secret", time.Hour)

	token, err := svc.Issue("u1")
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_Garbage(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	_, err := svc.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPrincipal(t *testing.T) {
	ctx := WithPrincipal(context.Background(), "u1")

	uid, err := Principal(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
}

func TestPrincipal_Missing(t *testing.T) {
	_, err := Principal(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}
