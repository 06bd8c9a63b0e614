package authUtils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, issued, err := issuer.GenerateAndSetToken("user-1")
	require.NoError(t, err)

	parsed, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", parsed.UserID)
	assert.Equal(t, issued.TokenID, parsed.TokenID)
	assert.Equal(t, issued.ExpiresAt.Unix(), parsed.ExpiresAt.Unix())
}

func TestTokenRejectsOtherSecret(t *testing.T) {
	token, _, err := NewTokenIssuer("secret-a", time.Hour).GenerateAndSetToken("user-1")
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := issuer.GenerateAndSetToken("user-1")
	require.NoError(t, err)

	_, err = NewTokenIssuer("test-secret", time.Minute).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsGarbage(t *testing.T) {
	_, err := NewTokenIssuer("test-secret", time.Hour).Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
