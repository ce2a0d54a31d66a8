package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewService("test-secret", "fleetd", time.Hour)

	token, err := svc.GenerateToken("operator")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Subject)
	assert.Equal(t, "fleetd", claims.Issuer)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	issuer := NewService("secret-a", "fleetd", time.Hour)
	verifier := NewService("secret-b", "fleetd", time.Hour)

	token, err := issuer.GenerateToken("operator")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewService("test-secret", "fleetd", -time.Minute)

	token, err := svc.GenerateToken("operator")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewService("test-secret", "fleetd", time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestTokenDuration_Default(t *testing.T) {
	svc := NewService("test-secret", "fleetd", 0)
	assert.Equal(t, 24*time.Hour, svc.TokenDuration())
}

func TestCheckOperatorToken(t *testing.T) {
	assert.True(t, CheckOperatorToken("tok-123", "tok-123"))
	assert.False(t, CheckOperatorToken("tok-123", "tok-456"))
	assert.False(t, CheckOperatorToken("", "tok-123"))
}
