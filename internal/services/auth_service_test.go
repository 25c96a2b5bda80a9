package services

import (
	"context"
	"testing"
	"time"

	"linkinbio-service/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTAuthenticatorRoundTrip(t *testing.T) {
	auth := NewJWTAuthenticator("secret", time.Hour, "ws")

	token, err := auth.SignToken("42")
	require.NoError(t, err)

	userID, err := auth.ResolveUser(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "42", userID)
}

func TestJWTAuthenticatorRejects(t *testing.T) {
	auth := NewJWTAuthenticator("secret", time.Hour, "ws")
	other := NewJWTAuthenticator("other-secret", time.Hour, "ws")

	foreign, err := other.SignToken("42")
	require.NoError(t, err)
	stale, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "42",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	noClaim, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "a@b.c"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":         "",
		"garbage":       "not-a-jwt",
		"wrong secret":  foreign,
		"expired":       stale,
		"missing claim": noClaim,
	} {
		_, err := auth.ResolveUser(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestJWTAuthenticatorHonorsExpiry(t *testing.T) {
	sign := func(exp time.Time) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": "42",
			"exp":     exp.Unix(),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)
		return token
	}
	auth := NewJWTAuthenticator("secret", time.Hour, "ws")

	userID, err := auth.ResolveUser(context.Background(), sign(time.Now().Add(time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, "42", userID)

	_, err = auth.ResolveUser(context.Background(), sign(time.Now().Add(-time.Minute)))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTAuthenticatorNumericClaim(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 42}).SignedString([]byte("secret"))
	require.NoError(t, err)

	userID, err := NewJWTAuthenticator("secret", 0, "ws").ResolveUser(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "42", userID)
}

func TestStaticAuthenticator(t *testing.T) {
	auth := NewStaticAuthenticator("ws")

	userID, err := auth.ResolveUser(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", userID)

	_, err = auth.ResolveUser(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.True(t, auth.ValidateWebsocketToken("ws"))
	assert.False(t, auth.ValidateWebsocketToken("nope"))
	assert.False(t, NewStaticAuthenticator("").ValidateWebsocketToken(""))
}

func TestNewAuthenticator(t *testing.T) {
	a, err := NewAuthenticator(config.AuthConfig{Mode: config.AuthModeJWT, JWTSecret: "s"})
	require.NoError(t, err)
	assert.IsType(t, &JWTAuthenticator{}, a)

	a, err = NewAuthenticator(config.AuthConfig{Mode: config.AuthModeStatic})
	require.NoError(t, err)
	assert.IsType(t, &StaticAuthenticator{}, a)

	_, err = NewAuthenticator(config.AuthConfig{Mode: "oauth"})
	assert.Error(t, err)
}
