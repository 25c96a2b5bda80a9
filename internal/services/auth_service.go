package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"linkinbio-service/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Authenticator resolves user tokens and checks the websocket credential.
// It serves both the HTTP Token header and the subscription credentials.
type Authenticator interface {
	ResolveUser(ctx context.Context, token string) (string, error)
	ValidateWebsocketToken(token string) bool
}

// NewAuthenticator builds the authenticator selected by cfg.Mode.
func NewAuthenticator(cfg config.AuthConfig) (Authenticator, error) {
	switch cfg.Mode {
	case config.AuthModeJWT:
		return NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTExpiration, cfg.WebsocketToken), nil
	case config.AuthModeStatic:
		return NewStaticAuthenticator(cfg.WebsocketToken), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

// JWTAuthenticator accepts HS256 tokens carrying a user_id claim.
type JWTAuthenticator struct {
	secret         []byte
	expiration     time.Duration
	websocketToken string
	parser         *jwt.Parser
}

func NewJWTAuthenticator(secret string, expiration time.Duration, websocketToken string) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret:         []byte(secret),
		expiration:     expiration,
		websocketToken: websocketToken,
		parser:         jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func (a *JWTAuthenticator) ResolveUser(_ context.Context, tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	token, err := a.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	switch id := claims["user_id"].(type) {
	case string:
		if id != "" {
			return id, nil
		}
	case float64:
		return strconv.FormatInt(int64(id), 10), nil
	}
	return "", fmt.Errorf("%w: missing user_id claim", ErrInvalidToken)
}

func (a *JWTAuthenticator) ValidateWebsocketToken(token string) bool {
	return constantTimeEqual(token, a.websocketToken)
}

// SignToken issues a token for userID.
func (a *JWTAuthenticator) SignToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
	}
	if a.expiration > 0 {
		claims["exp"] = now.Add(a.expiration).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// StaticAuthenticator treats the token as the user id. Development only.
type StaticAuthenticator struct {
	websocketToken string
}

func NewStaticAuthenticator(websocketToken string) *StaticAuthenticator {
	return &StaticAuthenticator{websocketToken: websocketToken}
}

func (a *StaticAuthenticator) ResolveUser(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

func (a *StaticAuthenticator) ValidateWebsocketToken(token string) bool {
	return constantTimeEqual(token, a.websocketToken)
}

func constantTimeEqual(a, b string) bool {
	if b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
