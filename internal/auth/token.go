// Package auth resolves presented tokens into user identities.
// The login service signs the tokens; presence only validates them.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrEmptyToken   = errors.New("empty token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the identity payload carried inside a signed token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenAuthenticator validates HS256 tokens and maps their claims to a
// domain.User. It implements core.Authenticator.
type TokenAuthenticator struct {
	secret []byte
}

func NewTokenAuthenticator(secret string) *TokenAuthenticator {
	return &TokenAuthenticator{secret: []byte(secret)}
}

func (a *TokenAuthenticator) Authenticate(ctx context.Context, creds core.Credentials) (*domain.User, error) {
	if creds.Token == "" {
		return nil, ErrEmptyToken
	}
	token, err := jwt.ParseWithClaims(creds.Token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &domain.User{
		ID:    domain.UserID(claims.UserID),
		Email: claims.Email,
		Name:  claims.Name,
		Role:  claims.Role,
	}, nil
}

// GenerateToken signs a token for the given user. Used by the login
// service and by tests.
func (a *TokenAuthenticator) GenerateToken(user *domain.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: string(user.ID),
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "presence",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
