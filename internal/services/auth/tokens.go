package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

// Claims carry the subject id and role. The role is informational; every
// request re-reads the identity from the store.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 identity tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(ident domain.Identity) (ports.Session, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		Role: string(ident.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return ports.Session{}, fmt.Errorf("sign token: %w", err)
	}
	return ports.Session{Token: signed, ExpiresAt: exp}, nil
}

func (t *Tokens) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.Unauthorizedf("token expired")
		}
		return nil, domain.Unauthorizedf("invalid token")
	}
	if claims.Subject == "" {
		return nil, domain.Unauthorizedf("invalid token")
	}
	return claims, nil
}
