package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a chat access token.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type JWTResolver struct {
	secret []byte
	issuer string
}

func NewJWTResolver(secret, issuer string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), issuer: issuer}
}

func (r *JWTResolver) Resolve(_ context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnknownToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return r.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnknownToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", ErrUnknownToken
	}
	if claims.Username == "" {
		return "", fmt.Errorf("%w: token carries no username", ErrUnknownToken)
	}
	return claims.Username, nil
}

// SignToken issues an HS256 token for identity. Issuing tokens belongs to
// the auth subsystem; it lives here for tooling and tests.
func SignToken(secret, issuer, identity string, ttl time.Duration) (string, error) {
	if identity == "" {
		return "", errors.New("session: identity is empty")
	}
	now := time.Now()
	claims := &Claims{
		Username: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
