//go:generate go run go.uber.org/mock/mockgen -source=resolver.go -destination=../mocks/mock_resolver.go -package=mocks
package session

import (
	"context"
	"errors"
	"strings"
)

// ErrUnknownToken is returned for a missing, malformed, expired or unknown token.
var ErrUnknownToken = errors.New("session: unknown token")

// Resolver maps an opaque bearer token to an identity. It is owned by the
// auth subsystem; the chat core only reads from it.
type Resolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// BearerToken strips an optional "Bearer " scheme from an Authorization value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// SessionLookup reads the token -> identity table written by the auth subsystem.
type SessionLookup interface {
	LookupSession(ctx context.Context, token string) (string, error)
}

type chain []Resolver

// Chain tries each resolver in order and returns the first identity found.
// A non auth failure (store unreachable) is reported only when no resolver
// accepted the token.
func Chain(resolvers ...Resolver) Resolver {
	return chain(resolvers)
}

func (c chain) Resolve(ctx context.Context, token string) (string, error) {
	var lastErr error
	for _, r := range c {
		identity, err := r.Resolve(ctx, token)
		if err == nil {
			return identity, nil
		}
		if !errors.Is(err, ErrUnknownToken) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", ErrUnknownToken
}
