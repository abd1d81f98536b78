package session

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisResolver resolves opaque tokens stored in redis.
type RedisResolver struct {
	lookup SessionLookup
}

func NewRedisResolver(lookup SessionLookup) *RedisResolver {
	return &RedisResolver{lookup: lookup}
}

func (r *RedisResolver) Resolve(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnknownToken
	}
	identity, err := r.lookup.LookupSession(ctx, token)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrUnknownToken
		}
		return "", err
	}
	if identity == "" {
		return "", ErrUnknownToken
	}
	return identity, nil
}
