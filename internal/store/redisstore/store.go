package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix = "session:"
	unreadPrefix  = "unread:"
)

// Store keeps opaque session tokens and per-recipient unread counters.
type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return NewFromClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

func NewFromClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// LookupSession returns the identity bound to token, or redis.Nil.
func (s *Store) LookupSession(ctx context.Context, token string) (string, error) {
	return s.rdb.Get(ctx, sessionPrefix+token).Result()
}

// PutSession binds token to identity. ttl <= 0 keeps it until deleted.
func (s *Store) PutSession(ctx context.Context, token, identity string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.rdb.Set(ctx, sessionPrefix+token, identity, ttl).Err()
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, sessionPrefix+token).Err()
}

// IncrUnread bumps the number of unread messages recipient has from sender.
func (s *Store) IncrUnread(ctx context.Context, recipient, sender string, n int64) error {
	return s.rdb.HIncrBy(ctx, unreadPrefix+recipient, sender, n).Err()
}

// ClearUnread drops the counter once reader has read everything from sender.
func (s *Store) ClearUnread(ctx context.Context, reader, sender string) error {
	return s.rdb.HDel(ctx, unreadPrefix+reader, sender).Err()
}

// Unread returns identity's unread counters keyed by sender.
func (s *Store) Unread(ctx context.Context, identity string) (map[string]int64, error) {
	raw, err := s.rdb.HGetAll(ctx, unreadPrefix+identity).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for sender, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unread %s/%s: %w", identity, sender, err)
		}
		if n > 0 {
			out[sender] = n
		}
	}
	return out, nil
}
