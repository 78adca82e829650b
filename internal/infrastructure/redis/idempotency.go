package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyEntry is a stored HTTP response replayed for a repeated Idempotency-Key.
type IdempotencyEntry struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// IdempotencyStore keeps responses for mutating HTTP requests.
type IdempotencyStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewIdempotencyStore(client redis.Cmdable, prefix string, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *IdempotencyStore) key(k string) string {
	return fmt.Sprintf("idem:%s:%s", s.prefix, k)
}

// Get returns nil, nil when nothing was stored under key.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*IdempotencyEntry, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	var e IdempotencyEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode idempotency entry: %w", err)
	}
	return &e, nil
}

// Set stores the response unless another request already stored one.
func (s *IdempotencyStore) Set(ctx context.Context, key string, entry *IdempotencyEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode idempotency entry: %w", err)
	}
	if err := s.client.SetNX(ctx, s.key(key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set idempotency key: %w", err)
	}
	return nil
}
