package booking

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisIdempotencyStore maps Idempotency-Key headers to booking ids.
type RedisIdempotencyStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{Client: client, TTL: 24 * time.Hour}
}

func idempotencyKey(key string) string {
	return "idem:booking:" + key
}

func (s *RedisIdempotencyStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	id, err := s.Client.Get(ctx, idempotencyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Remember keeps the first booking recorded for a key.
func (s *RedisIdempotencyStore) Remember(ctx context.Context, key, bookingID string) error {
	return s.Client.SetNX(ctx, idempotencyKey(key), bookingID, s.TTL).Err()
}
