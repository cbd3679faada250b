package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"courtcal/models"

	"github.com/go-redis/redis/v8"
)

// SlotCache stores computed slot lists per subject. On a miss Get returns the entry to
// hand to Set; the entry is bound to the cache state Get observed, so an Invalidate that
// lands between Get and Set leaves the written slots unreachable.
type SlotCache interface {
	Get(ctx context.Context, subjectID, key string) (slots []models.TimeInterval, entry string, hit bool, err error)
	Set(ctx context.Context, entry string, slots []models.TimeInterval) error
	Invalidate(ctx context.Context, subjectIDs ...string) error
}

const slotCachePrefix = "slots:"

// RedisSlotCache namespaces entries by a per-subject generation counter, so invalidation
// is a single INCR instead of a key scan.
type RedisSlotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSlotCache(client *redis.Client, ttl time.Duration) *RedisSlotCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisSlotCache{client: client, ttl: ttl}
}

func generationKey(subjectID string) string {
	return fmt.Sprintf("%sgen:%s", slotCachePrefix, subjectID)
}

func (c *RedisSlotCache) entryKey(ctx context.Context, subjectID, key string) (string, error) {
	gen, err := c.client.Get(ctx, generationKey(subjectID)).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("%s%s:%d:%s", slotCachePrefix, subjectID, gen, key), nil
}

// Get reads the generation once; the returned entry carries it.
func (c *RedisSlotCache) Get(ctx context.Context, subjectID, key string) ([]models.TimeInterval, string, bool, error) {
	k, err := c.entryKey(ctx, subjectID, key)
	if err != nil {
		return nil, "", false, err
	}
	data, err := c.client.Get(ctx, k).Result()
	if err == redis.Nil {
		return nil, k, false, nil
	}
	if err != nil {
		return nil, "", false, err
	}
	var slots []models.TimeInterval
	if err := json.Unmarshal([]byte(data), &slots); err != nil {
		return nil, k, false, err
	}
	return slots, k, true, nil
}

func (c *RedisSlotCache) Set(ctx context.Context, entry string, slots []models.TimeInterval) error {
	if entry == "" {
		return fmt.Errorf("slot cache: empty entry key")
	}
	b, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, entry, b, c.ttl).Err()
}

func (c *RedisSlotCache) Invalidate(ctx context.Context, subjectIDs ...string) error {
	if len(subjectIDs) == 0 {
		return nil
	}
	pipe := c.client.TxPipeline()
	for _, id := range subjectIDs {
		pipe.Incr(ctx, generationKey(id))
	}
	_, err := pipe.Exec(ctx)
	return err
}
