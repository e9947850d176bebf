package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "dedup:"

// DedupCache makes webhook delivery idempotent under retries by caching
// the serialized response per inbound message id.
//
// Check-then-set is best-effort: two near-simultaneous deliveries of the
// same message id can both miss the cache and both execute. That race is
// accepted; the single-key get/set primitives are deliberately not
// strengthened into an exactly-once barrier.
type DedupCache struct {
	redis Commands
	ttl   time.Duration
}

// NewDedupCache creates a dedup cache with the configured TTL
func NewDedupCache(rdb Commands, ttl time.Duration) *DedupCache {
	return &DedupCache{
		redis: rdb,
		ttl:   ttl,
	}
}

// Check returns the cached response body for a message id. An empty
// message id bypasses the cache entirely.
func (c *DedupCache) Check(ctx context.Context, messageID string) ([]byte, error) {
	if messageID == "" {
		return nil, nil
	}
	raw, err := c.redis.Get(ctx, dedupKeyPrefix+messageID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dedup check failed: %w", err)
	}
	return []byte(raw), nil
}

// Set caches a response body under a message id. Empty ids are never
// cached.
func (c *DedupCache) Set(ctx context.Context, messageID string, body []byte) error {
	if messageID == "" {
		return nil
	}
	if err := c.redis.Set(ctx, dedupKeyPrefix+messageID, body, c.ttl).Err(); err != nil {
		return fmt.Errorf("dedup set failed: %w", err)
	}
	return nil
}
