package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Commands is the narrow Redis surface the stores depend on. The concrete
// *redis.Client satisfies it; tests provide an in-memory fake.
type Commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}
