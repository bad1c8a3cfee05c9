package campaign

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"careline/pkg/utils"
)

// Gate limits concurrent dispatch runs per organization.
type Gate interface {
	Acquire(ctx context.Context, orgID string) (bool, error)
	Release(ctx context.Context, orgID string) error
}

// RedisGate counts in-flight dispatch runs per organization in Redis. The TTL
// guards against slots leaked by a crashed process.
type RedisGate struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

func NewRedisGate(rdb *redis.Client, limit int, ttl time.Duration) *RedisGate {
	return &RedisGate{rdb: rdb, limit: limit, ttl: ttl}
}

func dispatchKey(orgID string) string { return "dispatch:org:" + orgID }

func (g *RedisGate) Acquire(ctx context.Context, orgID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, g.rdb, dispatchKey(orgID), g.limit, g.ttl)
}

func (g *RedisGate) Release(ctx context.Context, orgID string) error {
	return utils.ReleaseConcurrencyCap(ctx, g.rdb, dispatchKey(orgID))
}

// openGate admits everything; used in tests.
type openGate struct{}

func (openGate) Acquire(context.Context, string) (bool, error) { return true, nil }
func (openGate) Release(context.Context, string) error         { return nil }
