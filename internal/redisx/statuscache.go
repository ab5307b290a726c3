package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StatusCache keeps the last served status per order for fast point reads.
// Postgres stays authoritative: a miss or a Redis error just sends the
// caller to the database.
type StatusCache struct {
	C *redis.Client
}

func (c *StatusCache) Get(ctx context.Context, orderID string) (string, bool) {
	v, err := c.C.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Result()
	if err != nil {
		// redis.Nil and transport errors alike fall through to Postgres
		return "", false
	}
	return v, true
}

func (c *StatusCache) Set(ctx context.Context, orderID, status string) {
	_ = c.C.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), status, TTLStatusCache).Err()
}
