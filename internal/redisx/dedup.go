package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Dedup remembers processed event IDs per consuming service. Redis going
// away degrades to at-least-once, which downstream writes tolerate.
type Dedup struct {
	C       *redis.Client
	Service string
}

func (d *Dedup) Seen(ctx context.Context, eventID string) (bool, error) {
	return Exists(ctx, d.C, fmt.Sprintf(KeyDedup, d.Service, eventID))
}

func (d *Dedup) Mark(ctx context.Context, eventID string) error {
	return d.C.Set(ctx, fmt.Sprintf(KeyDedup, d.Service, eventID), "1", TTLDedup).Err()
}
