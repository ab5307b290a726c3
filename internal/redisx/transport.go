package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// PubSub publishes broadcast payloads over Redis channels. Publishing is
// bounded by its own short timeout so a slow Redis never holds up the
// mutation that triggered the broadcast.
type PubSub struct {
	C *redis.Client
}

const publishTimeout = 2 * time.Second

func (p *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.C.Publish(ctx, channel, payload).Err()
}
