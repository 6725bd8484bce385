// Package dedupe drops Telegram updates that were already accepted once.
// Telegram redelivers an update when the webhook answer is slow or lost, and
// a redelivered search must not spend a second attempt.
package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 24 * time.Hour

type Guard struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewGuard(rdb *redis.Client, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{Redis: rdb, TTL: ttl}
}

// FirstSeen atomically marks updateID as seen and reports whether this call
// was the first one to do so.
func (g *Guard) FirstSeen(ctx context.Context, updateID int) (bool, error) {
	key := fmt.Sprintf("tg_update_%d", updateID)
	ok, err := g.Redis.SetNX(ctx, key, "1", g.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}
