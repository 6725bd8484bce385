package usersbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sourcesCacheKey = "usersbox:sources"

// CachedClient serves ListSources from redis for ttl; every other call goes
// straight to the embedded Client.
type CachedClient struct {
	*Client
	Redis *redis.Client
	TTL   time.Duration
}

func NewCachedClient(client *Client, rdb *redis.Client, ttl time.Duration) *CachedClient {
	return &CachedClient{Client: client, Redis: rdb, TTL: ttl}
}

func (c *CachedClient) ListSources(ctx context.Context) (*SourcesResponse, error) {
	raw, err := c.Redis.Get(ctx, sourcesCacheKey).Bytes()
	switch {
	case err == nil:
		var cached SourcesResponse
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		c.Log.Warn("dropping corrupt sources cache entry")
	case !errors.Is(err, redis.Nil):
		c.Log.Warn("sources cache read failed", zap.Error(err))
	}

	resp, err := c.Client.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	if resp.Status != StatusSuccess {
		return resp, nil
	}

	if payload, err := json.Marshal(resp); err == nil {
		if err := c.Redis.Set(ctx, sourcesCacheKey, payload, c.TTL).Err(); err != nil {
			c.Log.Warn("sources cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}
