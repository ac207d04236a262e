package messaging

import (
	"context"
	"sync"

	"github.com/cohort-hub/cohort-engine/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// REDIS CLIENT ADAPTER
// ══════════════════════════════════════════════════════════════════════════════

// CacheRedisClient adapts the persistence cache to the RedisClient interface
// so the Redis event bus can ride on the same connection pool as the
// presence tracker and dashboard cache.
type CacheRedisClient struct {
	cache *redis.Cache

	mu    sync.Mutex
	stops []func() error
}

// NewCacheRedisClient creates a RedisClient backed by the shared cache.
func NewCacheRedisClient(cache *redis.Cache) *CacheRedisClient {
	return &CacheRedisClient{cache: cache}
}

// Publish sends a message to a Redis channel. Serialization is handled by
// the cache layer.
func (c *CacheRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return c.cache.Publish(ctx, channel, message)
}

// Subscribe listens on the given channels and forwards received messages.
// The returned channel is closed when the subscription ends.
func (c *CacheRedisClient) Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error) {
	pubsub := c.cache.Subscribe(ctx, channels...)

	// Force the subscription to be established before returning, so a
	// broken connection surfaces here instead of as silent message loss.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	c.mu.Lock()
	c.stops = append(c.stops, pubsub.Close)
	c.mu.Unlock()

	out := make(chan RedisMessage)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				select {
				case out <- RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close tears down all active subscriptions. The underlying cache
// connection is owned by the caller and left open.
func (c *CacheRedisClient) Close() error {
	c.mu.Lock()
	stops := c.stops
	c.stops = nil
	c.mu.Unlock()

	var firstErr error
	for _, stop := range stops {
		if err := stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
