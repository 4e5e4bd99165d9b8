package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter counts hits per key inside a fixed window.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter is a fixed-window counter shared by every app instance.
type RedisCounter struct {
	Client *redis.Client
	Now    func() time.Time
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{Client: client}
}

func (c *RedisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	if window < time.Second {
		window = time.Second
	}
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	bucket := now.Unix() / int64(window.Seconds())
	k := fmt.Sprintf("rate_limit:%s:%d", key, bucket)

	pipe := c.Client.Pipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// MemoryCounter is the single-process Counter used when redis is not
// configured.
type MemoryCounter struct {
	mu        sync.Mutex
	buckets   map[string]memoryBucket
	nextPrune time.Time
	Now       func() time.Time
}

// pruneEvery bounds how often Hit scans for expired buckets.
const pruneEvery = time.Minute

type memoryBucket struct {
	count   int64
	resetAt time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{buckets: map[string]memoryBucket{}}
}

func (c *MemoryCounter) Hit(_ context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !now.Before(c.nextPrune) {
		c.prune(now)
	}
	b := c.buckets[key]
	if !now.Before(b.resetAt) {
		b = memoryBucket{resetAt: now.Add(window)}
	}
	b.count++
	c.buckets[key] = b
	return b.count, nil
}

func (c *MemoryCounter) prune(now time.Time) {
	for k, b := range c.buckets {
		if !now.Before(b.resetAt) {
			delete(c.buckets, k)
		}
	}
	c.nextPrune = now.Add(pruneEvery)
}

// Len returns how many keys are being tracked.
func (c *MemoryCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buckets)
}

var (
	_ Counter = (*RedisCounter)(nil)
	_ Counter = (*MemoryCounter)(nil)
)
