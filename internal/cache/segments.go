package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"railway/internal/domain/models"
)

// SegmentCache keeps leg lists in redis as JSON. Stop sequences change
// rarely, so a TTL is the only invalidation.
type SegmentCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewSegmentCache(client *redis.Client, ttl time.Duration) *SegmentCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SegmentCache{Client: client, TTL: ttl}
}

func segmentKey(trainNo, origin, destination string) string {
	return fmt.Sprintf("segments:%s:%s:%s", trainNo, origin, destination)
}

func (c *SegmentCache) GetSegments(ctx context.Context, trainNo, origin, destination string) ([]models.Leg, bool, error) {
	raw, err := c.Client.Get(ctx, segmentKey(trainNo, origin, destination)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var legs []models.Leg
	if err := json.Unmarshal(raw, &legs); err != nil {
		return nil, false, err
	}
	return legs, len(legs) > 0, nil
}

func (c *SegmentCache) SetSegments(ctx context.Context, trainNo, origin, destination string, legs []models.Leg) error {
	data, err := json.Marshal(legs)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, segmentKey(trainNo, origin, destination), data, c.TTL).Err()
}

// InvalidateTrain drops every cached trip of one train.
func (c *SegmentCache) InvalidateTrain(ctx context.Context, trainNo string) error {
	iter := c.Client.Scan(ctx, 0, fmt.Sprintf("segments:%s:*", trainNo), 100).Iterator()
	keys := []string{}
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.Client.Del(ctx, keys...).Err()
}
