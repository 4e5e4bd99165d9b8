package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"railway/internal/domain/models"
	"railway/internal/utils"
)

const DefaultChannel = "realtime:passenger-updated"

// RedisFanout carries passenger change notifications between app instances
// over redis pub/sub.
type RedisFanout struct {
	Client  *redis.Client
	Channel string
}

func NewRedisFanout(client *redis.Client) *RedisFanout {
	return &RedisFanout{Client: client, Channel: DefaultChannel}
}

func (f *RedisFanout) channel() string {
	if f.Channel == "" {
		return DefaultChannel
	}
	return f.Channel
}

func (f *RedisFanout) Publish(ctx context.Context, p models.Passenger) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return f.Client.Publish(ctx, f.channel(), data).Err()
}

// Subscribe calls fn for every received passenger until ctx is done.
func (f *RedisFanout) Subscribe(ctx context.Context, fn func(models.Passenger)) {
	sub := f.Client.Subscribe(ctx, f.channel())
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var p models.Passenger
			if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
				utils.LogError("", "realtime", "fanout_decode", err)
				continue
			}
			fn(p)
		}
	}
}
