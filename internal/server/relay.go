package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultRelayChannel is the Redis channel state events travel on.
const DefaultRelayChannel = "luckydraw:events"

// RedisRelay publishes state events through Redis so that every server
// instance sharing the store pushes them to its own watchers. Run forwards
// the channel into the local Broker.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	local   *Broker
	logger  *slog.Logger
}

func NewRedisRelay(rdb *redis.Client, channel string, local *Broker, logger *slog.Logger) *RedisRelay {
	return &RedisRelay{rdb: rdb, channel: channel, local: local, logger: logger}
}

// Publish sends event to Redis. If Redis is unreachable the event still
// reaches local watchers.
func (r *RedisRelay) Publish(ctx context.Context, event StateEvent) {
	data, _ := json.Marshal(event)
	if err := r.rdb.Publish(ctx, r.channel, data).Err(); err != nil {
		r.logger.Warn("redis publish failed, delivering locally", "channel", r.channel, "error", err)
		r.local.publishRaw(data)
	}
}

// Run subscribes to the channel until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	r.logger.Info("relaying state events", "channel", r.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.local.publishRaw([]byte(msg.Payload))
		}
	}
}
