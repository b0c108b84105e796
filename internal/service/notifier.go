package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rehearsely/rehearse-backend/internal/config"
)

// RedisNotifier delivers notifications by publishing them on the user's
// pub/sub channel, where the WebSocket layer (or any other consumer)
// picks them up. Every notification is also logged, so with a nil redis
// client it degrades to a log-only notifier.
type RedisNotifier struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewRedisNotifier(rdb *redis.Client, log zerolog.Logger) *RedisNotifier {
	return &RedisNotifier{
		rdb: rdb,
		log: log.With().Str("component", "notifier").Logger(),
	}
}

// Notify publishes the notification to the user's channel.
func (n *RedisNotifier) Notify(ctx context.Context, msg Notification) error {
	n.log.Info().
		Str("user_id", msg.UserID).
		Str("title", msg.Title).
		Str("priority", msg.Priority).
		Msg("notification")

	if n.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, config.CacheKey.UserNotifyChannel(msg.UserID), raw).Err()
}
