package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"fraud-detector/internal/models"

	"github.com/go-redis/redis/v8"
)

// RedisSubscriber publishes alerts on a Redis pub/sub channel. It owns the client.
type RedisSubscriber struct {
	client  *redis.Client
	channel string
}

func NewRedisSubscriber(client *redis.Client, channel string) *RedisSubscriber {
	return &RedisSubscriber{client: client, channel: channel}
}

func (s *RedisSubscriber) ID() string { return "redis:" + s.channel }

func (s *RedisSubscriber) Deliver(ctx context.Context, payload models.AlertPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish to %s: %w", s.channel, err)
	}
	return nil
}

func (s *RedisSubscriber) Close() error {
	return s.client.Close()
}
