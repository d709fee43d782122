package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"fraud-detector/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSubscriber_PublishesToChannel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	listener := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer listener.Close()
	pubsub := listener.Subscribe(ctx, "fraud-alerts")
	defer pubsub.Close()
	_, err = pubsub.Receive(ctx)
	require.NoError(t, err)

	sub := NewRedisSubscriber(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "fraud-alerts")
	assert.Equal(t, "redis:fraud-alerts", sub.ID())

	sent := payloadFor("TXN-9")
	require.NoError(t, sub.Deliver(ctx, sent))

	msg, err := pubsub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fraud-alerts", msg.Channel)

	var got models.AlertPayload
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, sent.AlertID, got.AlertID)
	assert.Equal(t, "TXN-9", got.TransactionID)

	require.NoError(t, sub.Close())
}

func TestRedisSubscriber_ServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	sub := NewRedisSubscriber(redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1}), "fraud-alerts")
	defer sub.Close()

	err = sub.Deliver(context.Background(), payloadFor("TXN-9"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis publish to fraud-alerts")
}
