package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ride-token-ledger/internal/adapter/storage/redis"
	"ride-token-ledger/internal/core/ports"
	"ride-token-ledger/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	sub := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer sub.Close()

	ctx := context.Background()
	pubsub := sub.Subscribe(ctx, redis.EventChannel)
	defer pubsub.Close()
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	notifier := redis.NewNotifier(client, logger.NewWithWriter("error", nil))

	notif := ports.Notification{
		Kind:        "tokens_credited",
		UserID:      uuid.New(),
		ReferenceID: "0xabc",
		Tokens:      32,
		OccurredAt:  time.Now().UTC(),
	}
	require.NoError(t, notifier.Publish(ctx, notif))

	select {
	case msg := <-pubsub.Channel():
		var got ports.Notification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, notif.Kind, got.Kind)
		assert.Equal(t, notif.UserID, got.UserID)
		assert.Equal(t, int64(32), got.Tokens)
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
	}
}

func TestNotifier_Publish_BrokerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	mr.Close()

	notifier := redis.NewNotifier(client, logger.NewWithWriter("error", nil))
	err := notifier.Publish(context.Background(), ports.Notification{Kind: "trip_started"})
	assert.Error(t, err)
}
