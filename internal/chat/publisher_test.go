package chat

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadChannelPublisher(t *testing.T) {
	assert.Equal(t, "chat_thread:42", ThreadChannel(42))
}

func TestRedisPublisherDeliversToSubscribers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), DisableIdentity: true})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, ThreadChannel(7))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, NewRedisPublisher(client).Publish(ctx, 7, []byte(`{"content":"hi"}`)))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "chat_thread:7", msg.Channel)
	assert.JSONEq(t, `{"content":"hi"}`, msg.Payload)
}

func TestRedisPublisherReportsFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), DisableIdentity: true, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	err := NewRedisPublisher(client).Publish(context.Background(), 3, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat_thread:3")
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), 1, nil))
}
