package chat

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher 将新消息推送给订阅该线程的实时连接。
type Publisher interface {
	Publish(ctx context.Context, threadID uint, payload []byte) error
}

// ThreadChannel 返回线程对应的 Redis 频道名。
func ThreadChannel(threadID uint) string {
	return fmt.Sprintf("chat_thread:%d", threadID)
}

// RedisPublisher publishes over Redis Pub/Sub.
type RedisPublisher struct {
	client redis.UniversalClient
}

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, threadID uint, payload []byte) error {
	if err := p.client.Publish(ctx, ThreadChannel(threadID), payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", ThreadChannel(threadID), err)
	}
	return nil
}

// NopPublisher is used when no redis server is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, uint, []byte) error { return nil }
