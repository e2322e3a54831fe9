package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"lessin/internal/storage"
)

// Purger 删除已不再被记录引用的存储对象。
type Purger interface {
	Purge(ctx context.Context, keys []string, correlationID string) error
}

// Enqueuer is the slice of *asynq.Client the queue purger needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueuePurger 把清理交给 worker 进程异步执行。
type QueuePurger struct {
	client Enqueuer
}

func NewQueuePurger(client Enqueuer) *QueuePurger {
	return &QueuePurger{client: client}
}

func (p *QueuePurger) Purge(ctx context.Context, keys []string, correlationID string) error {
	if len(keys) == 0 {
		return nil
	}
	task, err := NewStoragePurgeTask(keys, correlationID)
	if err != nil {
		return fmt.Errorf("build purge task: %w", err)
	}
	if _, err := p.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue purge task: %w", err)
	}
	return nil
}

// InlinePurger 在请求内直接删除，未配置 Redis 时使用。
type InlinePurger struct {
	store  storage.Store
	logger *slog.Logger
}

func NewInlinePurger(store storage.Store, logger *slog.Logger) *InlinePurger {
	if logger == nil {
		logger = slog.Default()
	}
	return &InlinePurger{store: store, logger: logger}
}

// Purge deletes every key, logging individual failures, and returns the
// first error encountered.
func (p *InlinePurger) Purge(ctx context.Context, keys []string, correlationID string) error {
	var firstErr error
	for _, key := range keys {
		if err := p.store.Delete(ctx, key); err != nil {
			p.logger.Error("purge object failed",
				slog.String("correlation_id", correlationID),
				slog.String("key", key),
				slog.Any("error", err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
