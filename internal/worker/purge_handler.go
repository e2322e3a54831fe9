package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"lessin/internal/storage"
	"lessin/internal/tasks"
)

// PurgeTaskHandler 负责消费对象清理任务。
type PurgeTaskHandler struct {
	store  storage.Store
	logger *slog.Logger
}

// NewPurgeTaskHandler 创建任务处理器。
func NewPurgeTaskHandler(store storage.Store, logger *slog.Logger) *PurgeTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PurgeTaskHandler{store: store, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *PurgeTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.ParseStoragePurgePayload(t)
	if err != nil {
		h.logger.Error("unmarshal task payload failed", slog.Any("error", err))
		// 载荷损坏重试也无意义。
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("keys", len(payload.Keys)),
	)

	var errs []error
	for _, key := range payload.Keys {
		if err := h.store.Delete(ctx, key); err != nil {
			if errors.Is(err, storage.ErrInvalidKey) {
				log.Warn("skip invalid key", slog.String("key", key))
				continue
			}
			log.Error("delete object failed", slog.String("key", key), slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("purge %d of %d objects failed: %w", len(errs), len(payload.Keys), errors.Join(errs...))
	}

	log.Info("objects purged")
	return nil
}
