package tasks

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeStoragePurge = "storage:purge"
)

// StoragePurgePayload 列出需要从对象存储删除的 key。
type StoragePurgePayload struct {
	Keys          []string `json:"keys"`
	CorrelationID string   `json:"correlation_id"`
}

// NewStoragePurgeTask 构造一个对象清理任务。
func NewStoragePurgeTask(keys []string, correlationID string) (*asynq.Task, error) {
	if len(keys) == 0 {
		return nil, errors.New("no keys to purge")
	}
	payload, err := json.Marshal(StoragePurgePayload{
		Keys:          keys,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeStoragePurge, payload, asynq.MaxRetry(5)), nil
}

// ParseStoragePurgePayload decodes a task payload.
func ParseStoragePurgePayload(task *asynq.Task) (StoragePurgePayload, error) {
	var payload StoragePurgePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return StoragePurgePayload{}, err
	}
	return payload, nil
}
