package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lessin/internal/storage"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "1", Type: task.Type()}, nil
}

func TestStoragePurgeTaskPayload(t *testing.T) {
	task, err := NewStoragePurgeTask([]string{"a", "b"}, "cid")
	require.NoError(t, err)
	assert.Equal(t, TypeStoragePurge, task.Type())

	payload, err := ParseStoragePurgePayload(task)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, payload.Keys)
	assert.Equal(t, "cid", payload.CorrelationID)

	_, err = NewStoragePurgeTask(nil, "cid")
	assert.Error(t, err)
}

func TestQueuePurger(t *testing.T) {
	ctx := context.Background()
	enq := &fakeEnqueuer{}
	p := NewQueuePurger(enq)

	require.NoError(t, p.Purge(ctx, nil, "cid"))
	assert.Empty(t, enq.tasks, "nothing to enqueue for no keys")

	require.NoError(t, p.Purge(ctx, []string{"k"}, "cid"))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TypeStoragePurge, enq.tasks[0].Type())

	enq.err = errors.New("redis down")
	assert.Error(t, p.Purge(ctx, []string{"k"}, "cid"))
}

func TestInlinePurger(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	key := storage.NewObjectKey("a.txt")
	require.NoError(t, store.Put(ctx, key, strings.NewReader("a"), 1, ""))

	p := NewInlinePurger(store, nil)
	require.NoError(t, p.Purge(ctx, []string{key, "already-gone"}, "cid"))
	_, _, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	assert.ErrorIs(t, p.Purge(ctx, []string{"../x"}, "cid"), storage.ErrInvalidKey)
}
