package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 任务结果：ok 成功，retry 将重试，dropped 被 SkipRetry 直接丢弃。
const (
	outcomeOK      = "ok"
	outcomeRetry   = "retry"
	outcomeDropped = "dropped"
)

var (
	taskOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessin",
			Subsystem: "worker",
			Name:      "tasks_total",
			Help:      "后台任务按结果统计的处理次数。",
		},
		[]string{"task_type", "outcome"},
	)

	taskLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lessin",
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "后台任务处理耗时（秒）。",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)
)

func taskOutcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, asynq.SkipRetry):
		return outcomeDropped
	default:
		return outcomeRetry
	}
}

// AsynqMetricsMiddleware 记录每个任务的耗时与结果。
func AsynqMetricsMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			start := time.Now()
			err := next.ProcessTask(ctx, task)
			taskLatency.WithLabelValues(task.Type()).Observe(time.Since(start).Seconds())
			taskOutcomes.WithLabelValues(task.Type(), taskOutcome(err)).Inc()
			return err
		})
	}
}
