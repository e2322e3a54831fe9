package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadedBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessin",
			Subsystem: "uploads",
			Name:      "bytes_total",
			Help:      "已写入存储的上传字节数。",
		},
		[]string{"kind"},
	)

	threadCreateRaces = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lessin",
			Subsystem: "chat",
			Name:      "thread_create_races_total",
			Help:      "get-or-create 插入冲突、转为读取已有线程的次数。",
		},
	)

	skillChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessin",
			Subsystem: "skills",
			Name:      "reconciled_rows_total",
			Help:      "技能批量调和产生的插入/删除行数。",
		},
		[]string{"op"},
	)
)

// ObserveUpload records bytes written for kind ("resume", "study_file").
func ObserveUpload(kind string, size int64) {
	if size > 0 {
		uploadedBytes.WithLabelValues(kind).Add(float64(size))
	}
}

// ObserveThreadRace counts a lost get-or-create insert.
func ObserveThreadRace() { threadCreateRaces.Inc() }

// ObserveSkillDiff records reconciliation inserts and deletes.
func ObserveSkillDiff(added, removed int) {
	skillChanges.WithLabelValues("insert").Add(float64(added))
	skillChanges.WithLabelValues("delete").Add(float64(removed))
}
