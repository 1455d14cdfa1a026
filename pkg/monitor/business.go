package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics 定义业务监控指标
type BusinessMetrics struct {
	RunsSettledTotal          *prometheus.CounterVec // label: compute_mode
	CreditsDebitedTotal       prometheus.Counter
	TopupsCompletedTotal      *prometheus.CounterVec // label: rail
	TopupsFailedTotal         *prometheus.CounterVec // label: rail
	InsufficientCreditsTotal  prometheus.Counter
	SnapshotExportDuration    prometheus.Histogram
	SnapshotExportFailedTotal prometheus.Counter
}

// Global Metrics Instance
var Business *BusinessMetrics

// InitBusinessMetrics 初始化业务指标
func InitBusinessMetrics() {
	Business = &BusinessMetrics{
		RunsSettledTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credit_runs_settled_total",
			Help: "The total number of settled paid runs",
		}, []string{"compute_mode"}),
		CreditsDebitedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credit_debits_total",
			Help: "The total number of run debits applied",
		}),
		TopupsCompletedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credit_topups_completed_total",
			Help: "The total number of completed top-up orders",
		}, []string{"rail"}),
		TopupsFailedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credit_topups_failed_total",
			Help: "The total number of failed top-up orders",
		}, []string{"rail"}),
		InsufficientCreditsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credit_insufficient_rejections_total",
			Help: "Run debits rejected because the balance was below the price",
		}),
		SnapshotExportDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "store_snapshot_export_duration_seconds",
			Help:    "Duration of store snapshot exports",
			Buckets: prometheus.DefBuckets,
		}),
		SnapshotExportFailedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "store_snapshot_export_failed_total",
			Help: "Snapshot exports that failed and triggered an in-memory restore",
		}),
	}
}
