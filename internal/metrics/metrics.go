package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// lifecycle operations
	CheckOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "check_operations_total",
			Help: "Check lifecycle operations by outcome",
		},
		[]string{"operation", "outcome"}, // outcome: success|NOT_ELIGIBLE|EXPIRED_WINDOW|MISSING_PARAMETERS|error
	)
	CounterpartiesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "counterparties_created_total",
			Help: "Parties created by name resolution",
		},
	)

	// audit queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_queue_depth",
			Help: "Current audit worker queue depth",
		},
	)
	AuditWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Audit entries that could not be persisted",
		},
	)

	initOnce sync.Once
)

// /metrics endpoint handler
var Handler = promhttp.Handler

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal)
		prometheus.MustRegister(CheckOperations)
		prometheus.MustRegister(CounterpartiesCreated)
		prometheus.MustRegister(WorkerQueueDepth)
		prometheus.MustRegister(AuditWriteFailures)
	})
}

func ObserveOperation(op, outcome string) {
	CheckOperations.WithLabelValues(op, outcome).Inc()
}
