package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hermes_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hermes_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Pipeline metrics
	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"}, // status: success|error
	)

	PipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hermes_pipeline_duration_seconds",
			Help:    "End-to-end pipeline run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	SymbolsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hermes_symbols_processed_total",
			Help: "Total symbols fully scored across runs",
		},
	)

	SymbolsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hermes_symbols_failed_total",
			Help: "Total symbols that failed scoring across runs",
		},
	)

	// Engine metrics
	EngineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hermes_engine_duration_seconds",
			Help:    "Per-engine computation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"engine"}, // engine: diagnosis|correlation|bias|surprise|quality
	)

	// Quality metrics
	QualityResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_quality_results_total",
			Help: "Quality check outcomes by check name and level",
		},
		[]string{"check", "level"}, // level: PASS|WARN|FAIL
	)

	StaleDrivers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hermes_stale_drivers_count",
			Help: "Indicator series past their staleness bound in the latest run",
		},
	)

	// Release metrics
	ReleasesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_releases_processed_total",
			Help: "Total economic releases processed",
		},
		[]string{"currency", "status"}, // status: created|duplicate|error
	)

	// Messaging metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_kafka_messages_total",
			Help: "Total Kafka messages produced",
		},
		[]string{"topic", "status"}, // status: success|error
	)
)

// Init registers all metrics with Prometheus
func Init() {
	// Worker metrics
	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)

	// Pipeline metrics
	prometheus.MustRegister(PipelineRuns)
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(SymbolsProcessed)
	prometheus.MustRegister(SymbolsFailed)

	// Engine metrics
	prometheus.MustRegister(EngineDuration)

	// Quality metrics
	prometheus.MustRegister(QualityResults)
	prometheus.MustRegister(StaleDrivers)

	// Release metrics
	prometheus.MustRegister(ReleasesProcessed)

	// Messaging metrics
	prometheus.MustRegister(KafkaMessages)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordEngineDuration records one engine pass
func RecordEngineDuration(engine string, duration time.Duration) {
	EngineDuration.WithLabelValues(engine).Observe(duration.Seconds())
}
