package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the identity scoring,
// clustering, and training pipelines.
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	// Scoring metrics
	PairsScored      prometheus.Counter
	ScoringLatency    prometheus.Histogram
	ScoringSkipped    prometheus.Counter // length-ratio fast reject
	ExactMatches      prometheus.Counter // FastExactMode hits
	ScoringBatchSize  prometheus.Histogram

	// Clustering metrics
	ClustersFound          prometheus.Gauge
	ClusterBlocksProcessed prometheus.Counter
	ClusterPassesRun       prometheus.Counter
	ClusterAssignments     *prometheus.CounterVec // labeled by membership: member/extended/outside/singleton
	ClusterQuality         prometheus.Gauge
	ClusterCoverage        prometheus.Gauge

	// Training metrics
	TrainingIterations  prometheus.Counter
	TrainingDuration    prometheus.Histogram
	FeaturesSelected    prometheus.Gauge
	ModelAccuracy       prometheus.Gauge
	ModelSensitivity    prometheus.Gauge
	ModelSpecificity    prometheus.Gauge

	// System metrics
	GoroutinesCount prometheus.Gauge
	MemoryUsage     prometheus.Gauge
	CPUUsage        prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_requests_total",
				Help: "Total number of requests by method and status",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "identity_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		RequestErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_request_errors_total",
				Help: "Total number of request errors by method and error type",
			},
			[]string{"method", "error_type"},
		),

		PairsScored: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "identity_pairs_scored_total",
				Help: "Total number of sequence pairs scored",
			},
		),
		ScoringLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "identity_scoring_latency_seconds",
				Help:    "Latency of a single pairwise score",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),
		ScoringSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "identity_scoring_skipped_total",
				Help: "Pairs rejected by the length-ratio fast path before the statistic bank ran",
			},
		),
		ExactMatches: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "identity_exact_matches_total",
				Help: "Pairs scored 1.0 by the fast-exact-match path",
			},
		),
		ScoringBatchSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "identity_scoring_batch_size",
				Help:    "Number of sequences in an all-vs-many scoring batch",
				Buckets: []float64{1, 10, 100, 1000, 10000, 25000, 100000},
			},
		),

		ClustersFound: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "identity_clusters_found",
				Help: "Number of clusters in the most recent run",
			},
		),
		ClusterBlocksProcessed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "identity_cluster_blocks_processed_total",
				Help: "Total number of sequence blocks read during clustering",
			},
		),
		ClusterPassesRun: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "identity_cluster_passes_total",
				Help: "Total number of streaming refinement passes run",
			},
		),
		ClusterAssignments: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_cluster_assignments_total",
				Help: "Total number of sequences assigned by final membership",
			},
			[]string{"membership"},
		),
		ClusterQuality: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "identity_cluster_quality",
				Help: "Composite cluster quality score of the most recent evaluation",
			},
		),
		ClusterCoverage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "identity_cluster_coverage",
				Help: "Fraction of sequences covered by a non-empty cluster",
			},
		),

		TrainingIterations: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "identity_training_iterations_total",
				Help: "Total number of best-first feature-selection iterations run",
			},
		),
		TrainingDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "identity_training_duration_seconds",
				Help:    "Duration of a full training run",
				Buckets: []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
			},
		),
		FeaturesSelected: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "identity_training_features_selected",
				Help: "Number of features kept by the most recent training run",
			},
		),
		ModelAccuracy: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "identity_model_accuracy",
				Help: "Validation accuracy of the most recently trained model",
			},
		),
		ModelSensitivity: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "identity_model_sensitivity",
				Help: "Validation sensitivity of the most recently trained model",
			},
		),
		ModelSpecificity: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "identity_model_specificity",
				Help: "Validation specificity of the most recently trained model",
			},
		),

		GoroutinesCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "identity_goroutines",
				Help: "Current number of goroutines",
			},
		),
		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "identity_memory_bytes",
				Help: "Memory usage in bytes",
			},
		),
		CPUUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "identity_cpu_usage",
				Help: "CPU usage percentage",
			},
		),
	}

	return m
}

// RecordRequest records a request with duration and status.
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordError records an error.
func (m *Metrics) RecordError(method, errorType string) {
	m.RequestErrors.WithLabelValues(method, errorType).Inc()
}

// RecordScore records one pairwise scoring call.
func (m *Metrics) RecordScore(duration time.Duration, wasSkipped, wasExactMatch bool) {
	m.PairsScored.Inc()
	m.ScoringLatency.Observe(duration.Seconds())
	if wasSkipped {
		m.ScoringSkipped.Inc()
	}
	if wasExactMatch {
		m.ExactMatches.Inc()
	}
}

// RecordScoringBatch records the size of an all-vs-many scoring call.
func (m *Metrics) RecordScoringBatch(size int) {
	m.ScoringBatchSize.Observe(float64(size))
}

// RecordClusterBlock records one block read during clustering.
func (m *Metrics) RecordClusterBlock() {
	m.ClusterBlocksProcessed.Inc()
}

// RecordClusterPass records one streaming refinement pass.
func (m *Metrics) RecordClusterPass() {
	m.ClusterPassesRun.Inc()
}

// RecordClusterAssignment records one sequence's final membership:
// "member", "extended", "outside", or "singleton".
func (m *Metrics) RecordClusterAssignment(membership string) {
	m.ClusterAssignments.WithLabelValues(membership).Inc()
}

// UpdateClusterResult updates the gauges reported after a clustering run
// finishes.
func (m *Metrics) UpdateClusterResult(clusterCount int, quality, coverage float64) {
	m.ClustersFound.Set(float64(clusterCount))
	m.ClusterQuality.Set(quality)
	m.ClusterCoverage.Set(coverage)
}

// RecordTrainingRun records one completed training run's duration,
// feature count, and validation metrics.
func (m *Metrics) RecordTrainingRun(duration time.Duration, featureCount int, accuracy, sensitivity, specificity float64) {
	m.TrainingIterations.Inc()
	m.TrainingDuration.Observe(duration.Seconds())
	m.FeaturesSelected.Set(float64(featureCount))
	m.ModelAccuracy.Set(accuracy)
	m.ModelSensitivity.Set(sensitivity)
	m.ModelSpecificity.Set(specificity)
}

// UpdateGoroutineCount updates goroutine count.
func (m *Metrics) UpdateGoroutineCount(count int) {
	m.GoroutinesCount.Set(float64(count))
}

// UpdateMemoryUsage updates memory usage.
func (m *Metrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}

// UpdateCPUUsage updates CPU usage.
func (m *Metrics) UpdateCPUUsage(percentage float64) {
	m.CPUUsage.Set(percentage)
}
