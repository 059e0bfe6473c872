// Package metrics exposes Prometheus collectors for the benchmark pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "benchdash"

// Cache tiers and lookup outcomes used as label values.
const (
	TierMemory = "memory"
	TierDisk   = "disk"

	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultExpired = "expired"
	ResultError   = "error"
)

// OtherWorkflow labels workflows that are not in the catalog, keeping the
// workflow label bounded.
const OtherWorkflow = "other"

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records nothing,
// so components can be built without a registry in tests.
type Metrics struct {
	CacheLookups      *prometheus.CounterVec
	UpstreamRequests  *prometheus.CounterVec
	ArtifactDownloads *prometheus.CounterVec
	RecordsParsed     *prometheus.CounterVec
	FetchDuration     *prometheus.HistogramVec
	RunsProcessed     prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "benchmark cache lookups, by tier and outcome",
			},
			[]string{"tier", "result"},
		),
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "requests sent to the CI provider API, by endpoint and status code",
			},
			[]string{"endpoint", "code"},
		),
		ArtifactDownloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "artifact_downloads_total",
				Help:      "artifact download attempts, by extraction strategy and outcome",
			},
			[]string{"strategy", "result"},
		),
		RecordsParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_parsed_total",
				Help:      "benchmark records produced by the artifact parser, by workflow",
			},
			[]string{"workflow"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "live_fetch_duration_seconds",
				Help:      "wall-clock duration of a live benchmark fetch",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"workflow"},
		),
		RunsProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_processed_total",
				Help:      "workflow runs processed by the benchmark fetcher",
			},
		),
	}
	reg.MustRegister(
		m.CacheLookups,
		m.UpstreamRequests,
		m.ArtifactDownloads,
		m.RecordsParsed,
		m.FetchDuration,
		m.RunsProcessed,
	)
	return m
}

// CacheLookup records one lookup against a cache tier.
func (m *Metrics) CacheLookup(tier, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(tier, result).Inc()
}

// UpstreamRequest records one request to the CI provider.
func (m *Metrics) UpstreamRequest(endpoint, code string) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(endpoint, code).Inc()
}

// ArtifactDownload records one artifact download+parse attempt.
func (m *Metrics) ArtifactDownload(strategy, result string) {
	if m == nil {
		return
	}
	m.ArtifactDownloads.WithLabelValues(strategy, result).Inc()
}

// Records adds n parsed records for workflow.
func (m *Metrics) Records(workflow string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RecordsParsed.WithLabelValues(workflow).Add(float64(n))
}

// RunProcessed counts one processed workflow run.
func (m *Metrics) RunProcessed() {
	if m == nil {
		return
	}
	m.RunsProcessed.Inc()
}

// ObserveFetch records the duration of a live fetch that started at start.
func (m *Metrics) ObserveFetch(workflow string, start time.Time) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(workflow).Observe(time.Since(start).Seconds())
}
