package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Prometheus metric names without namespace
const (
	MetricRunsTotal           = "sync_runs_total"
	MetricRunDurationSeconds  = "sync_run_duration_seconds"
	MetricVariantsTotal       = "sync_variants_processed_total"
	MetricMatchesTotal        = "sync_matches_total"
	MetricUpdatesTotal        = "sync_updates_applied_total"
	MetricUpdateFailuresTotal = "sync_update_failures_total"
	MetricLastGroupID         = "sync_last_gid"
)

// runDurationBuckets spans quick CSV runs up to multi-hour full catalog syncs
var runDurationBuckets = []float64{10, 30, 60, 300, 600, 1800, 3600, 7200, 14400}

// SyncMetrics exports sync run counters to Prometheus.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type SyncMetrics struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	variantsTotal *prometheus.CounterVec
	matchesTotal  *prometheus.CounterVec
	updatesTotal  *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec
	lastGroupID   prometheus.Gauge
}

// NewSyncMetrics creates the collectors in a private registry
func NewSyncMetrics(namespace string) *SyncMetrics {
	m := &SyncMetrics{registry: prometheus.NewRegistry()}

	m.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricRunsTotal,
		Help:      "Sync runs by source, mode and outcome.",
	}, []string{"source", "mode", "outcome"})

	m.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      MetricRunDurationSeconds,
		Help:      "Wall time of sync runs.",
		Buckets:   runDurationBuckets,
	}, []string{"source", "mode"})

	m.variantsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricVariantsTotal,
		Help:      "Storefront variants examined.",
	}, []string{"source"})

	m.matchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricMatchesTotal,
		Help:      "Match outcomes by kind (barcode, barcode_sku_mismatch, near_miss, none).",
	}, []string{"source", "kind"})

	m.updatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricUpdatesTotal,
		Help:      "Storefront updates applied by field.",
	}, []string{"source", "field"})

	m.failuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricUpdateFailuresTotal,
		Help:      "Storefront updates that failed by field.",
	}, []string{"source", "field"})

	m.lastGroupID = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      MetricLastGroupID,
		Help:      "Ledger group id of the last live run.",
	})

	m.registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.variantsTotal,
		m.matchesTotal,
		m.updatesTotal,
		m.failuresTotal,
		m.lastGroupID,
	)
	return m
}

func modeLabel(dry bool) string {
	if dry {
		return "dry"
	}
	return "live"
}

// RunFinished records the outcome and duration of one run
func (m *SyncMetrics) RunFinished(source string, dry bool, outcome string, elapsed time.Duration) {
	mode := modeLabel(dry)
	m.runsTotal.WithLabelValues(source, mode, outcome).Inc()
	m.runDuration.WithLabelValues(source, mode).Observe(elapsed.Seconds())
}

// VariantProcessed counts one examined variant
func (m *SyncMetrics) VariantProcessed(source string) {
	m.variantsTotal.WithLabelValues(source).Inc()
}

// Matched counts one match outcome
func (m *SyncMetrics) Matched(source, kind string) {
	m.matchesTotal.WithLabelValues(source, kind).Inc()
}

// UpdateApplied counts one applied field update
func (m *SyncMetrics) UpdateApplied(source, field string) {
	m.updatesTotal.WithLabelValues(source, field).Inc()
}

// UpdateFailed counts one failed field update
func (m *SyncMetrics) UpdateFailed(source, field string) {
	m.failuresTotal.WithLabelValues(source, field).Inc()
}

// GroupRecorded stores the gid of the latest live run
func (m *SyncMetrics) GroupRecorded(gid int64) {
	m.lastGroupID.Set(float64(gid))
}

// Registry returns the registry holding the sync collectors
func (m *SyncMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler
func (m *SyncMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *SyncMetrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Metrics endpoint listening", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
