package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the scheduling core.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	mutations       *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
	historyOps      *prometheus.CounterVec
	substitutions   *prometheus.CounterVec
	entriesGauge    prometheus.Gauge
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
	requestCount   uint64
	mutationCount  uint64
	conflictCount  uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_mutations_total",
		Help: "Applied timetable mutations by action type",
	}, []string{"type"})

	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_conflicts_total",
		Help: "Rejected placements by conflict dimension",
	}, []string{"dimension"})

	historyOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_history_operations_total",
		Help: "Undo and redo requests by outcome",
	}, []string{"operation", "outcome"})

	substitutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_substitutions_total",
		Help: "Substitution workflow transitions",
	}, []string{"status"})

	entriesGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_entries",
		Help: "Number of entries currently scheduled",
	})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, mutations, conflicts, historyOps, substitutions, entriesGauge, cacheLatency, cacheWrite, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		mutations:       mutations,
		conflicts:       conflicts,
		historyOps:      historyOps,
		substitutions:   substitutions,
		entriesGauge:    entriesGauge,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordMutation counts an applied store mutation and refreshes the entry gauge.
func (m *MetricsService) RecordMutation(actionType models.ActionType, entries int) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(string(actionType)).Inc()
	m.entriesGauge.Set(float64(entries))
	atomic.AddUint64(&m.mutationCount, 1)
}

// RecordConflict counts a rejected placement.
func (m *MetricsService) RecordConflict(dimension string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(dimension).Inc()
	atomic.AddUint64(&m.conflictCount, 1)
}

// RecordHistory counts an undo or redo request.
func (m *MetricsService) RecordHistory(operation string, applied bool) {
	if m == nil {
		return
	}
	outcome := "applied"
	if !applied {
		outcome = "empty"
	}
	m.historyOps.WithLabelValues(operation, outcome).Inc()
}

// RecordSubstitution counts a substitution state change.
func (m *MetricsService) RecordSubstitution(status string) {
	if m == nil {
		return
	}
	m.substitutions.WithLabelValues(status).Inc()
}

// SetEntries refreshes the entry gauge, e.g. after loading a snapshot.
func (m *MetricsService) SetEntries(entries int) {
	if m == nil {
		return
	}
	m.entriesGauge.Set(float64(entries))
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// Snapshot returns aggregated counters for the stats endpoint.
func (m *MetricsService) Snapshot() models.SchedulerMetrics {
	if m == nil {
		return models.SchedulerMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	return models.SchedulerMetrics{
		RequestsTotal:  atomic.LoadUint64(&m.requestCount),
		MutationsTotal: atomic.LoadUint64(&m.mutationCount),
		ConflictsTotal: atomic.LoadUint64(&m.conflictCount),
		CacheHits:      hits,
		CacheMisses:    misses,
		CacheHitRatio:  ratio,
		Goroutines:     runtime.NumGoroutine(),
		GeneratedAt:    time.Now().UTC(),
	}
}
