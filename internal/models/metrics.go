package models

import "time"

// SchedulerMetrics is a lightweight snapshot of the instrumentation counters.
type SchedulerMetrics struct {
	RequestsTotal  uint64    `json:"requests_total"`
	MutationsTotal uint64    `json:"mutations_total"`
	ConflictsTotal uint64    `json:"conflicts_total"`
	CacheHits      uint64    `json:"cache_hits"`
	CacheMisses    uint64    `json:"cache_misses"`
	CacheHitRatio  float64   `json:"cache_hit_ratio"`
	Goroutines     int       `json:"goroutines"`
	GeneratedAt    time.Time `json:"generated_at"`
}
