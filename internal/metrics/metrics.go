package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Thumbnail cache metrics
var (
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_curator_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
		[]string{"tier"},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_curator_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
	)

	DiskCacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_curator_disk_cache_bytes",
			Help: "Total size of the disk thumbnail cache in bytes",
		},
	)

	DiskCacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_curator_disk_cache_evictions_total",
			Help: "Total number of disk cache files evicted by cleanup",
		},
	)
)

// Worker metrics
var (
	ItemsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_curator_items_processed_total",
			Help: "Total number of work items processed",
		},
		[]string{"task", "status"},
	)

	WorkerPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_curator_worker_pool_size",
			Help: "Number of parallel workers in the current batch",
		},
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_curator_batch_duration_seconds",
			Help:    "Duration of complete batch runs in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"task"},
	)
)

// Memory pressure metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_curator_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryReliefsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_curator_memory_reliefs_total",
			Help: "Times the memory watcher dropped caches under pressure",
		},
	)
)

// Model service metrics
var (
	RPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_curator_rpc_requests_total",
			Help: "Total number of vision/embedding RPC requests",
		},
		[]string{"call", "status"},
	)

	RPCDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_curator_rpc_duration_seconds",
			Help:    "Vision/embedding RPC duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"call"},
	)
)
