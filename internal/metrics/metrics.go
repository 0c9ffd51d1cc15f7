package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_map_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_map_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_map_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Indexer metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_map_watcher_events_total",
			Help: "Photo directory change events seen by the watcher",
		},
		[]string{"op"}, // "create", "write", "remove", "rename"
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_map_watcher_errors_total",
			Help: "Errors reported by the photo directory watcher",
		},
	)

	IndexerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_map_indexer_runs_total",
			Help: "Total number of indexer runs by outcome",
		},
		[]string{"status"}, // "success", "error"
	)

	IndexerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_map_indexer_last_run_timestamp",
			Help: "Unix timestamp of the last completed indexer run",
		},
	)

	IndexerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_map_indexer_last_run_duration_seconds",
			Help: "Duration of the last indexer run in seconds",
		},
	)

	IndexerFilesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_map_indexer_files_processed_total",
			Help: "Total number of files that produced a photo record",
		},
	)

	IndexerFileErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_map_indexer_file_errors_total",
			Help: "Total number of per-file failures by kind",
		},
		[]string{"kind"}, // "read", "decode", "tag", "write", "timeout"
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_map_indexer_running",
			Help: "Whether an indexer run is in progress (1 = running, 0 = idle)",
		},
	)

	IndexerWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_map_indexer_workers",
			Help: "Maximum number of concurrent per-file tasks",
		},
	)
)

// Extraction metrics
var (
	ExtractorFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_map_extractor_fallbacks_total",
			Help: "Total number of records assigned the fallback coordinate by reason",
		},
		[]string{"reason"}, // "no_exif", "no_gps", "invalid_gps"
	)

	ExtractorDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_map_extractor_duration_seconds",
			Help:    "Metadata extraction duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_map_thumbnail_generations_total",
			Help: "Total number of derivative outcomes by mode and status",
		},
		[]string{"mode", "status"}, // mode: "thumbnail", "normalize"; status: "generated", "skipped", "error"
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_map_thumbnail_generation_duration_seconds",
			Help:    "Derivative generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"mode"},
	)

	ThumbnailOrphansRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_map_thumbnail_orphans_removed_total",
			Help: "Total number of derived assets removed because their source is gone",
		},
	)

	SourcesNormalizedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_map_sources_normalized_total",
			Help: "Total number of source files rewritten under their capture-time name",
		},
	)

	ThumbnailCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_map_thumbnail_cache_size_bytes",
			Help: "Total size of the derived-asset directory in bytes",
		},
	)

	ThumbnailCacheCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_map_thumbnail_cache_count",
			Help: "Number of files in the derived-asset directory",
		},
	)
)

// Library metrics
var (
	LibraryPhotosTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_map_library_photos",
			Help: "Number of photos in the last published result",
		},
	)

	LibraryClustersTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_map_library_clusters",
			Help: "Number of clusters in the last published result",
		},
	)

	LibraryPhotosWithoutGPS = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_map_library_photos_without_gps",
			Help: "Number of photos placed at the fallback coordinate in the last published result",
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_map_filesystem_retry_attempts_total",
			Help: "Total number of filesystem retries after a stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_map_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_map_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_map_filesystem_retry_duration_seconds",
			Help:    "Duration of retried filesystem operations including backoff",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_map_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_map_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_map_memory_paused",
			Help: "Whether image decoding is paused for memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_map_memory_gc_pauses_total",
			Help: "Total number of times decoding was paused for memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_map_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
