// Package metrics provides Prometheus instrumentation for the photo-map service.
//
// All metrics are prefixed with "photo_map_". They are registered with the
// default registry through promauto and exposed by the metrics server.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: requests by method, path and status
//   - HTTPRequestDuration: request latency by method and path
//   - HTTPRequestsInFlight: requests currently being served
//
// ## Indexer Metrics
//
// One indexer run covers the whole photo directory:
//   - IndexerRunsTotal: runs by outcome ("success", "error")
//   - IndexerLastRunTimestamp / IndexerLastRunDuration
//   - IndexerFilesProcessed: photo files handed to the pipeline
//   - IndexerFileErrors: per-file failures by kind ("decode", "tag", "write", "timeout", "read")
//   - IndexerIsRunning, IndexerWorkers
//
// ## Extraction Metrics
//
//   - ExtractorFallbacksTotal: records that received the fallback coordinate, by reason
//   - ExtractorDuration: time spent decoding dimensions and EXIF tags
//
// ## Thumbnail Metrics
//
//   - ThumbnailGenerationsTotal: derivative outcomes by mode and status
//   - ThumbnailGenerationDuration: decode + resize + encode time by mode
//   - ThumbnailOrphansRemoved: derivatives deleted by reconciliation
//   - SourcesNormalizedTotal: sources rewritten under their capture-time name
//   - ThumbnailCacheSize / ThumbnailCacheCount: sampled by the Collector
//
// ## Watcher Metrics
//
//   - WatcherEventsTotal: photo changes by operation
//   - WatcherErrors
//
// ## Memory Metrics
//
//   - MemoryUsageRatio: heap usage relative to the configured limit
//   - MemoryPaused: 1 while new decodes are held back
//   - MemoryGCPauses: times the monitor forced a collection under pressure
//
// ## Library Metrics
//
//   - LibraryPhotosTotal, LibraryClustersTotal, LibraryPhotosWithoutGPS
//
// ## Filesystem Metrics
//
// Recorded through the filesystem.Observer implemented in observer.go:
//   - FilesystemRetryAttempts / Success / Failures / Duration, FilesystemStaleErrors
//
// Call InitializeMetrics once at startup so every labelled series is
// exported from the first scrape.
package metrics
