package metrics

// Label values pre-populated by InitializeMetrics.
var (
	fileErrorKinds   = []string{"read", "decode", "tag", "write", "timeout"}
	fallbackReasons  = []string{"no_exif", "no_gps", "invalid_gps"}
	thumbnailModes   = []string{"thumbnail", "normalize"}
	thumbnailResults = []string{"generated", "skipped", "error"}
	filesystemOps    = []string{"stat", "read", "readdir"}
	volumes          = []string{"photos", "thumbnails", "unknown"}
	watcherOps       = []string{"create", "write", "remove", "rename"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"success", "error"} {
		IndexerRunsTotal.WithLabelValues(status)
	}

	for _, op := range watcherOps {
		WatcherEventsTotal.WithLabelValues(op)
	}

	for _, kind := range fileErrorKinds {
		IndexerFileErrors.WithLabelValues(kind)
	}

	for _, reason := range fallbackReasons {
		ExtractorFallbacksTotal.WithLabelValues(reason)
	}

	for _, mode := range thumbnailModes {
		ThumbnailGenerationDuration.WithLabelValues(mode)
		for _, status := range thumbnailResults {
			ThumbnailGenerationsTotal.WithLabelValues(mode, status)
		}
	}

	for _, op := range filesystemOps {
		for _, vol := range volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
		}
	}
}
