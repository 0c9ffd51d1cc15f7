// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - PHOTOS_DIR: Directory of source photos (default: ./public/photos)
//   - THUMBNAIL_DIR: Directory of derived thumbnails (default: PHOTOS_DIR/thumbnails)
//   - STATIC_DIR: Directory of the map UI bundle (default: ./static)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - INDEX_INTERVAL: Re-index interval as Go duration, 0 disables (default: 30m)
//   - THUMBNAIL_SIZE: Thumbnail bounding box edge in pixels (default: 300)
//   - NORMALIZE_SOURCES: Rename and downscale sources by capture time (default: false)
//   - NORMALIZE_SIZE: Normalized source bounding box edge in pixels (default: 1024)
//   - WRITE_SIDECARS: Write metadata sidecars for normalized sources (default: true)
//   - JPEG_QUALITY: Quality of every written JPEG (default: 80)
//   - CLUSTER_THRESHOLD: Clustering radius in degrees (default: 0.005)
//   - CLUSTER_MODE: first or nearest (default: first)
//   - FALLBACK_LAT, FALLBACK_LNG: Position of photos without GPS (default: 25.0330, 121.5654)
//   - HONOR_GPS_REF: Negate southern and western coordinates (default: false)
//   - FILE_TIMEOUT: Per-file processing limit (default: 30s)
//   - PIPELINE_WORKERS: Concurrent file tasks (default: 1.5 per CPU)
//   - WATCH_PHOTOS: Run the pipeline when photos change (default: false)
//   - WATCH_DEBOUNCE: Quiet period before a watched change starts a run (default: 2s)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// Out-of-range values are logged and replaced with defaults. A thumbnail
// directory equal to the photos directory, or one that is not writable,
// is a configuration error.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
