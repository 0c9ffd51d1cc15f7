// Package main is the entry point of the photo map server.
//
// On start it loads configuration from the environment, runs the photo
// pipeline once in the background and then re-runs it every INDEX_INTERVAL.
// Each run extracts GPS and capture time from every photo in PHOTOS_DIR,
// writes missing thumbnails, removes orphaned thumbnails and groups the
// photos into location clusters.
//
// # HTTP Server
//
// The main server (PORT, default 8080) serves:
//
//   - GET /api/photos: clusters of the last run as JSON
//   - POST /api/reindex: start a run now
//   - /photos/: source photos and, by default, thumbnails
//   - /thumbnails/: thumbnails when THUMBNAIL_DIR is outside PHOTOS_DIR
//   - /health, /healthz, /livez, /readyz and /version
//   - everything else from STATIC_DIR
//
// Prometheus metrics are served on METRICS_PORT (default 9090) unless
// METRICS_ENABLED is false.
//
// # Graceful Shutdown
//
// SIGINT and SIGTERM stop the HTTP server, cancel a running pipeline and
// stop the background collectors within 30 seconds.
package main
