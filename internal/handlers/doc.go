// Package handlers provides the HTTP handlers for the photo map API.
//
// It includes handlers for:
//   - The clustered photo query (/api/photos)
//   - Manually triggered re-indexing
//   - Health, liveness and readiness probes
//   - Version information
package handlers
