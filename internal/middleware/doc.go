// Package middleware provides HTTP middleware for the photo map server.
//
// It includes:
//   - Request IDs, generated or taken from a valid X-Request-ID header
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with bounded path labels
//   - gzip compression of JSON and text responses
package middleware
