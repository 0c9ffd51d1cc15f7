// Package memory keeps image decoding inside the container's memory budget.
//
// Decoding a large photo allocates its full pixel buffer at once, so a
// burst of concurrent decodes can push a container past its limit.
// [ConfigureFromEnv] sets GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO so
// the garbage collector works against the real limit, and a [Monitor]
// samples heap usage and makes new decodes wait in [Monitor.Wait] while
// usage is above the critical water mark.
//
// Environment variables:
//
//   - GOMEMLIMIT: Standard Go variable; when set it takes precedence.
//   - MEMORY_LIMIT: Container memory limit in bytes.
//   - MEMORY_RATIO: Share of MEMORY_LIMIT given to the heap (default 0.85).
package memory
