// Package logging provides a simple leveled logging interface for the
// photo-map service and its command line tools.
//
// It supports the following log levels:
//   - DEBUG: Per-file pipeline decisions (skips, fallbacks, cluster joins)
//   - INFO: Run summaries and startup configuration
//   - WARN: Per-file failures that drop a file from a run
//   - ERROR: Failures that affect a whole run or the HTTP server
//   - FATAL: Fatal errors that terminate the process
//
// The level is read once from the DEBUG or LOG_LEVEL environment variables
// and can be overridden with SetLevel, which the CLI does for --log-level.
package logging
