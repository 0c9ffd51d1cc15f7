package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"photo-map/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest covers decoder scratch buffers and goroutine stacks.
const DefaultMemoryRatio = 0.85

// LimitResult describes how the heap limit was chosen.
type LimitResult struct {
	Configured bool
	// Source is "GOMEMLIMIT", "MEMORY_LIMIT" or "none".
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv sets the runtime memory limit from MEMORY_LIMIT (bytes,
// usually from the Kubernetes Downward API) scaled by MEMORY_RATIO. An
// explicit GOMEMLIMIT wins. Call it before the first pipeline run.
func ConfigureFromEnv() LimitResult {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		result := LimitResult{Source: "GOMEMLIMIT"}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return result
	}

	limitStr := os.Getenv("MEMORY_LIMIT")
	if limitStr == "" {
		logging.Debug("MEMORY_LIMIT not set, GOMEMLIMIT will not be configured automatically")
		return LimitResult{Source: "none"}
	}

	containerLimit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || containerLimit <= 0 {
		logging.Warn("Failed to parse MEMORY_LIMIT %q, GOMEMLIMIT not configured", limitStr)
		return LimitResult{Source: "none"}
	}

	ratio := ratioFromEnv()
	goMemLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		formatBytes(goMemLimit), ratio*100, formatBytes(containerLimit))

	return LimitResult{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: containerLimit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

func ratioFromEnv() float64 {
	s := os.Getenv("MEMORY_RATIO")
	if s == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(s, 64)
	if err != nil || !(ratio > 0 && ratio <= 1) {
		logging.Warn("Invalid MEMORY_RATIO %q, using default %.2f", s, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}

// formatBytes formats bytes into human-readable string
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
