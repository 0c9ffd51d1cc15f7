package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the environment variable that overrides the computed count.
const EnvOverride = "PIPELINE_WORKERS"

// Count returns the number of workers for a task with the given CPU
// multiplier, never less than 1 and never more than limit (0 = no limit).
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			return capAt(count, limit)
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	return capAt(workers, limit)
}

// ForMixed returns worker count for mixed I/O and CPU tasks (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}
