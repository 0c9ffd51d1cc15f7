package handlers

import (
	"net/http"
	"runtime"
	"time"

	"photo-map/internal/indexer"
	"photo-map/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status      string `json:"status"`
	Ready       bool   `json:"ready"`
	Version     string `json:"version"`
	Uptime      string `json:"uptime"`
	Indexing    bool   `json:"indexing"`
	LastIndexed string `json:"lastIndexed,omitempty"`
	LastRunID   string `json:"lastRunId,omitempty"`
	LastError   string `json:"lastError,omitempty"`

	// Last run summary
	LastRun *indexer.RunStats `json:"lastRun,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	healthStatus := h.indexer.GetHealthStatus()

	response := HealthResponse{
		Ready:        healthStatus.Ready,
		Version:      startup.Version,
		Uptime:       healthStatus.Uptime,
		Indexing:     healthStatus.Indexing,
		LastRunID:    healthStatus.LastRunID,
		LastError:    healthStatus.LastError,
		LastRun:      healthStatus.LastRun,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	switch {
	case !healthStatus.Ready:
		response.Status = statusStarting
	case healthStatus.LastError != "":
		// A failed run keeps serving the previous clusters.
		response.Status = statusDegraded
	default:
		response.Status = statusHealthy
	}

	if !healthStatus.LastIndexed.IsZero() {
		response.LastIndexed = healthStatus.LastIndexed.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")

	// Return 503 only if not ready at all
	if !healthStatus.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only once the first run has completed
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.indexer.IsReady() {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{
			"status": "ready",
		})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
	}
}
