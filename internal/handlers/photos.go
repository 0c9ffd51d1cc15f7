package handlers

import (
	"errors"
	"net/http"

	"photo-map/internal/indexer"
	"photo-map/internal/logging"
)

// RunIDHeader names the run that produced the served clusters.
const RunIDHeader = "X-Run-ID"

// GetPhotos returns the clusters of the last completed run as a JSON array
// of arrays of photo records. Before the first run it returns [].
func (h *Handlers) GetPhotos(w http.ResponseWriter, r *http.Request) {
	// Headers and body come from the same result so a concurrent publish
	// cannot pair one run's ID with another run's clusters.
	result := h.indexer.LastResult()
	clusters := h.indexer.Clusters()
	if result != nil && result.Clusters != nil {
		clusters = result.Clusters
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if result != nil && result.RunID != "" {
		etag := `"` + result.RunID + `"`
		w.Header().Set(RunIDHeader, result.RunID)
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	writeJSON(w, clusters)
}

// TriggerReindex starts a run in the background. It answers 202 when the
// run was started, 409 when one is already in progress and 503 during
// shutdown.
func (h *Handlers) TriggerReindex(w http.ResponseWriter, _ *http.Request) {
	err := h.indexer.Trigger()
	switch {
	case errors.Is(err, indexer.ErrRunInProgress):
		writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, indexer.ErrStopped):
		writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
	case err != nil:
		logging.Error("failed to trigger reindex: %v", err)
		writeJSONError(w, "failed to start run", http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		writeJSON(w, map[string]string{"status": "started"})
	}
}
