package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"photo-map/internal/indexer"
	"photo-map/internal/media"
)

// mockIndex is a stand-in for the indexer with settable state.
type mockIndex struct {
	mu         sync.Mutex
	result     *indexer.Result
	ready      bool
	triggerErr error
	triggers   int
	health     indexer.HealthStatus
}

func (m *mockIndex) Clusters() [][]media.PhotoRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.result == nil {
		return [][]media.PhotoRecord{}
	}
	return m.result.Clusters
}

func (m *mockIndex) LastResult() *indexer.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

func (m *mockIndex) Trigger() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers++
	return m.triggerErr
}

func (m *mockIndex) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

func (m *mockIndex) GetHealthStatus() indexer.HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := m.health
	status.Ready = m.ready
	return status
}

func sampleResult() *indexer.Result {
	return &indexer.Result{
		RunID:     "3f1c2d4e-0000-4000-8000-000000000001",
		StartedAt: time.Now(),
		Clusters: [][]media.PhotoRecord{
			{
				{SourcePath: "/photos/a.jpg", ThumbnailPath: "/photos/thumbnails/a.jpg", Latitude: 25.0330, Longitude: 121.5654, Width: 4, Height: 3, Filename: "a.jpg"},
				{SourcePath: "/photos/b.jpg", ThumbnailPath: "/photos/thumbnails/b.jpg", Latitude: 25.0331, Longitude: 121.5655, Width: 4, Height: 3, Filename: "b.jpg"},
			},
			{
				{SourcePath: "/photos/c.png", ThumbnailPath: "/photos/c.png", Latitude: 35.6762, Longitude: 139.6503, Width: 2, Height: 2, Filename: "c.png"},
			},
		},
		Stats: indexer.RunStats{Files: 3, Records: 3, Clusters: 2},
	}
}

func TestGetPhotosBeforeFirstRun(t *testing.T) {
	t.Parallel()

	h := New(&mockIndex{})

	w := httptest.NewRecorder()
	h.GetPhotos(w, httptest.NewRequest(http.MethodGet, "/api/photos", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("Expected body [], got %q", got)
	}
	if w.Header().Get(RunIDHeader) != "" {
		t.Errorf("Expected no %s header before the first run", RunIDHeader)
	}
}

func TestGetPhotosReturnsClusters(t *testing.T) {
	t.Parallel()

	result := sampleResult()
	h := New(&mockIndex{result: result, ready: true})

	w := httptest.NewRecorder()
	h.GetPhotos(w, httptest.NewRequest(http.MethodGet, "/api/photos", http.NoBody))

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", ct)
	}
	if got := w.Header().Get(RunIDHeader); got != result.RunID {
		t.Errorf("Expected %s %q, got %q", RunIDHeader, result.RunID, got)
	}

	var raw [][]map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(raw) != 2 || len(raw[0]) != 2 || len(raw[1]) != 1 {
		t.Fatalf("Expected [[a b] [c]] shape, got %v", raw)
	}

	first := raw[0][0]
	for _, key := range []string{"src", "thumbnail", "lat", "lng", "width", "height", "filename"} {
		if _, ok := first[key]; !ok {
			t.Errorf("Expected key %q in record %v", key, first)
		}
	}
	if _, ok := first["HasGPS"]; ok {
		t.Error("HasGPS must not be serialized")
	}
	if first["lat"].(float64) != 25.0330 || first["lng"].(float64) != 121.5654 {
		t.Errorf("Unexpected coordinates %v,%v", first["lat"], first["lng"])
	}
	if raw[1][0]["thumbnail"] != "/photos/c.png" {
		t.Errorf("Expected thumbnail fallback to src, got %v", raw[1][0]["thumbnail"])
	}
}

func TestGetPhotosNotModified(t *testing.T) {
	t.Parallel()

	result := sampleResult()
	h := New(&mockIndex{result: result, ready: true})

	req := httptest.NewRequest(http.MethodGet, "/api/photos", http.NoBody)
	req.Header.Set("If-None-Match", `"`+result.RunID+`"`)
	w := httptest.NewRecorder()
	h.GetPhotos(w, req)

	if w.Code != http.StatusNotModified {
		t.Errorf("Expected status 304, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected empty body, got %q", w.Body.String())
	}

	req.Header.Set("If-None-Match", `"older-run"`)
	w = httptest.NewRecorder()
	h.GetPhotos(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for a stale ETag, got %d", w.Code)
	}
}

func TestTriggerReindex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKey    string
	}{
		{"started", nil, http.StatusAccepted, "status"},
		{"in progress", indexer.ErrRunInProgress, http.StatusConflict, "error"},
		{"wrapped in progress", errors.Join(errors.New("busy"), indexer.ErrRunInProgress), http.StatusConflict, "error"},
		{"shutting down", indexer.ErrStopped, http.StatusServiceUnavailable, "error"},
		{"other failure", errors.New("boom"), http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			idx := &mockIndex{triggerErr: tt.err}
			h := New(idx)

			w := httptest.NewRecorder()
			h.TriggerReindex(w, httptest.NewRequest(http.MethodPost, "/api/reindex", http.NoBody))

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if _, ok := body[tt.wantKey]; !ok {
				t.Errorf("Expected key %q in %v", tt.wantKey, body)
			}
			if idx.triggers != 1 {
				t.Errorf("Expected 1 trigger, got %d", idx.triggers)
			}
		})
	}
}

func TestWriteJSONError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	writeJSONError(w, `bad "input"`, http.StatusBadRequest)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["error"] != `bad "input"` {
		t.Errorf("Expected error message preserved, got %q", body["error"])
	}
}

func TestWriteJSONUnsupportedValue(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	writeJSON(w, map[string]interface{}{"ch": make(chan int)})

	if w.Body.Len() != 0 {
		t.Errorf("Expected no body for an unencodable value, got %q", w.Body.String())
	}
}
