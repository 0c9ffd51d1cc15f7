package indexer

import (
	"context"
	"errors"
	"sync"
	"time"

	"photo-map/internal/logging"
	"photo-map/internal/media"
	"photo-map/internal/metrics"
)

// ErrRunInProgress is returned when a run is requested while another run
// has not finished.
var ErrRunInProgress = errors.New("indexer: run already in progress")

// ErrStopped is returned when a run is requested after Stop.
var ErrStopped = errors.New("indexer: stopped")

// Runner produces one Result per call.
type Runner interface {
	Run(ctx context.Context) (*Result, error)
}

// Indexer runs the pipeline on start, periodically and on demand, and
// holds the most recently published result.
type Indexer struct {
	runner   Runner
	interval time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup

	// runMu is held for the duration of a run.
	runMu sync.Mutex

	mu                   sync.RWMutex
	result               *Result
	isIndexing           bool
	lastIndexTime        time.Time
	initialIndexComplete bool
	lastError            error
	startTime            time.Time

	onIndexComplete func(*Result)
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready       bool      `json:"ready"`
	Indexing    bool      `json:"indexing"`
	StartTime   time.Time `json:"startTime"`
	Uptime      string    `json:"uptime"`
	LastIndexed time.Time `json:"lastIndexed,omitempty"`
	LastRunID   string    `json:"lastRunId,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
	LastRun     *RunStats `json:"lastRun,omitempty"`
}

// New creates an Indexer. An interval of zero disables periodic runs.
func New(runner Runner, interval time.Duration) *Indexer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Indexer{
		runner:    runner,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// SetOnIndexComplete sets a callback invoked after each published run.
func (idx *Indexer) SetOnIndexComplete(callback func(*Result)) {
	idx.onIndexComplete = callback
}

// Start runs the initial index in the background and starts the periodic
// loop.
func (idx *Indexer) Start() {
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		logging.Info("Starting initial index in background...")
		if _, err := idx.Index(idx.ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
			logging.Error("Initial index error: %v", err)
		}
	}()

	if idx.interval > 0 {
		idx.wg.Add(1)
		go idx.periodicIndex()
	}
}

// Stop cancels any running index and waits for background work to end.
func (idx *Indexer) Stop() {
	idx.stopOnce.Do(func() {
		idx.cancel()
		idx.wg.Wait()
	})
}

func (idx *Indexer) periodicIndex() {
	defer idx.wg.Done()

	ticker := time.NewTicker(idx.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logging.Info("Starting periodic re-index...")
			if _, err := idx.Index(idx.ctx); err != nil {
				if errors.Is(err, ErrRunInProgress) {
					logging.Info("Index already in progress, skipping...")
					continue
				}
				logging.Error("Periodic index error: %v", err)
			}
		case <-idx.ctx.Done():
			return
		}
	}
}

// Trigger starts a run in the background. It returns ErrRunInProgress
// without starting anything if a run is active, and ErrStopped once Stop
// has been called.
func (idx *Indexer) Trigger() error {
	if idx.ctx.Err() != nil {
		return ErrStopped
	}
	if !idx.runMu.TryLock() {
		return ErrRunInProgress
	}
	if idx.ctx.Err() != nil {
		idx.runMu.Unlock()
		return ErrStopped
	}

	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		defer idx.runMu.Unlock()
		if _, err := idx.run(idx.ctx); err != nil {
			logging.Error("Triggered index error: %v", err)
		}
	}()
	return nil
}

// Index runs the pipeline and waits for it. It returns ErrRunInProgress if
// a run is active.
func (idx *Indexer) Index(ctx context.Context) (*Result, error) {
	if !idx.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer idx.runMu.Unlock()
	return idx.run(ctx)
}

// run must be called with runMu held.
func (idx *Indexer) run(ctx context.Context) (*Result, error) {
	idx.setIndexing(true)
	metrics.IndexerIsRunning.Set(1)
	defer metrics.IndexerIsRunning.Set(0)

	startTime := time.Now()
	result, err := idx.runner.Run(ctx)
	duration := time.Since(startTime)

	idx.mu.Lock()
	idx.isIndexing = false
	idx.initialIndexComplete = true
	idx.lastError = err
	if err == nil {
		idx.result = result
		idx.lastIndexTime = time.Now()
	}
	idx.mu.Unlock()

	metrics.IndexerLastRunDuration.Set(duration.Seconds())
	if err != nil {
		metrics.IndexerRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.IndexerRunsTotal.WithLabelValues("success").Inc()
	metrics.IndexerLastRunTimestamp.Set(float64(time.Now().Unix()))

	if idx.onIndexComplete != nil {
		idx.onIndexComplete(result)
	}
	return result, nil
}

func (idx *Indexer) setIndexing(v bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.isIndexing = v
}

// Clusters returns the clusters of the last published run, or an empty
// slice before the first run completes.
func (idx *Indexer) Clusters() [][]media.PhotoRecord {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.result == nil || idx.result.Clusters == nil {
		return [][]media.PhotoRecord{}
	}
	return idx.result.Clusters
}

// LastResult returns the last published result, or nil.
func (idx *Indexer) LastResult() *Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.result
}

// IsReady returns true once the first run has finished.
func (idx *Indexer) IsReady() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.initialIndexComplete
}

// GetStats implements metrics.StatsProvider.
func (idx *Indexer) GetStats() metrics.Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.result == nil {
		return metrics.Stats{}
	}
	return metrics.Stats{
		TotalPhotos:      idx.result.Stats.Records,
		TotalClusters:    idx.result.Stats.Clusters,
		PhotosWithoutGPS: idx.result.Stats.WithoutGPS,
	}
}

// GetHealthStatus returns detailed health information.
func (idx *Indexer) GetHealthStatus() HealthStatus {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	status := HealthStatus{
		Ready:       idx.initialIndexComplete,
		Indexing:    idx.isIndexing,
		StartTime:   idx.startTime,
		Uptime:      time.Since(idx.startTime).String(),
		LastIndexed: idx.lastIndexTime,
	}

	if idx.result != nil {
		status.LastRunID = idx.result.RunID
		stats := idx.result.Stats
		status.LastRun = &stats
	}
	if idx.lastError != nil {
		status.LastError = idx.lastError.Error()
	}

	return status
}
