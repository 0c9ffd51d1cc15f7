package indexer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"photo-map/internal/cluster"
	"photo-map/internal/filesystem"
	"photo-map/internal/logging"
	"photo-map/internal/media"
	"photo-map/internal/mediatypes"
	"photo-map/internal/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config configures a Pipeline.
type Config struct {
	PhotosDir string
	// SourceURL is the URL prefix sources are served under.
	SourceURL string
	// ThumbnailURL is the URL prefix derivatives are served under.
	ThumbnailURL string

	Workers     int
	FileTimeout time.Duration
	// Normalize renames and downscales sources after their capture time.
	Normalize bool
	Cluster   cluster.Builder

	// Throttle, if set, may hold back a file before it is read and decoded.
	Throttle Throttle
}

// Throttle delays work under resource pressure.
type Throttle interface {
	Wait(ctx context.Context) error
}

// Result is the published outcome of one run.
type Result struct {
	RunID     string                `json:"runId"`
	StartedAt time.Time             `json:"startedAt"`
	Duration  time.Duration         `json:"duration"`
	Clusters  [][]media.PhotoRecord `json:"-"`
	Stats     RunStats              `json:"stats"`
}

// RunStats counts what happened to the files of one run.
type RunStats struct {
	Files               int `json:"files"`
	Records             int `json:"records"`
	Dropped             int `json:"dropped"`
	WithoutGPS          int `json:"withoutGPS"`
	ThumbnailsGenerated int `json:"thumbnailsGenerated"`
	ThumbnailsSkipped   int `json:"thumbnailsSkipped"`
	ThumbnailErrors     int `json:"thumbnailErrors"`
	Timeouts            int `json:"timeouts"`
	Normalized          int `json:"normalized"`
	OrphansRemoved      int `json:"orphansRemoved"`
	Clusters            int `json:"clusters"`
}

// Pipeline turns the photos directory into clustered records. Each run
// recomputes everything from the files on disk.
type Pipeline struct {
	config    Config
	extractor *media.Extractor
	thumbs    *media.ThumbnailGenerator
	retry     filesystem.RetryConfig

	// process handles one file; replaced in tests.
	process func(ctx context.Context, f sourceFile) fileResult
}

// sourceFile is one listed photo.
type sourceFile struct {
	name string
	// sharedStem is set on every file after the first with a given stem;
	// those files are served without a derivative of their own.
	sharedStem bool
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeDropped
	outcomeTimeout
)

type thumbState int

const (
	thumbNone thumbState = iota
	thumbGenerated
	thumbSkipped
	thumbFailed
)

// fileResult is written by exactly one task into its own slot.
type fileResult struct {
	outcome    outcome
	record     media.PhotoRecord
	thumb      thumbState
	normalized bool
}

// NewPipeline creates a Pipeline.
func NewPipeline(config Config, extractor *media.Extractor, thumbs *media.ThumbnailGenerator) *Pipeline {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.SourceURL == "" {
		config.SourceURL = "/photos"
	}
	if config.ThumbnailURL == "" {
		config.ThumbnailURL = "/photos/thumbnails"
	}

	p := &Pipeline{
		config:    config,
		extractor: extractor,
		thumbs:    thumbs,
		retry:     filesystem.DefaultRetryConfig(),
	}
	p.process = p.processFile
	return p
}

// Run lists the photos directory, processes every photo concurrently, waits
// for all of them, removes orphaned derivatives and clusters the records in
// listing order. Per-file failures never fail the run; only a listing
// failure or cancellation of ctx does.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	startedAt := time.Now()
	result := &Result{RunID: uuid.NewString(), StartedAt: startedAt}

	files, err := p.list()
	if err != nil {
		return nil, err
	}
	result.Stats.Files = len(files)
	logging.Info("Run %s: processing %d photos with %d workers", result.RunID, len(files), p.config.Workers)
	metrics.IndexerWorkers.Set(float64(p.config.Workers))

	results := make([]fileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)
	for i, f := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = p.processWithTimeout(gctx, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run %s canceled: %w", result.RunID, err)
	}

	removed, err := media.ReconcileOrphans(p.config.PhotosDir, p.thumbs.Dir())
	if err != nil {
		logging.Error("Run %s: orphan reconciliation failed: %v", result.RunID, err)
	}
	result.Stats.OrphansRemoved = len(removed)

	records := make([]media.PhotoRecord, 0, len(files))
	for _, r := range results {
		switch r.outcome {
		case outcomeDropped:
			result.Stats.Dropped++
			continue
		case outcomeTimeout:
			result.Stats.Timeouts++
			continue
		}

		records = append(records, r.record)
		if !r.record.HasGPS {
			result.Stats.WithoutGPS++
		}
		if r.normalized {
			result.Stats.Normalized++
		}
		switch r.thumb {
		case thumbGenerated:
			result.Stats.ThumbnailsGenerated++
		case thumbSkipped:
			result.Stats.ThumbnailsSkipped++
		case thumbFailed:
			result.Stats.ThumbnailErrors++
		}
	}

	result.Clusters = cluster.Cluster(p.config.Cluster, records)
	result.Stats.Records = len(records)
	result.Stats.Clusters = len(result.Clusters)
	result.Duration = time.Since(startedAt)

	metrics.IndexerFilesProcessed.Add(float64(len(files)))
	logging.Info("Run %s: %d records in %d clusters (%d dropped, %d timed out, %d without GPS) in %v",
		result.RunID, result.Stats.Records, result.Stats.Clusters, result.Stats.Dropped,
		result.Stats.Timeouts, result.Stats.WithoutGPS, result.Duration)

	return result, nil
}

// list returns the photos in the top level of the photos directory in name
// order. Hidden files, directories and other file types are ignored.
func (p *Pipeline) list() ([]sourceFile, error) {
	entries, err := filesystem.ReadDirWithRetry(p.config.PhotosDir, p.retry)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", p.config.PhotosDir, err)
	}

	seen := make(map[string]string, len(entries))
	files := make([]sourceFile, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !mediatypes.IsPhotoFile(e.Name()) {
			continue
		}

		f := sourceFile{name: e.Name()}
		stem := mediatypes.Stem(f.name)
		if owner, ok := seen[stem]; ok {
			logging.Warn("%s shares a thumbnail name with %s; serving it without a thumbnail", f.name, owner)
			f.sharedStem = true
		} else {
			seen[stem] = f.name
		}
		files = append(files, f)
	}
	return files, nil
}

// processWithTimeout bounds processFile by the per-file timeout. A task
// that overruns is reported as timed out and its late result is dropped.
// The abandoned goroutine no longer holds a worker slot; it stops at the
// next step boundary in processFile, but a single decode or encode that
// never returns keeps running until it does.
func (p *Pipeline) processWithTimeout(ctx context.Context, f sourceFile) fileResult {
	if p.config.FileTimeout <= 0 {
		return p.process(ctx, f)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.FileTimeout)
	defer cancel()

	done := make(chan fileResult, 1)
	go func() {
		done <- p.process(ctx, f)
	}()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		logging.Warn("Processing %s timed out after %v", f.name, p.config.FileTimeout)
		metrics.IndexerFileErrors.WithLabelValues("timeout").Inc()
		return fileResult{outcome: outcomeTimeout}
	}
}

// processFile extracts metadata, optionally normalizes the source and makes
// sure its derivative exists.
func (p *Pipeline) processFile(ctx context.Context, f sourceFile) fileResult {
	srcPath := filepath.Join(p.config.PhotosDir, f.name)

	if p.config.Throttle != nil {
		if err := p.config.Throttle.Wait(ctx); err != nil {
			return fileResult{outcome: outcomeDropped}
		}
	}

	data, err := filesystem.ReadFileWithRetry(srcPath, p.retry)
	if err != nil {
		logging.Warn("Failed to read %s: %v", f.name, err)
		metrics.IndexerFileErrors.WithLabelValues("read").Inc()
		return fileResult{outcome: outcomeDropped}
	}
	if ctx.Err() != nil {
		return fileResult{outcome: outcomeTimeout}
	}

	meta, err := p.extractor.Extract(data)
	if err != nil {
		logging.Warn("Skipping %s: %v", f.name, err)
		metrics.IndexerFileErrors.WithLabelValues("decode").Inc()
		return fileResult{outcome: outcomeDropped}
	}
	if ctx.Err() != nil {
		return fileResult{outcome: outcomeTimeout}
	}
	if sidecar, ok := media.ReadSidecar(srcPath); ok {
		sidecar.Apply(&meta)
	}

	var res fileResult
	name := f.name

	if p.config.Normalize {
		norm, err := p.thumbs.Normalize(ctx, srcPath, data, meta)
		switch {
		case err != nil:
			logging.Warn("Failed to normalize %s: %v", f.name, err)
			p.countError(err)
		case norm.Renamed:
			if !f.sharedStem {
				if err := p.thumbs.Remove(f.name); err != nil {
					logging.Warn("Failed to remove thumbnail of %s: %v", f.name, err)
				}
			}
			if err := p.thumbs.Remove(norm.Name); err != nil {
				logging.Warn("Failed to remove stale thumbnail %s: %v", norm.Name, err)
			}
			name, data = norm.Name, norm.Data
			meta.Width, meta.Height = norm.Width, norm.Height
			// Canonical names are unique within the directory.
			f.sharedStem = false
			res.normalized = true
		}
	}

	if ctx.Err() != nil {
		return fileResult{outcome: outcomeTimeout}
	}

	record := media.PhotoRecord{
		SourcePath: path.Join(p.config.SourceURL, name),
		Latitude:   meta.Latitude,
		Longitude:  meta.Longitude,
		Width:      meta.Width,
		Height:     meta.Height,
		Filename:   name,
		HasGPS:     meta.HasGPS,
	}
	if !meta.CapturedAt.IsZero() {
		captured := meta.CapturedAt
		record.CapturedAt = &captured
	}
	record.ThumbnailPath = record.SourcePath

	if !f.sharedStem {
		thumb, err := p.thumbs.Generate(ctx, name, data)
		switch {
		case err != nil:
			logging.Warn("Failed to generate thumbnail for %s: %v", name, err)
			p.countError(err)
			res.thumb = thumbFailed
		case thumb.Skipped:
			record.ThumbnailPath = path.Join(p.config.ThumbnailURL, thumb.Name)
			res.thumb = thumbSkipped
		default:
			record.ThumbnailPath = path.Join(p.config.ThumbnailURL, thumb.Name)
			res.thumb = thumbGenerated
		}
	}

	res.record = record
	return res
}

// countError records a per-file error by kind.
func (p *Pipeline) countError(err error) {
	var decodeErr *media.DecodeError
	var writeErr *media.WriteError

	switch {
	case errors.As(err, &decodeErr):
		metrics.IndexerFileErrors.WithLabelValues("decode").Inc()
	case errors.As(err, &writeErr):
		metrics.IndexerFileErrors.WithLabelValues("write").Inc()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		// Counted once by processWithTimeout.
	default:
		metrics.IndexerFileErrors.WithLabelValues("write").Inc()
	}
}
