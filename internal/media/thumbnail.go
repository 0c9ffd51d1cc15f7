package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"photo-map/internal/filesystem"
	"photo-map/internal/logging"
	"photo-map/internal/mediatypes"
	"photo-map/internal/metrics"
)

const (
	// DefaultThumbnailSize bounds both edges of a thumbnail.
	DefaultThumbnailSize = 300
	// DefaultNormalizeSize bounds both edges of a normalized source.
	DefaultNormalizeSize = 1024
	// DefaultJPEGQuality is used for every derivative.
	DefaultJPEGQuality = 80

	// derivativeExt is the extension of every file the generator writes.
	derivativeExt = ".jpg"
)

// ThumbnailConfig configures a ThumbnailGenerator.
type ThumbnailConfig struct {
	Dir           string
	Size          int
	NormalizeSize int
	Quality       int
	// WriteSidecars records extracted metadata next to normalized sources.
	WriteSidecars bool
}

// DefaultThumbnailConfig returns the default sizes and quality for dir.
func DefaultThumbnailConfig(dir string) ThumbnailConfig {
	return ThumbnailConfig{
		Dir:           dir,
		Size:          DefaultThumbnailSize,
		NormalizeSize: DefaultNormalizeSize,
		Quality:       DefaultJPEGQuality,
		WriteSidecars: true,
	}
}

// ThumbnailGenerator writes bounded JPEG derivatives of source photos.
// Derivatives are keyed by source stem, so a.png and a.jpg map to the same
// a.jpg; callers must not generate both in the same run.
type ThumbnailGenerator struct {
	config ThumbnailConfig
}

// ThumbnailResult describes the derivative for one source.
type ThumbnailResult struct {
	// Name is the derivative file name inside the thumbnail directory.
	Name    string
	Path    string
	Skipped bool
	Width   int
	Height  int
}

// NewThumbnailGenerator creates a generator, creating the thumbnail
// directory if needed.
func NewThumbnailGenerator(config ThumbnailConfig) (*ThumbnailGenerator, error) {
	if config.Size <= 0 {
		config.Size = DefaultThumbnailSize
	}
	if config.NormalizeSize <= 0 {
		config.NormalizeSize = DefaultNormalizeSize
	}
	if config.Quality <= 0 || config.Quality > 100 {
		config.Quality = DefaultJPEGQuality
	}

	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail dir: %w", err)
	}
	logging.Debug("ThumbnailGenerator: dir %s, size %d, quality %d", config.Dir, config.Size, config.Quality)

	return &ThumbnailGenerator{config: config}, nil
}

// Dir returns the thumbnail directory.
func (t *ThumbnailGenerator) Dir() string {
	return t.config.Dir
}

// ThumbnailName returns the derivative file name for a source file name.
func ThumbnailName(source string) string {
	return mediatypes.Stem(source) + derivativeExt
}

// Generate writes the thumbnail for the source named sourceName whose bytes
// are data. If the derivative already exists nothing is decoded or written.
func (t *ThumbnailGenerator) Generate(ctx context.Context, sourceName string, data []byte) (ThumbnailResult, error) {
	name := ThumbnailName(sourceName)
	target := filepath.Join(t.config.Dir, name)
	result := ThumbnailResult{Name: name, Path: target}

	if _, err := filesystem.StatWithRetry(target, filesystem.DefaultRetryConfig()); err == nil {
		logging.Debug("Thumbnail exists, skipping: %s", name)
		metrics.ThumbnailGenerationsTotal.WithLabelValues("thumbnail", "skipped").Inc()
		result.Skipped = true
		return result, nil
	}

	start := time.Now()
	encoded, width, height, err := t.resize(data, t.config.Size)
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("thumbnail", "error").Inc()
		return result, err
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	if err := writeFileAtomic(target, encoded); err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("thumbnail", "error").Inc()
		return result, &WriteError{Path: target, Err: err}
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues("thumbnail", "generated").Inc()
	metrics.ThumbnailGenerationDuration.WithLabelValues("thumbnail").Observe(time.Since(start).Seconds())
	logging.Debug("Thumbnail generated: %s (%dx%d)", name, width, height)

	result.Width, result.Height = width, height
	return result, nil
}

// Remove deletes the derivative for sourceName if it exists.
func (t *ThumbnailGenerator) Remove(sourceName string) error {
	err := os.Remove(filepath.Join(t.config.Dir, ThumbnailName(sourceName)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// resize decodes data, fits it inside size x size and encodes it as JPEG.
func (t *ThumbnailGenerator) resize(data []byte, size int) ([]byte, int, int, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, 0, 0, err
	}

	fitted := fitInside(img, size)
	encoded, err := encodeJPEG(fitted, t.config.Quality)
	if err != nil {
		return nil, 0, 0, err
	}

	b := fitted.Bounds()
	return encoded, b.Dx(), b.Dy(), nil
}

// writeFileAtomic writes data to a hidden temporary file in the target's
// directory and renames it into place, so a derivative is either complete
// or absent.
func writeFileAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), tempPrefix+"*"+filepath.Ext(target))
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
