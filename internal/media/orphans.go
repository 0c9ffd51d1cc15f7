package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"photo-map/internal/filesystem"
	"photo-map/internal/logging"
	"photo-map/internal/mediatypes"
	"photo-map/internal/metrics"
)

// ErrSameDirectory is returned when the thumbnail directory is the photos
// directory; reconciling would delete sources.
var ErrSameDirectory = errors.New("thumbnail directory must differ from photos directory")

// StaleTempAge is how old an atomic-write temporary must be before
// reconciliation treats it as left behind by an interrupted write.
const StaleTempAge = 15 * time.Minute

// tempPrefix starts the name of every temporary written by writeFileAtomic.
const tempPrefix = ".tmp-"

// ReconcileOrphans deletes derivatives in thumbDir whose stem matches no
// photo in photosDir, returning the removed file names. Temporaries older
// than StaleTempAge in either directory are deleted too but not returned.
// It must only run while no thumbnails are being generated.
func ReconcileOrphans(photosDir, thumbDir string) ([]string, error) {
	photosAbs, err := filepath.Abs(photosDir)
	if err != nil {
		return nil, err
	}
	thumbAbs, err := filepath.Abs(thumbDir)
	if err != nil {
		return nil, err
	}
	if photosAbs == thumbAbs {
		return nil, ErrSameDirectory
	}

	retry := filesystem.DefaultRetryConfig()

	sources, err := filesystem.ReadDirWithRetry(photosDir, retry)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	stems := make(map[string]bool, len(sources))
	for _, e := range sources {
		if e.Type().IsRegular() && mediatypes.IsPhotoFile(e.Name()) {
			stems[mediatypes.Stem(e.Name())] = true
		}
	}
	removeStaleTemps(photosDir, sources)

	derived, err := filesystem.ReadDirWithRetry(thumbDir, retry)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list thumbnails: %w", err)
	}
	removeStaleTemps(thumbDir, derived)

	var removed []string
	for _, e := range derived {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || mediatypes.Ext(name) != derivativeExt {
			continue
		}
		if stems[mediatypes.Stem(name)] {
			continue
		}

		if err := os.Remove(filepath.Join(thumbDir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.Warn("Failed to remove orphan thumbnail %s: %v", name, err)
			continue
		}
		logging.Debug("Removed orphan thumbnail %s", name)
		removed = append(removed, name)
	}

	if len(removed) > 0 {
		metrics.ThumbnailOrphansRemoved.Add(float64(len(removed)))
		logging.Info("Removed %d orphan thumbnails", len(removed))
	}
	return removed, nil
}

// removeStaleTemps deletes temporaries among entries of dir that are older
// than StaleTempAge and returns how many were removed.
func removeStaleTemps(dir string, entries []fs.DirEntry) int {
	cutoff := time.Now().Add(-StaleTempAge)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.Warn("Failed to remove stale temporary %s: %v", e.Name(), err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logging.Info("Removed %d stale temporaries from %s", removed, dir)
	}
	return removed
}
