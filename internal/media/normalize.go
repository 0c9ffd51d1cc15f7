package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"photo-map/internal/logging"
	"photo-map/internal/mediatypes"
	"photo-map/internal/metrics"
)

// maxNameSuffix bounds the collision counter when claiming a canonical name.
const maxNameSuffix = 1000

// SidecarExt is the extension of metadata sidecar files.
const SidecarExt = ".json"

// NormalizeResult describes a source after normalization. When Renamed is
// false the source was left untouched and Data is the original bytes.
type NormalizeResult struct {
	Name    string
	Path    string
	Data    []byte
	Width   int
	Height  int
	Renamed bool
}

// Sidecar keeps the metadata of a normalized source. Re-encoding drops the
// EXIF container, so later runs read position and capture time from here.
type Sidecar struct {
	Source     string     `json:"source"`
	Latitude   float64    `json:"lat"`
	Longitude  float64    `json:"lng"`
	HasGPS     bool       `json:"hasGPS"`
	TakenAt    string     `json:"takenAt,omitempty"`
	CapturedAt *time.Time `json:"capturedAt,omitempty"`
}

// CanonicalName returns the capture-time file stem for a raw EXIF date,
// "2023:01:15 10:30:00" becoming "20230115103000". Characters that are not
// safe in a file name are dropped.
func CanonicalName(takenAt string) string {
	var b strings.Builder
	for _, r := range takenAt {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isCanonical reports whether name is already canonical (optionally with a
// collision suffix) and stored as JPEG.
func isCanonical(name, canonical string) bool {
	ext := mediatypes.Ext(name)
	if ext != ".jpg" && ext != ".jpeg" {
		return false
	}

	stem := mediatypes.Stem(name)
	if stem == canonical {
		return true
	}
	suffix, ok := strings.CutPrefix(stem, canonical+"-")
	if !ok || suffix == "" {
		return false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SidecarPath returns the sidecar path for the source at path.
func SidecarPath(path string) string {
	return filepath.Join(filepath.Dir(path), mediatypes.Stem(path)+SidecarExt)
}

// ReadSidecar loads the sidecar for the source at path. A missing or
// unreadable sidecar reports false.
func ReadSidecar(path string) (Sidecar, bool) {
	data, err := os.ReadFile(SidecarPath(path))
	if err != nil {
		return Sidecar{}, false
	}

	var s Sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		logging.Warn("Ignoring malformed sidecar %s: %v", SidecarPath(path), err)
		return Sidecar{}, false
	}
	return s, true
}

// Apply fills position and capture time that meta lacks from the sidecar.
func (s Sidecar) Apply(meta *Metadata) {
	if !meta.HasGPS && s.HasGPS {
		meta.Latitude, meta.Longitude, meta.HasGPS = s.Latitude, s.Longitude, true
	}
	if meta.TakenAt == "" && s.TakenAt != "" {
		meta.TakenAt = s.TakenAt
		if s.CapturedAt != nil {
			meta.CapturedAt = *s.CapturedAt
		}
	}
}

func newSidecar(source string, meta Metadata) Sidecar {
	s := Sidecar{
		Source:    source,
		Latitude:  meta.Latitude,
		Longitude: meta.Longitude,
		HasGPS:    meta.HasGPS,
		TakenAt:   meta.TakenAt,
	}
	if !meta.CapturedAt.IsZero() {
		t := meta.CapturedAt
		s.CapturedAt = &t
	}
	return s
}

// Normalize rewrites the source at path as a JPEG bounded by the normalize
// size and named after its capture time. Sources without a capture time, or
// already in canonical form, are returned untouched. On success the
// original file is removed.
func (t *ThumbnailGenerator) Normalize(ctx context.Context, path string, data []byte, meta Metadata) (NormalizeResult, error) {
	name := filepath.Base(path)
	result := NormalizeResult{
		Name:   name,
		Path:   path,
		Data:   data,
		Width:  meta.Width,
		Height: meta.Height,
	}

	canonical := CanonicalName(meta.TakenAt)
	if canonical == "" || isCanonical(name, canonical) {
		return result, nil
	}

	start := time.Now()
	encoded, width, height, err := t.resize(data, t.config.NormalizeSize)
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("normalize", "error").Inc()
		return result, err
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	dir := filepath.Dir(path)
	target, err := claimName(dir, canonical, encoded)
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("normalize", "error").Inc()
		return result, err
	}

	if t.config.WriteSidecars {
		sidecar, err := json.MarshalIndent(newSidecar(name, meta), "", "  ")
		if err == nil {
			err = writeFileAtomic(SidecarPath(target), sidecar)
		}
		if err != nil {
			logging.Warn("Failed to write sidecar for %s: %v", filepath.Base(target), err)
		}
	}

	if err := os.Remove(path); err != nil {
		// Keep exactly one copy: the next run would otherwise normalize the
		// original again under a suffixed name.
		os.Remove(target)
		os.Remove(SidecarPath(target))
		metrics.ThumbnailGenerationsTotal.WithLabelValues("normalize", "error").Inc()
		return result, &WriteError{Path: path, Err: err}
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues("normalize", "generated").Inc()
	metrics.ThumbnailGenerationDuration.WithLabelValues("normalize").Observe(time.Since(start).Seconds())
	metrics.SourcesNormalizedTotal.Inc()
	logging.Info("Normalized %s -> %s (%dx%d)", name, filepath.Base(target), width, height)

	return NormalizeResult{
		Name:    filepath.Base(target),
		Path:    target,
		Data:    encoded,
		Width:   width,
		Height:  height,
		Renamed: true,
	}, nil
}

// claimName writes data to the first free "<stem>[-N].jpg" in dir. A name
// counts as taken when any file shares its stem, so a derivative key is
// never shared with another source.
func claimName(dir, stem string, data []byte) (string, error) {
	for i := 0; i < maxNameSuffix; i++ {
		candidate := stem
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d", stem, i)
		}

		if taken, err := stemTaken(dir, candidate); err != nil {
			return "", err
		} else if taken {
			continue
		}

		target := filepath.Join(dir, candidate+derivativeExt)
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", &WriteError{Path: target, Err: err}
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if werr == nil {
			werr = cerr
		}
		if werr != nil {
			os.Remove(target)
			return "", &WriteError{Path: target, Err: werr}
		}
		return target, nil
	}
	return "", &WriteError{Path: filepath.Join(dir, stem+derivativeExt), Err: fmt.Errorf("no free name after %d attempts", maxNameSuffix)}
}

func stemTaken(dir, stem string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if mediatypes.Stem(e.Name()) == stem {
			return true, nil
		}
	}
	return false, nil
}
