package media

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"photo-map/internal/logging"
	"photo-map/internal/metrics"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// exifTimeLayout is the layout of EXIF DateTime* tags.
const exifTimeLayout = "2006:01:02 15:04:05"

var errNonFinite = errors.New("coordinate is not a finite number")

// ExtractorConfig configures an Extractor.
type ExtractorConfig struct {
	// Fallback is assigned to photos without usable GPS tags.
	Fallback Coordinate
	// HonorHemisphereRef negates latitudes tagged "S" and longitudes tagged
	// "W". Off by default: coordinates are taken as stored.
	HonorHemisphereRef bool
}

// DefaultExtractorConfig returns the configuration matching the map's defaults.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{Fallback: DefaultFallback}
}

// Extractor derives dimensions, position and capture time from image bytes.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	config ExtractorConfig
}

// NewExtractor creates an Extractor.
func NewExtractor(config ExtractorConfig) *Extractor {
	return &Extractor{config: config}
}

// Fallback returns the coordinate assigned to photos without usable GPS tags.
func (e *Extractor) Fallback() Coordinate {
	return e.config.Fallback
}

// Extract returns the metadata for one image. The only error it returns is
// a *DecodeError; unreadable EXIF is logged and yields the fallback
// coordinate with the decoded dimensions.
func (e *Extractor) Extract(data []byte) (Metadata, error) {
	start := time.Now()
	defer func() {
		metrics.ExtractorDuration.Observe(time.Since(start).Seconds())
	}()

	dims, err := GetImageDimensions(data)
	if err != nil {
		return Metadata{}, &DecodeError{Err: err}
	}

	meta := Metadata{
		Width:     dims.Width,
		Height:    dims.Height,
		Latitude:  e.config.Fallback.Latitude,
		Longitude: e.config.Fallback.Longitude,
	}

	x, err := e.ReadTags(data)
	if err != nil {
		logging.Debug("Extractor: %v, using fallback coordinate", err)
		metrics.ExtractorFallbacksTotal.WithLabelValues("no_exif").Inc()
		metrics.IndexerFileErrors.WithLabelValues("tag").Inc()
		return meta, nil
	}

	meta.TakenAt, meta.CapturedAt = captureTime(x)
	if transposed(x) {
		// Decoding applies the orientation, so report the upright size.
		meta.Width, meta.Height = meta.Height, meta.Width
	}

	lat, lng, err := e.position(x)
	switch {
	case err == nil:
		meta.Latitude, meta.Longitude, meta.HasGPS = lat, lng, true
	case errors.Is(err, exif.TagNotPresentError(exif.GPSLatitude)),
		errors.Is(err, exif.TagNotPresentError(exif.GPSLongitude)):
		metrics.ExtractorFallbacksTotal.WithLabelValues("no_gps").Inc()
	default:
		logging.Debug("Extractor: invalid GPS tags: %v, using fallback coordinate", err)
		metrics.ExtractorFallbacksTotal.WithLabelValues("invalid_gps").Inc()
	}

	return meta, nil
}

// ReadTags decodes the EXIF container. Errors are always *TagError.
func (e *Extractor) ReadTags(data []byte) (*exif.Exif, error) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		if x == nil || exif.IsCriticalError(err) {
			return nil, &TagError{Err: err}
		}
		// Some sub-IFD failed to parse; what was read is still usable.
		logging.Debug("Extractor: partial exif: %v", err)
	}
	return x, nil
}

// position reads GPSLatitude/GPSLongitude as decimal degrees.
func (e *Extractor) position(x *exif.Exif) (lat, lng float64, err error) {
	latTag, err := x.Get(exif.GPSLatitude)
	if err != nil {
		return 0, 0, err
	}
	lngTag, err := x.Get(exif.GPSLongitude)
	if err != nil {
		return 0, 0, err
	}

	if lat, err = degrees(latTag); err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	if lng, err = degrees(lngTag); err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}

	if e.config.HonorHemisphereRef {
		if hemisphere(x, exif.GPSLatitudeRef) == "S" {
			lat = -lat
		}
		if hemisphere(x, exif.GPSLongitudeRef) == "W" {
			lng = -lng
		}
	}

	if math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		return 0, 0, fmt.Errorf("(%v, %v) out of range", lat, lng)
	}
	return lat, lng, nil
}

// degrees converts a degrees[, minutes[, seconds]] rational tag to decimal
// degrees. A zero denominator yields a non-finite value and an error.
func degrees(tag *tiff.Tag) (float64, error) {
	if tag.Count == 0 || tag.Count > 3 {
		return 0, fmt.Errorf("expected 1-3 components, got %d", tag.Count)
	}

	var value float64
	unit := 1.0
	for i := 0; i < int(tag.Count); i++ {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return 0, err
		}
		value += float64(num) / float64(den) / unit
		unit *= 60
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errNonFinite
	}
	return value, nil
}

// transposed reports whether the Orientation tag swaps the stored width
// and height (values 5 to 8).
func transposed(x *exif.Exif) bool {
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return false
	}
	v, err := tag.Int(0)
	if err != nil {
		return false
	}
	return v >= 5 && v <= 8
}

func hemisphere(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(strings.TrimRight(s, "\x00")))
}

// captureTime returns the raw DateTimeOriginal value, or DateTime when the
// original is absent, and its parsed form.
func captureTime(x *exif.Exif) (string, time.Time) {
	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		raw, err := tag.StringVal()
		if err != nil {
			continue
		}
		raw = strings.TrimSpace(strings.TrimRight(raw, "\x00"))
		if raw == "" {
			continue
		}

		t, err := time.ParseInLocation(exifTimeLayout, raw, time.Local)
		if err != nil {
			return raw, time.Time{}
		}
		return raw, t
	}
	return "", time.Time{}
}
