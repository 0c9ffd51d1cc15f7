package media

import (
	"fmt"
	"time"
)

// PhotoRecord is one photo as served to the map UI. Records are built once
// per source file per run and never modified afterwards.
type PhotoRecord struct {
	SourcePath    string     `json:"src"`
	ThumbnailPath string     `json:"thumbnail"`
	Latitude      float64    `json:"lat"`
	Longitude     float64    `json:"lng"`
	Width         int        `json:"width"`
	Height        int        `json:"height"`
	Filename      string     `json:"filename,omitempty"`
	CapturedAt    *time.Time `json:"capturedAt,omitempty"`

	// HasGPS is false when Latitude/Longitude are the fallback coordinate.
	HasGPS bool `json:"-"`
}

// Coordinates returns the record's position in degrees.
func (r PhotoRecord) Coordinates() (lat, lng float64) {
	return r.Latitude, r.Longitude
}

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// DefaultFallback is where photos without usable GPS tags are placed: the
// default centre of the map (Taipei 101).
var DefaultFallback = Coordinate{Latitude: 25.0330, Longitude: 121.5654}

// Metadata is what the Extractor derives from one image.
type Metadata struct {
	// Width and Height are upright: swapped when the EXIF orientation
	// rotates the image by a quarter turn.
	Width     int
	Height    int
	Latitude  float64
	Longitude float64
	HasGPS    bool

	// TakenAt is the raw EXIF DateTimeOriginal value ("2006:01:02 15:04:05"),
	// empty when the tag is absent.
	TakenAt string
	// CapturedAt is TakenAt parsed in the local time zone; zero when absent
	// or unparsable.
	CapturedAt time.Time
}

// DecodeError reports that the bytes are not a supported image. Files that
// fail this way are excluded from a run.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TagError reports a missing or malformed EXIF container. Files that fail
// this way are kept with the fallback coordinate.
type TagError struct {
	Err error
}

func (e *TagError) Error() string {
	return fmt.Sprintf("read exif: %v", e.Err)
}

func (e *TagError) Unwrap() error {
	return e.Err
}

// WriteError reports a failure to write a derived asset or a normalized
// source.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
