package media

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestExtractFallback(t *testing.T) {
	plain := encodeTestImage(t, 64, 48, "jpeg")

	tests := []struct {
		name string
		data []byte
	}{
		{name: "JPEG without EXIF", data: plain},
		{name: "PNG", data: encodeTestImage(t, 64, 48, "png")},
		{name: "EXIF without GPS", data: withEXIF(plain, buildEXIF(testEXIF{TakenAt: "2023:01:15 10:30:00"}))},
		{name: "latitude only", data: withEXIF(plain, buildEXIF(testEXIF{Lat: dms(37, 46, 2964)}))},
		{name: "zero denominator", data: withEXIF(plain, buildEXIF(testEXIF{
			Lat: []rational{{37, 0}, {46, 1}, {0, 1}},
			Lng: dms(122, 25, 0),
		}))},
		{name: "latitude out of range", data: withEXIF(plain, buildEXIF(testEXIF{
			Lat: dms(95, 0, 0),
			Lng: dms(122, 25, 0),
		}))},
		{name: "too many components", data: withEXIF(plain, buildEXIF(testEXIF{
			Lat: []rational{{1, 1}, {1, 1}, {1, 1}, {1, 1}},
			Lng: dms(122, 25, 0),
		}))},
	}

	e := NewExtractor(DefaultExtractorConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := e.Extract(tt.data)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if meta.Latitude != DefaultFallback.Latitude || meta.Longitude != DefaultFallback.Longitude {
				t.Errorf("coordinates = (%v, %v), want fallback %v", meta.Latitude, meta.Longitude, DefaultFallback)
			}
			if meta.HasGPS {
				t.Error("HasGPS = true, want false")
			}
			if meta.Width != 64 || meta.Height != 48 {
				t.Errorf("dimensions = %dx%d, want 64x48", meta.Width, meta.Height)
			}
		})
	}
}

func TestExtractGPS(t *testing.T) {
	plain := encodeTestImage(t, 32, 32, "jpeg")

	tests := []struct {
		name    string
		exif    testEXIF
		honor   bool
		wantLat float64
		wantLng float64
	}{
		{
			name:    "degrees minutes seconds",
			exif:    testEXIF{Lat: dms(37, 46, 2964), Lng: dms(122, 25, 984)},
			wantLat: 37 + 46.0/60 + 29.64/3600,
			wantLng: 122 + 25.0/60 + 9.84/3600,
		},
		{
			name:    "single decimal component",
			exif:    testEXIF{Lat: []rational{{250330, 10000}}, Lng: []rational{{1215654, 10000}}},
			wantLat: 25.0330,
			wantLng: 121.5654,
		},
		{
			name:    "hemisphere refs ignored by default",
			exif:    testEXIF{Lat: dms(33, 52, 0), LatRef: "S", Lng: dms(151, 12, 0), LngRef: "E"},
			wantLat: 33 + 52.0/60,
			wantLng: 151 + 12.0/60,
		},
		{
			name:    "hemisphere refs honored",
			exif:    testEXIF{Lat: dms(33, 52, 0), LatRef: "S", Lng: dms(70, 40, 0), LngRef: "W"},
			honor:   true,
			wantLat: -(33 + 52.0/60),
			wantLng: -(70 + 40.0/60),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultExtractorConfig()
			config.HonorHemisphereRef = tt.honor
			e := NewExtractor(config)

			meta, err := e.Extract(withEXIF(plain, buildEXIF(tt.exif)))
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !meta.HasGPS {
				t.Fatal("HasGPS = false, want true")
			}
			if math.Abs(meta.Latitude-tt.wantLat) > 1e-9 {
				t.Errorf("Latitude = %v, want %v", meta.Latitude, tt.wantLat)
			}
			if math.Abs(meta.Longitude-tt.wantLng) > 1e-9 {
				t.Errorf("Longitude = %v, want %v", meta.Longitude, tt.wantLng)
			}
		})
	}
}

func TestExtractCaptureTime(t *testing.T) {
	data := withEXIF(encodeTestImage(t, 16, 16, "jpeg"), buildEXIF(testEXIF{
		TakenAt: "2023:01:15 10:30:00",
		Lat:     dms(25, 2, 0),
		Lng:     dms(121, 33, 0),
	}))

	meta, err := NewExtractor(DefaultExtractorConfig()).Extract(data)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if meta.TakenAt != "2023:01:15 10:30:00" {
		t.Errorf("TakenAt = %q", meta.TakenAt)
	}
	want := time.Date(2023, 1, 15, 10, 30, 0, 0, time.Local)
	if !meta.CapturedAt.Equal(want) {
		t.Errorf("CapturedAt = %v, want %v", meta.CapturedAt, want)
	}
}

func TestExtractOrientation(t *testing.T) {
	plain := encodeTestImage(t, 400, 200, "jpeg")

	tests := []struct {
		name         string
		orientation  uint16
		wantW, wantH int
	}{
		{name: "no tag", wantW: 400, wantH: 200},
		{name: "upright", orientation: 1, wantW: 400, wantH: 200},
		{name: "upside down", orientation: 3, wantW: 400, wantH: 200},
		{name: "rotated 90 clockwise", orientation: 6, wantW: 200, wantH: 400},
		{name: "rotated 90 counter-clockwise", orientation: 8, wantW: 200, wantH: 400},
		{name: "transposed", orientation: 5, wantW: 200, wantH: 400},
	}

	e := NewExtractor(DefaultExtractorConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := withEXIF(plain, buildEXIF(testEXIF{Orientation: tt.orientation, TakenAt: "2023:01:15 10:30:00"}))

			meta, err := e.Extract(data)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if meta.Width != tt.wantW || meta.Height != tt.wantH {
				t.Errorf("dimensions = %dx%d, want %dx%d", meta.Width, meta.Height, tt.wantW, tt.wantH)
			}

			// The thumbnail is decoded upright and must fit inside the
			// reported source size on both edges.
			thumb, err := newTestGenerator(t).Generate(context.Background(), "rotated.jpg", data)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if thumb.Width > meta.Width || thumb.Height > meta.Height {
				t.Errorf("thumbnail %dx%d exceeds source %dx%d", thumb.Width, thumb.Height, meta.Width, meta.Height)
			}
			if (thumb.Width > thumb.Height) != (meta.Width > meta.Height) {
				t.Errorf("thumbnail %dx%d and source %dx%d disagree on orientation", thumb.Width, thumb.Height, meta.Width, meta.Height)
			}
		})
	}
}

func TestExtractCustomFallback(t *testing.T) {
	fallback := Coordinate{Latitude: 48.8584, Longitude: 2.2945}
	e := NewExtractor(ExtractorConfig{Fallback: fallback})

	meta, err := e.Extract(encodeTestImage(t, 8, 8, "png"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if meta.Latitude != fallback.Latitude || meta.Longitude != fallback.Longitude {
		t.Errorf("coordinates = (%v, %v), want %v", meta.Latitude, meta.Longitude, fallback)
	}
	if e.Fallback() != fallback {
		t.Errorf("Fallback() = %v, want %v", e.Fallback(), fallback)
	}
}

func TestExtractDecodeError(t *testing.T) {
	_, err := NewExtractor(DefaultExtractorConfig()).Extract([]byte("definitely not an image"))

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Extract() error = %v, want *DecodeError", err)
	}
}

func TestReadTagsWithoutEXIF(t *testing.T) {
	_, err := NewExtractor(DefaultExtractorConfig()).ReadTags(encodeTestImage(t, 8, 8, "jpeg"))

	var tagErr *TagError
	if !errors.As(err, &tagErr) {
		t.Fatalf("ReadTags() error = %v, want *TagError", err)
	}
}
