package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"photo-map/internal/cluster"
	"photo-map/internal/media"
)

// writePhoto writes a solid-colour image of the given format to dir/name.
func writePhoto(t *testing.T, dir, name string, width, height int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x % 256), B: 50, A: 255})
		}
	}

	var buf bytes.Buffer
	var err error
	if filepath.Ext(name) == ".png" {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

// writeSidecar places metadata for dir/name the way normalization does.
func writeSidecar(t *testing.T, dir, name string, s media.Sidecar) {
	t.Helper()

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(media.SidecarPath(filepath.Join(dir, name)), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func located(lat, lng float64) media.Sidecar {
	return media.Sidecar{Latitude: lat, Longitude: lng, HasGPS: true}
}

func newTestPipeline(t *testing.T, dir string, configure func(*Config)) *Pipeline {
	t.Helper()

	thumbs, err := media.NewThumbnailGenerator(media.DefaultThumbnailConfig(filepath.Join(dir, "thumbnails")))
	if err != nil {
		t.Fatal(err)
	}

	config := Config{
		PhotosDir:   dir,
		Workers:     4,
		FileTimeout: 30 * time.Second,
		Cluster:     cluster.NewBuilder(cluster.DefaultThreshold),
	}
	if configure != nil {
		configure(&config)
	}
	return NewPipeline(config, media.NewExtractor(media.DefaultExtractorConfig()), thumbs)
}

func sources(clusters [][]media.PhotoRecord) [][]string {
	out := make([][]string, len(clusters))
	for i, c := range clusters {
		for _, r := range c {
			out[i] = append(out[i], r.SourcePath)
		}
	}
	return out
}

func equalSources(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

func TestRunClustersInListingOrder(t *testing.T) {
	dir := t.TempDir()

	writePhoto(t, dir, "a.jpg", 800, 600)
	writeSidecar(t, dir, "a.jpg", located(48.8584, 2.2945))
	writePhoto(t, dir, "b.png", 400, 400)
	writeSidecar(t, dir, "b.png", located(48.8600, 2.2950))
	writePhoto(t, dir, "c.jpg", 100, 50)
	writeSidecar(t, dir, "c.jpg", located(35.6586, 139.7454))
	writePhoto(t, dir, ".hidden.jpg", 10, 10)
	if err := os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := newTestPipeline(t, dir, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := [][]string{{"/photos/a.jpg", "/photos/b.png"}, {"/photos/c.jpg"}}
	if got := sources(result.Clusters); !equalSources(got, want) {
		t.Errorf("clusters = %v, want %v", got, want)
	}

	if result.Stats.Files != 4 || result.Stats.Records != 3 || result.Stats.Dropped != 1 {
		t.Errorf("stats = %+v, want 4 files, 3 records, 1 dropped", result.Stats)
	}
	if result.Stats.ThumbnailsGenerated != 3 {
		t.Errorf("ThumbnailsGenerated = %d, want 3", result.Stats.ThumbnailsGenerated)
	}
	if result.RunID == "" {
		t.Error("RunID is empty")
	}

	b := result.Clusters[0][1]
	if b.ThumbnailPath != "/photos/thumbnails/b.jpg" || b.Filename != "b.png" {
		t.Errorf("record = %+v", b)
	}
	if b.Width != 400 || b.Height != 400 || !b.HasGPS {
		t.Errorf("record = %+v", b)
	}
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		if _, err := os.Stat(filepath.Join(dir, "thumbnails", name)); err != nil {
			t.Errorf("thumbnail %s missing: %v", name, err)
		}
	}
}

func TestRunFallbackCoordinate(t *testing.T) {
	dir := t.TempDir()
	writePhoto(t, dir, "plain.jpg", 64, 64)

	result, err := newTestPipeline(t, dir, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	r := result.Clusters[0][0]
	if r.Latitude != media.DefaultFallback.Latitude || r.Longitude != media.DefaultFallback.Longitude || r.HasGPS {
		t.Errorf("record = %+v, want fallback coordinate", r)
	}
	if result.Stats.WithoutGPS != 1 {
		t.Errorf("WithoutGPS = %d, want 1", result.Stats.WithoutGPS)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.jpg", "c.png"} {
		writePhoto(t, dir, name, 640, 480)
	}
	p := newTestPipeline(t, dir, nil)

	first, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(filepath.Join(dir, "thumbnails", "a.jpg"))
	if err != nil {
		t.Fatal(err)
	}

	second, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if second.Stats.ThumbnailsGenerated != 0 || second.Stats.ThumbnailsSkipped != 3 {
		t.Errorf("second run stats = %+v, want 0 generated, 3 skipped", second.Stats)
	}
	if !equalSources(sources(first.Clusters), sources(second.Clusters)) {
		t.Errorf("clusters changed between runs: %v vs %v", sources(first.Clusters), sources(second.Clusters))
	}

	again, err := os.Stat(filepath.Join(dir, "thumbnails", "a.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if !again.ModTime().Equal(info.ModTime()) {
		t.Error("thumbnail rewritten on second run")
	}
}

func TestRunRemovesOrphans(t *testing.T) {
	dir := t.TempDir()
	writePhoto(t, dir, "a.jpg", 64, 64)
	p := newTestPipeline(t, dir, nil)

	orphan := filepath.Join(dir, "thumbnails", "gone.jpg")
	if err := os.WriteFile(orphan, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Stats.OrphansRemoved != 1 {
		t.Errorf("OrphansRemoved = %d, want 1", result.Stats.OrphansRemoved)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Error("orphan thumbnail still exists")
	}
	if _, err := os.Stat(filepath.Join(dir, "thumbnails", "a.jpg")); err != nil {
		t.Errorf("live thumbnail removed: %v", err)
	}
}

func TestRunSharedStem(t *testing.T) {
	dir := t.TempDir()
	writePhoto(t, dir, "a.jpg", 64, 64)
	writePhoto(t, dir, "a.png", 64, 64)

	result, err := newTestPipeline(t, dir, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	records := result.Clusters[0]
	if len(records) != 2 {
		t.Fatalf("records = %+v, want 2", records)
	}
	if records[0].ThumbnailPath != "/photos/thumbnails/a.jpg" {
		t.Errorf("first record thumbnail = %q", records[0].ThumbnailPath)
	}
	if records[1].ThumbnailPath != records[1].SourcePath {
		t.Errorf("second record thumbnail = %q, want its source", records[1].ThumbnailPath)
	}
}

func TestRunEmptyDirectory(t *testing.T) {
	result, err := newTestPipeline(t, t.TempDir(), nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Clusters == nil || len(result.Clusters) != 0 {
		t.Errorf("Clusters = %#v, want empty non-nil", result.Clusters)
	}

	data, err := json.Marshal(result.Clusters)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("json = %s, want []", data)
	}
}

func TestRunMissingDirectory(t *testing.T) {
	dir := t.TempDir()
	p := newTestPipeline(t, dir, func(c *Config) {
		c.PhotosDir = filepath.Join(dir, "missing")
	})

	if _, err := p.Run(context.Background()); err == nil {
		t.Error("Run() expected error for missing photos directory")
	}
}

func TestRunCanceled(t *testing.T) {
	dir := t.TempDir()
	writePhoto(t, dir, "a.jpg", 64, 64)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestPipeline(t, dir, nil).Run(ctx); err == nil {
		t.Error("Run() expected error for canceled context")
	}
}

func TestRunFileTimeout(t *testing.T) {
	dir := t.TempDir()
	writePhoto(t, dir, "fast.jpg", 32, 32)
	writePhoto(t, dir, "slow.jpg", 32, 32)

	p := newTestPipeline(t, dir, func(c *Config) {
		c.FileTimeout = 50 * time.Millisecond
	})
	release := make(chan struct{})
	defer close(release)

	process := p.process
	p.process = func(ctx context.Context, f sourceFile) fileResult {
		if f.name == "slow.jpg" {
			<-release
			return fileResult{outcome: outcomeDropped}
		}
		return process(ctx, f)
	}

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Stats.Timeouts != 1 || result.Stats.Records != 1 {
		t.Errorf("stats = %+v, want 1 timeout and 1 record", result.Stats)
	}
	if got := sources(result.Clusters); !equalSources(got, [][]string{{"/photos/fast.jpg"}}) {
		t.Errorf("clusters = %v", got)
	}
}

func TestRunNormalize(t *testing.T) {
	dir := t.TempDir()
	writePhoto(t, dir, "IMG_0001.png", 2000, 1000)
	writeSidecar(t, dir, "IMG_0001.png", media.Sidecar{
		Latitude:  35.6586,
		Longitude: 139.7454,
		HasGPS:    true,
		TakenAt:   "2023:01:15 10:30:00",
	})

	p := newTestPipeline(t, dir, func(c *Config) { c.Normalize = true })
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	r := result.Clusters[0][0]
	if r.Filename != "20230115103000.jpg" || r.SourcePath != "/photos/20230115103000.jpg" {
		t.Errorf("record = %+v, want normalized name", r)
	}
	if r.Width != 1024 || r.Height != 512 {
		t.Errorf("dimensions = %dx%d, want 1024x512", r.Width, r.Height)
	}
	if r.ThumbnailPath != "/photos/thumbnails/20230115103000.jpg" {
		t.Errorf("ThumbnailPath = %q", r.ThumbnailPath)
	}
	if result.Stats.Normalized != 1 {
		t.Errorf("Normalized = %d, want 1", result.Stats.Normalized)
	}
	if _, err := os.Stat(filepath.Join(dir, "IMG_0001.png")); !os.IsNotExist(err) {
		t.Error("original source still exists")
	}

	// The normalized file keeps its position through the new sidecar.
	second, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	r = second.Clusters[0][0]
	if !r.HasGPS || r.Latitude != 35.6586 || r.Filename != "20230115103000.jpg" || second.Stats.Normalized != 0 {
		t.Errorf("second run record = %+v, stats = %+v", r, second.Stats)
	}
}

type countingThrottle struct {
	calls atomic.Int32
}

func (c *countingThrottle) Wait(ctx context.Context) error {
	c.calls.Add(1)
	return ctx.Err()
}

func TestRunWaitsOnThrottle(t *testing.T) {
	dir := t.TempDir()
	writePhoto(t, dir, "a.jpg", 16, 16)
	writePhoto(t, dir, "b.jpg", 16, 16)

	throttle := &countingThrottle{}
	p := newTestPipeline(t, dir, func(c *Config) { c.Throttle = throttle })

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := throttle.calls.Load(); got != 2 {
		t.Errorf("throttle consulted %d times, want 2", got)
	}
	if result.Stats.Records != 2 {
		t.Errorf("Records = %d, want 2", result.Stats.Records)
	}
}

func TestProcessFileStopsWhenContextEnds(t *testing.T) {
	dir := t.TempDir()
	writePhoto(t, dir, "late.jpg", 64, 64)
	p := newTestPipeline(t, dir, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.processFile(ctx, sourceFile{name: "late.jpg"})
	if res.outcome != outcomeTimeout {
		t.Errorf("outcome = %v, want timeout", res.outcome)
	}
	if _, err := os.Stat(filepath.Join(dir, "thumbnails", "late.jpg")); !os.IsNotExist(err) {
		t.Error("thumbnail written after the context ended")
	}
}
