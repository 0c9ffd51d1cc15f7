package metrics

import (
	"os"
	"time"

	"photo-map/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the size of the most recently published result.
type Stats struct {
	TotalPhotos      int
	TotalClusters    int
	PhotosWithoutGPS int
}

// Collector periodically samples library stats and the derived-asset
// directory into gauges.
type Collector struct {
	statsProvider StatsProvider
	thumbnailDir  string
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector. thumbnailDir may be empty
// to skip sampling the derived-asset directory.
func NewCollector(provider StatsProvider, thumbnailDir string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		thumbnailDir:  thumbnailDir,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider != nil {
		stats := c.statsProvider.GetStats()
		LibraryPhotosTotal.Set(float64(stats.TotalPhotos))
		LibraryClustersTotal.Set(float64(stats.TotalClusters))
		LibraryPhotosWithoutGPS.Set(float64(stats.PhotosWithoutGPS))

		logging.Debug("Metrics collected: photos=%d, clusters=%d, without_gps=%d",
			stats.TotalPhotos, stats.TotalClusters, stats.PhotosWithoutGPS)
	}

	if c.thumbnailDir != "" {
		count, size, err := dirUsage(c.thumbnailDir)
		if err != nil {
			logging.Debug("Metrics: failed to sample thumbnail dir %s: %v", c.thumbnailDir, err)
			return
		}
		ThumbnailCacheCount.Set(float64(count))
		ThumbnailCacheSize.Set(float64(size))
	}
}

// dirUsage returns the number and total size of regular files directly in dir.
func dirUsage(dir string) (count int, size int64, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, err
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		count++
		size += info.Size()
	}
	return count, size, nil
}
