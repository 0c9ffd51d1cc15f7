package startup

import (
	"fmt"

	"photo-map/internal/cluster"
	"photo-map/internal/filesystem"
	"photo-map/internal/indexer"
	"photo-map/internal/media"
)

// BuildPipeline wires the extractor, thumbnail generator and clustering
// settings of config into a pipeline. throttle may be nil.
func BuildPipeline(config *Config, throttle indexer.Throttle) (*indexer.Pipeline, error) {
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"photos":     config.PhotosDir,
		"thumbnails": config.ThumbnailDir,
	}))

	extractor := media.NewExtractor(media.ExtractorConfig{
		Fallback:           config.Fallback,
		HonorHemisphereRef: config.HonorHemisphereRef,
	})

	thumbs, err := media.NewThumbnailGenerator(media.ThumbnailConfig{
		Dir:           config.ThumbnailDir,
		Size:          config.ThumbnailSize,
		NormalizeSize: config.NormalizeSize,
		Quality:       config.JPEGQuality,
		WriteSidecars: config.WriteSidecars,
	})
	if err != nil {
		return nil, fmt.Errorf("thumbnail generator: %w", err)
	}

	return indexer.NewPipeline(indexer.Config{
		PhotosDir:    config.PhotosDir,
		SourceURL:    PhotosURL,
		ThumbnailURL: config.ThumbnailURL,
		Workers:      config.Workers,
		FileTimeout:  config.FileTimeout,
		Normalize:    config.NormalizeSources,
		Cluster: cluster.Builder{
			Threshold: config.ClusterThreshold,
			Mode:      config.ClusterMode,
		},
		Throttle: throttle,
	}, extractor, thumbs), nil
}
