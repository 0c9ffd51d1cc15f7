/*
Package filesystem provides the filesystem reads used by the photo pipeline,
with automatic retry for NFS stale file handle errors.

Photo libraries are frequently served from a NAS. When a file is replaced on
the server while a client holds a cached handle, reads fail with ESTALE even
though a fresh lookup would succeed. The helpers here retry those errors
with capped exponential backoff and pass every other error straight through.

# Usage

	cfg := filesystem.DefaultRetryConfig()

	entries, err := filesystem.ReadDirWithRetry(photosDir, cfg)
	data, err := filesystem.ReadFileWithRetry(filepath.Join(photosDir, name), cfg)

# Metrics

Retry activity is reported to the package-level Observer, labelled with the
volume the path belongs to. Volumes are resolved by longest-prefix match:

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
	    "photos":     cfg.PhotosDir,
	    "thumbnails": cfg.ThumbnailDir,
	}))
	filesystem.SetObserver(metrics.NewFilesystemObserver())

With no observer set, nothing is recorded, which keeps tests free of
Prometheus state.
*/
package filesystem
