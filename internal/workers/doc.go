/*
Package workers sizes the per-file task pool used by the photo pipeline.

Each photo task mixes disk reads, image decoding and JPEG encoding, so the
default is 1.5 tasks per available CPU. Available CPUs come from GOMAXPROCS,
which Go 1.19+ sets from the container CPU limit; runtime.NumCPU would
report the host's cores and oversubscribe a constrained container.

	limit := workers.ForMixed(16) // at most 16 concurrent photo tasks

The PIPELINE_WORKERS environment variable overrides the computed count,
still capped by the limit:

	PIPELINE_WORKERS=2 ./photo-map
*/
package workers
