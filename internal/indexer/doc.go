// Package indexer builds the photo map from the photos directory.
//
// A Pipeline run lists the top level of the photos directory, then
// processes each photo in its own task on a bounded errgroup:
//   - read the file and extract dimensions, position and capture time
//   - optionally normalize the source (rename after capture time, downscale)
//   - make sure the thumbnail exists
//
// Each task writes only its own slot of a pre-sized result slice, so the
// records keep listing order without locking. A task that exceeds the
// per-file timeout is reported as timed out and its late result is dropped.
// Per-file failures are logged and counted; they never fail the run.
//
// Once every task has finished, orphaned thumbnails are removed and the
// records are clustered in listing order.
//
// The Indexer runs the pipeline at startup, on an interval and on demand.
// Runs never overlap: a request made while a run is active is refused with
// ErrRunInProgress. Readers always see the last complete result.
//
// A Watcher can additionally start runs when photos in the directory are
// added, changed or removed.
package indexer
