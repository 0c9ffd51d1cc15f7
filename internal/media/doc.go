// Package media turns photo files into the records the map is built from.
//
// It has three parts:
//   - Extractor: probes image dimensions and reads EXIF GPS and capture time,
//     falling back to a configured coordinate when tags are missing or unusable.
//   - ThumbnailGenerator: writes bounded JPEG derivatives that are skipped
//     when already present, and optionally normalizes sources by renaming
//     them after their capture time.
//   - ReconcileOrphans: deletes derivatives whose source no longer exists.
//
// Per-file failures are reported as *DecodeError, *TagError or *WriteError
// so callers can decide whether the file is dropped or kept with defaults.
package media
