// Command thumbgen runs the photo pipeline once from the command line.
//
// Usage:
//
//	thumbgen generate [--normalize] [--json]
//	thumbgen clean
//
// Commands:
//
//	generate  Extract metadata, write missing thumbnails, remove orphaned
//	          thumbnails and print the resulting clusters summary.
//
//	clean     Only remove thumbnails whose source photo no longer exists.
//
// Configuration is read from the same environment variables as the server
// (PHOTOS_DIR, THUMBNAIL_DIR, THUMBNAIL_SIZE, ...). The --photos and
// --thumbnails flags override PHOTOS_DIR and THUMBNAIL_DIR.
package main
