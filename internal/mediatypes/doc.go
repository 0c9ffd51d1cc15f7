// Package mediatypes provides the shared, dependency-free definitions of
// which files the photo pipeline treats as photos.
//
// Only a small set of still-image formats is accepted: jpg, jpeg, png, gif
// and webp. Extension matching is case-insensitive, so IMG_0001.JPG and
// img_0001.jpg are both photos.
//
//	if mediatypes.IsPhotoFile(entry.Name()) {
//	    // schedule extraction and thumbnailing
//	}
//
// Stem returns the file name without its extension. The thumbnail cache is
// keyed by stem, which is what lets a derived asset be matched back to its
// source regardless of the derivative's own extension.
package mediatypes
