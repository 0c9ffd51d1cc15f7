package media

import (
	"bytes"
	"fmt"
	"image"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// MaxImagePixels is the largest image (width * height) that will be fully
	// decoded. A 100MP image already needs ~400MB as NRGBA.
	MaxImagePixels = 100_000_000
)

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
	Format string
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(data []byte) (*ImageDimensions, error) {
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	return &ImageDimensions{
		Width:  config.Width,
		Height: config.Height,
		Format: format,
	}, nil
}

// DecodeImage fully decodes data, applying the EXIF orientation. Images
// above MaxImagePixels are refused before any pixel memory is allocated.
func DecodeImage(data []byte) (image.Image, error) {
	dims, err := GetImageDimensions(data)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	if pixels := int64(dims.Width) * int64(dims.Height); pixels > MaxImagePixels {
		return nil, &DecodeError{Err: fmt.Errorf("%dx%d exceeds %d pixel limit", dims.Width, dims.Height, MaxImagePixels)}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return img, nil
}

// fitInside scales img down to fit inside a size x size box, preserving the
// aspect ratio. Images already inside the box are returned unchanged.
func fitInside(img image.Image, size int) image.Image {
	b := img.Bounds()
	if b.Dx() <= size && b.Dy() <= size {
		return img
	}
	return imaging.Fit(img, size, size, imaging.Lanczos)
}

// encodeJPEG encodes img as JPEG at the given quality.
func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
