package media

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"testing"
)

// encodeTestImage returns a gradient image of the given size encoded as
// jpeg or png.
func encodeTestImage(t *testing.T, width, height int, format string) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: 128,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg", "jpg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(&buf, img)
	default:
		t.Fatalf("Unsupported test image format: %s", format)
	}
	if err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// createTestImage writes a test image to path and returns its bytes.
func createTestImage(t *testing.T, path string, width, height int, format string) []byte {
	t.Helper()

	data := encodeTestImage(t, width, height, format)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write test image: %v", err)
	}
	return data
}

type rational struct {
	num, den uint32
}

// testEXIF describes the tags buildEXIF writes. Empty or nil fields are
// left out of the container.
type testEXIF struct {
	// Orientation is written to IFD0 when non-zero.
	Orientation uint16
	TakenAt     string
	Lat         []rational
	Lng         []rational
	LatRef      string
	LngRef      string
}

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

const (
	tiffASCII    = 2
	tiffShort    = 3
	tiffLong     = 4
	tiffRational = 5
)

func asciiEntry(tag uint16, s string) ifdEntry {
	data := append([]byte(s), 0)
	return ifdEntry{tag: tag, typ: tiffASCII, count: uint32(len(data)), data: data}
}

func rationalEntry(tag uint16, vals []rational) ifdEntry {
	data := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(data[8*i:], v.num)
		binary.LittleEndian.PutUint32(data[8*i+4:], v.den)
	}
	return ifdEntry{tag: tag, typ: tiffRational, count: uint32(len(vals)), data: data}
}

// ifdSize is the encoded size of a directory including its out-of-line values.
func ifdSize(entries []ifdEntry) int {
	n := 2 + 12*len(entries) + 4
	for _, e := range entries {
		if len(e.data) > 4 {
			n += len(e.data) + len(e.data)%2
		}
	}
	return n
}

// writeIFD appends a little-endian directory to buf. Offsets are relative
// to the start of buf, which holds the TIFF header.
func writeIFD(buf *bytes.Buffer, entries []ifdEntry) {
	le := binary.LittleEndian
	start := buf.Len()
	dataOff := start + 2 + 12*len(entries) + 4

	dir := make([]byte, 2+12*len(entries)+4)
	le.PutUint16(dir, uint16(len(entries)))

	var values []byte
	for i, e := range entries {
		p := dir[2+12*i:]
		le.PutUint16(p, e.tag)
		le.PutUint16(p[2:], e.typ)
		le.PutUint32(p[4:], e.count)
		if len(e.data) <= 4 {
			copy(p[8:12], e.data)
			continue
		}
		le.PutUint32(p[8:], uint32(dataOff+len(values)))
		values = append(values, e.data...)
		if len(values)%2 == 1 {
			values = append(values, 0)
		}
	}

	buf.Write(dir)
	buf.Write(values)
}

// buildEXIF returns a JPEG APP1 segment carrying the given tags.
func buildEXIF(f testEXIF) []byte {
	le := binary.LittleEndian
	u32 := func(v uint32) []byte {
		b := make([]byte, 4)
		le.PutUint32(b, v)
		return b
	}

	var exifIFD, gpsIFD []ifdEntry
	if f.TakenAt != "" {
		exifIFD = append(exifIFD, asciiEntry(0x9003, f.TakenAt))
	}
	if f.LatRef != "" {
		gpsIFD = append(gpsIFD, asciiEntry(0x0001, f.LatRef))
	}
	if f.Lat != nil {
		gpsIFD = append(gpsIFD, rationalEntry(0x0002, f.Lat))
	}
	if f.LngRef != "" {
		gpsIFD = append(gpsIFD, asciiEntry(0x0003, f.LngRef))
	}
	if f.Lng != nil {
		gpsIFD = append(gpsIFD, rationalEntry(0x0004, f.Lng))
	}

	ifd0 := []ifdEntry{asciiEntry(0x010f, "photo-map")}
	if f.Orientation != 0 {
		v := make([]byte, 2)
		le.PutUint16(v, f.Orientation)
		ifd0 = append(ifd0, ifdEntry{tag: 0x0112, typ: tiffShort, count: 1, data: v})
	}
	if exifIFD != nil {
		ifd0 = append(ifd0, ifdEntry{tag: 0x8769, typ: tiffLong, count: 1})
	}
	if gpsIFD != nil {
		ifd0 = append(ifd0, ifdEntry{tag: 0x8825, typ: tiffLong, count: 1})
	}

	off := 8 + ifdSize(ifd0)
	for i := range ifd0 {
		switch ifd0[i].tag {
		case 0x8769:
			ifd0[i].data = u32(uint32(off))
			off += ifdSize(exifIFD)
		case 0x8825:
			ifd0[i].data = u32(uint32(off))
			off += ifdSize(gpsIFD)
		}
	}

	var tiff bytes.Buffer
	tiff.WriteString("II")
	tiff.Write([]byte{42, 0})
	tiff.Write(u32(8))
	writeIFD(&tiff, ifd0)
	if exifIFD != nil {
		writeIFD(&tiff, exifIFD)
	}
	if gpsIFD != nil {
		writeIFD(&tiff, gpsIFD)
	}

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	return append(seg, payload...)
}

// withEXIF inserts an APP1 segment right after the JPEG SOI marker.
func withEXIF(jpegData, segment []byte) []byte {
	out := make([]byte, 0, len(jpegData)+len(segment))
	out = append(out, jpegData[:2]...)
	out = append(out, segment...)
	return append(out, jpegData[2:]...)
}

// dms builds a degrees/minutes/seconds rational triple; seconds are in
// hundredths.
func dms(deg, minutes, centisec uint32) []rational {
	return []rational{{deg, 1}, {minutes, 1}, {centisec, 100}}
}
