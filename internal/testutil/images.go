// Package testutil provides tiny image generators shared by tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
	"time"
)

// TinyJPEG returns an encoded JPEG of the given dimensions with a gradient
// fill so crops of different regions are distinguishable.
func TinyJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, gradient(w, h), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

// TinyPNG returns an encoded PNG of the given dimensions.
func TinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, gradient(w, h)); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

// TinyGIF returns an encoded GIF of the given dimensions.
func TinyGIF(t *testing.T, w, h int) []byte {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	if err := gif.Encode(buf, gradient(w, h), nil); err != nil {
		t.Fatalf("encode test gif: %v", err)
	}
	return buf.Bytes()
}

// FakeHEIC returns bytes that carry a valid ISO BMFF ftyp box with the heic
// brand but no decodable payload. Useful for exercising detection without a
// real HEVC bitstream.
func FakeHEIC(t *testing.T) []byte {
	t.Helper()
	// box size (24) + "ftyp" + major brand "heic" + minor version + one
	// compatible brand
	return []byte{
		0x00, 0x00, 0x00, 0x18,
		'f', 't', 'y', 'p',
		'h', 'e', 'i', 'c',
		0x00, 0x00, 0x00, 0x00,
		'm', 'i', 'f', '1',
		0x00, 0x00, 0x00, 0x00,
	}
}

// ExifJPEG returns an encoded JPEG carrying an APP1 EXIF segment with the
// given orientation and DateTimeOriginal.
func ExifJPEG(t *testing.T, w, h, orientation int, takenAt time.Time) []byte {
	t.Helper()
	base := TinyJPEG(t, w, h)
	seg := exifSegment(orientation, takenAt)
	out := make([]byte, 0, len(base)+len(seg))
	out = append(out, base[:2]...) // SOI
	out = append(out, seg...)
	out = append(out, base[2:]...)
	return out
}

// exifSegment hand-assembles a little-endian TIFF blob wrapped in a JPEG
// APP1 marker. IFD0 holds the orientation and a pointer to an Exif sub-IFD
// holding DateTimeOriginal.
func exifSegment(orientation int, takenAt time.Time) []byte {
	date := takenAt.Format("2006:01:02 15:04:05") + "\x00" // 20 bytes, NUL-terminated

	le := binary.LittleEndian
	tiff := bytes.NewBuffer(nil)
	tiff.WriteString("II")
	writeU16(tiff, le, 42)
	writeU32(tiff, le, 8) // IFD0 starts right after the header

	// IFD0 occupies bytes 8..38, so the Exif sub-IFD lands at 38
	writeU16(tiff, le, 2)
	writeTag(tiff, le, 0x0112, 3, 1, uint32(orientation)) // Orientation, SHORT
	writeTag(tiff, le, 0x8769, 4, 1, 38)                  // Exif IFD pointer, LONG
	writeU32(tiff, le, 0)

	// the Exif sub-IFD occupies bytes 38..56, the date string follows at 56
	writeU16(tiff, le, 1)
	writeTag(tiff, le, 0x9003, 2, uint32(len(date)), 56) // DateTimeOriginal, ASCII
	writeU32(tiff, le, 0)
	tiff.WriteString(date)

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	seg := []byte{0xFF, 0xE1, byte((len(payload) + 2) >> 8), byte(len(payload) + 2)}
	return append(seg, payload...)
}

func writeU16(buf *bytes.Buffer, bo binary.ByteOrder, v uint16) {
	b := make([]byte, 2)
	bo.PutUint16(b, v)
	buf.Write(b)
}

func writeU32(buf *bytes.Buffer, bo binary.ByteOrder, v uint32) {
	b := make([]byte, 4)
	bo.PutUint32(b, v)
	buf.Write(b)
}

func writeTag(buf *bytes.Buffer, bo binary.ByteOrder, tag, typ uint16, count, value uint32) {
	writeU16(buf, bo, tag)
	writeU16(buf, bo, typ)
	writeU32(buf, bo, count)
	writeU32(buf, bo, value)
}

func gradient(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / max(w, 1)),
				G: uint8(y * 255 / max(h, 1)),
				B: 0x40,
				A: 0xff,
			})
		}
	}
	return img
}
