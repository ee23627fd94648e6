// Package imgproc implements the image pipeline primitives: format
// classification, capture-time extraction, crop geometry, and thumbnail
// rendering. Everything here is side-effect free with respect to the
// inspected files.
package imgproc

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format classifies an uploaded file. The classification is computed once
// from all detection signals; downstream code switches on the enum instead
// of re-inspecting strings.
type Format int

const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatPNG
	FormatGIF
	FormatHEIC
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatGIF:
		return "gif"
	case FormatHEIC:
		return "heic"
	default:
		return "unknown"
	}
}

// Extension is the destination file extension for a stored original of this
// format. HEIC is always transcoded to JPEG, and unknown formats default to
// jpg as well.
func (f Format) Extension() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatGIF:
		return "gif"
	default:
		return "jpg"
	}
}

// heicBrands are the ISO BMFF brands that identify HEIC/HEIF containers.
var heicBrands = map[string]bool{
	"heic": true, "heix": true, "heif": true,
	"hevc": true, "hevx": true, "mif1": true, "msf1": true,
}

// DetectFormat classifies the file at path, using the client-supplied
// filename only as one of several signals. Client metadata is unreliable, so
// HEIC is recognized when ANY of three independent signals says so: the
// filename extension, the sniffed MIME type, or the container's brand tag.
// Inspection failures degrade the failing signal to false; they never error.
func DetectFormat(path, filename string) Format {
	heic := hasHEICExtension(filename)

	if mtype, err := mimetype.DetectFile(path); err == nil {
		if mtype.Is("image/heic") || mtype.Is("image/heif") {
			heic = true
		}
		if !heic {
			switch {
			case mtype.Is("image/jpeg"):
				return FormatJPEG
			case mtype.Is("image/png"):
				return FormatPNG
			case mtype.Is("image/gif"):
				return FormatGIF
			}
		}
	}

	if heic || hasHEICBrand(path) {
		return FormatHEIC
	}
	return FormatUnknown
}

func hasHEICExtension(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	return ext == "heic" || ext == "heif"
}

// hasHEICBrand opens the file and inspects the ISO BMFF ftyp box for a
// HEIC/HEIF brand. Returns false on any read or parse failure.
func hasHEICBrand(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, 32)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return false
	}
	header = header[:n]

	if len(header) < 12 || !bytes.Equal(header[4:8], []byte("ftyp")) {
		return false
	}
	// major brand, then compatible brands in 4-byte cells
	for off := 8; off+4 <= len(header); off += 4 {
		if heicBrands[string(header[off:off+4])] {
			return true
		}
	}
	return false
}
