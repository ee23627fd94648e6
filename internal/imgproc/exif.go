package imgproc

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/jdeng/goheif"
	"github.com/rwcarlsen/goexif/exif"
)

// TakenAtLayout is the normalized representation of capture timestamps.
const TakenAtLayout = "2006-01-02 15:04:05"

// exifDateLayout is how EXIF encodes date/time values.
const exifDateLayout = "2006:01:02 15:04:05"

// FormatTakenAt renders a capture timestamp in the normalized layout.
func FormatTakenAt(t time.Time) string {
	return t.Format(TakenAtLayout)
}

// dateExtractor is one best-effort strategy for reading a capture timestamp.
// Extractors swallow their own failures; ok is false when this strategy has
// nothing to offer and the next one should run.
type dateExtractor func(path string) (time.Time, bool)

// dateExtractors run in priority order: the standard capture-time tag, the
// alternate embedded tags reachable through deeper container inspection
// (covers HEIC whose metadata the fast path misses), then the file's
// modification time.
var dateExtractors = []dateExtractor{
	standardCaptureTime,
	embeddedAlternateDates,
	fileModTime,
}

// ExtractTakenAt determines the best-effort capture timestamp for the image
// at path. It never fails while the file exists on disk; ok is false only
// when even the modification-time fallback is unavailable.
func ExtractTakenAt(path string) (time.Time, bool) {
	for _, extract := range dateExtractors {
		if t, ok := extract(path); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// standardCaptureTime reads the EXIF DateTimeOriginal tag. Works for most
// JPEGs and some HEIC files whose EXIF block the reader can locate directly.
func standardCaptureTime(path string) (time.Time, bool) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer func() { _ = f.Close() }()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, false
	}
	return exifTagTime(x, exif.DateTimeOriginal)
}

// alternateDateTags are tried in order; the first parseable value wins.
var alternateDateTags = []exif.FieldName{
	exif.DateTimeOriginal,
	exif.DateTimeDigitized,
	exif.DateTime,
}

// embeddedAlternateDates extracts the EXIF payload out of a HEIC/HEIF
// container and tries an ordered list of date-like tags.
func embeddedAlternateDates(path string) (time.Time, bool) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer func() { _ = f.Close() }()

	raw, err := goheif.ExtractExif(f)
	if err != nil || len(raw) == 0 {
		return time.Time{}, false
	}

	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return time.Time{}, false
	}
	for _, tag := range alternateDateTags {
		if t, ok := exifTagTime(x, tag); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func fileModTime(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func exifTagTime(x *exif.Exif, name exif.FieldName) (time.Time, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return time.Time{}, false
	}
	val, err := tag.StringVal()
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(exifDateLayout, val, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Orientation reads the EXIF orientation value (1..8) from an image stream.
// Any failure yields 1, the no-op orientation.
func Orientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}
