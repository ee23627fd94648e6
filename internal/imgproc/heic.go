package imgproc

import (
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/jdeng/goheif"
)

// ErrHEICCodecUnavailable indicates the build lacks HEVC decode support,
// as opposed to the file itself being corrupt.
var ErrHEICCodecUnavailable = errors.New("HEIC codec unavailable")

// DecodeHEIC fully decodes a HEIC/HEIF stream. Decode failures are
// classified: codec problems wrap ErrHEICCodecUnavailable so callers can
// tell "install codec support" apart from "file corrupt".
func DecodeHEIC(r io.Reader) (image.Image, error) {
	img, err := goheif.Decode(r)
	if err != nil {
		if isCodecError(err) {
			return nil, fmt.Errorf("%w: %v", ErrHEICCodecUnavailable, err)
		}
		return nil, fmt.Errorf("decode heic: %w", err)
	}
	if img == nil || img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		return nil, fmt.Errorf("decode heic: decoder returned invalid dimensions")
	}
	return img, nil
}

func isCodecError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "decoder") || strings.Contains(msg, "codec") ||
		strings.Contains(msg, "de265")
}
