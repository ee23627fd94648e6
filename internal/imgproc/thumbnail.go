package imgproc

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"

	// Register decoders for dimension probing and thumbnail rendering.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	// ThumbnailSize is the fixed output dimension of the square thumbnail.
	ThumbnailSize = 800
	// ThumbnailJPEGQuality is the JPEG quality of rendered thumbnails.
	ThumbnailJPEGQuality = 85
	// TranscodeJPEGQuality is the JPEG quality for HEIC originals
	// re-encoded at ingest.
	TranscodeJPEGQuality = 90
)

// ProbeDimensions reads the pixel dimensions of an encoded image without
// decoding the full bitmap.
func ProbeDimensions(data []byte) (w, h int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("probe image dimensions: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// RenderThumbnail produces the square thumbnail for an encoded original:
// decode, correct EXIF orientation, crop to rect, resize to
// ThumbnailSize×ThumbnailSize, encode as JPEG. The output carries no
// embedded metadata because it is re-encoded from raw pixels; the
// orientation is baked in, so viewers never double-correct.
func RenderThumbnail(data []byte, rect Rect) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode original: %w", err)
	}

	img = ApplyOrientation(img, Orientation(bytes.NewReader(data)))

	// Re-clamp against oriented bounds; orientation 5-8 swaps the axes.
	b := img.Bounds()
	rect = ClampCrop(b.Dx(), b.Dy(), rect.X, rect.Y, rect.Size)

	cropped := imaging.Crop(img, image.Rect(rect.X, rect.Y, rect.X+rect.Size, rect.Y+rect.Size))
	resized := imaging.Resize(cropped, ThumbnailSize, ThumbnailSize, imaging.Lanczos)

	return EncodeJPEG(resized, ThumbnailJPEGQuality)
}

// ApplyOrientation reinterprets the 8 standard EXIF orientation values via
// flip/rotate combinations. Value 1 (and anything out of range) is a no-op.
func ApplyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// EncodeJPEG encodes an image as JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
