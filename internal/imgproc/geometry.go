package imgproc

import "fmt"

// Anchor is a named crop bias resolved against the long axis of a non-square
// image. Only the long axis is steerable; off-center asymmetric crops go
// through explicit coordinates instead.
type Anchor string

const (
	AnchorCenter Anchor = "center"
	AnchorTop    Anchor = "top"
	AnchorBottom Anchor = "bottom"
	AnchorLeft   Anchor = "left"
	AnchorRight  Anchor = "right"
)

// ParseAnchor validates an anchor value. Empty means center.
func ParseAnchor(s string) (Anchor, error) {
	switch Anchor(s) {
	case "":
		return AnchorCenter, nil
	case AnchorCenter, AnchorTop, AnchorBottom, AnchorLeft, AnchorRight:
		return Anchor(s), nil
	default:
		return "", fmt.Errorf("invalid anchor %q", s)
	}
}

// Rect is a square source rectangle in original-image coordinates.
type Rect struct {
	X    int
	Y    int
	Size int
}

// ResolveAnchor computes the square crop rectangle for an image of w×h
// biased by the given anchor. The square side is min(w, h); the anchor can
// only steer along the long axis, the short axis is fully occupied.
func ResolveAnchor(w, h int, anchor Anchor) Rect {
	size := w
	if h < w {
		size = h
	}

	x := (w - size) / 2
	y := (h - size) / 2

	switch {
	case w > h: // landscape: left/right steer, top/bottom are no-ops
		switch anchor {
		case AnchorLeft:
			x = 0
		case AnchorRight:
			x = w - size
		}
	case h > w: // portrait: top/bottom steer, left/right are no-ops
		switch anchor {
		case AnchorTop:
			y = 0
		case AnchorBottom:
			y = h - size
		}
	}

	return Rect{X: x, Y: y, Size: size}
}

// ClampCrop clamps caller-supplied crop coordinates to the bounds of a w×h
// image. Oversized or out-of-range requests are silently shrunk, never
// rejected: the resulting rectangle always fits inside the image.
func ClampCrop(w, h, x, y, size int) Rect {
	if size < 1 {
		size = 1
	}
	x = clamp(x, 0, w-1)
	y = clamp(y, 0, h-1)
	if max := w - x; size > max {
		size = max
	}
	if max := h - y; size > max {
		size = max
	}
	return Rect{X: x, Y: y, Size: size}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
