package imgproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnchor(t *testing.T) {
	a, err := ParseAnchor("")
	require.NoError(t, err)
	assert.Equal(t, AnchorCenter, a)

	for _, valid := range []string{"center", "top", "bottom", "left", "right"} {
		a, err := ParseAnchor(valid)
		require.NoError(t, err)
		assert.Equal(t, Anchor(valid), a)
	}

	_, err = ParseAnchor("middle")
	assert.Error(t, err)
}

func TestResolveAnchorLandscape(t *testing.T) {
	tests := []struct {
		anchor Anchor
		want   Rect
	}{
		{AnchorCenter, Rect{X: 200, Y: 0, Size: 800}},
		{AnchorLeft, Rect{X: 0, Y: 0, Size: 800}},
		{AnchorRight, Rect{X: 400, Y: 0, Size: 800}},
		// top/bottom cannot steer a landscape image
		{AnchorTop, Rect{X: 200, Y: 0, Size: 800}},
		{AnchorBottom, Rect{X: 200, Y: 0, Size: 800}},
	}
	for _, tt := range tests {
		t.Run(string(tt.anchor), func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveAnchor(1200, 800, tt.anchor))
		})
	}
}

func TestResolveAnchorPortrait(t *testing.T) {
	tests := []struct {
		anchor Anchor
		want   Rect
	}{
		{AnchorCenter, Rect{X: 0, Y: 200, Size: 600}},
		{AnchorTop, Rect{X: 0, Y: 0, Size: 600}},
		{AnchorBottom, Rect{X: 0, Y: 400, Size: 600}},
		{AnchorLeft, Rect{X: 0, Y: 200, Size: 600}},
		{AnchorRight, Rect{X: 0, Y: 200, Size: 600}},
	}
	for _, tt := range tests {
		t.Run(string(tt.anchor), func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveAnchor(600, 1000, tt.anchor))
		})
	}
}

func TestResolveAnchorSquare(t *testing.T) {
	// every anchor is a no-op on a square image
	for _, a := range []Anchor{AnchorCenter, AnchorTop, AnchorBottom, AnchorLeft, AnchorRight} {
		assert.Equal(t, Rect{X: 0, Y: 0, Size: 500}, ResolveAnchor(500, 500, a))
	}
}

func TestResolveAnchorOddRemainder(t *testing.T) {
	// 1001x800: center x is floor(201/2) = 100
	assert.Equal(t, Rect{X: 100, Y: 0, Size: 800}, ResolveAnchor(1001, 800, AnchorCenter))
}

func TestClampCrop(t *testing.T) {
	tests := []struct {
		name          string
		w, h          int
		x, y, size    int
		want          Rect
	}{
		{"in bounds", 1200, 800, 100, 50, 400, Rect{100, 50, 400}},
		{"negative origin", 1200, 800, -20, -5, 300, Rect{0, 0, 300}},
		{"origin past edge", 1200, 800, 5000, 5000, 300, Rect{1199, 799, 1}},
		{"oversized shrinks to width", 1200, 800, 1000, 0, 600, Rect{1000, 0, 200}},
		{"oversized shrinks to height", 1200, 800, 0, 700, 600, Rect{0, 700, 100}},
		{"zero size floors to one", 1200, 800, 10, 10, 0, Rect{10, 10, 1}},
		{"negative size floors to one", 1200, 800, 10, 10, -50, Rect{10, 10, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampCrop(tt.w, tt.h, tt.x, tt.y, tt.size)
			assert.Equal(t, tt.want, got)
			// the invariant: the result always fits inside the image
			assert.GreaterOrEqual(t, got.X, 0)
			assert.GreaterOrEqual(t, got.Y, 0)
			assert.GreaterOrEqual(t, got.Size, 1)
			assert.LessOrEqual(t, got.X+got.Size, tt.w)
			assert.LessOrEqual(t, got.Y+got.Size, tt.h)
		})
	}
}
