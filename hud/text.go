// text.go implements aligned, clipped text printing onto a render
// surface buffer ("HUD rendering"). The default glyph source
// is golang.org/x/image/font/basicfont, a pure-Go bitmap font, so the
// core does not need a font-rasterization library at build time;
// font.Face is swappable for a TrueType-backed one without changing
// this package's API.
package hud

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mediacore/playbackcore/picture"
)

// HAlign is the horizontal alignment hint ("left/center/right").
type HAlign int

const (
	Left HAlign = iota
	HCenter
	Right
)

// VAlign is the vertical alignment hint ("top/center/bottom").
type VAlign int

const (
	Top VAlign = iota
	VCenter
	Bottom
)

// Renderer draws text into a render surface buffer that is assumed to
// be 4-bytes-per-pixel RGBA, clipping against the buffer bounds.
type Renderer struct {
	Face  font.Face
	Color color.Color
}

// NewRenderer constructs a Renderer over the default bitmap font.
func NewRenderer() *Renderer {
	return &Renderer{
		Face:  basicfont.Face7x13,
		Color: color.White,
	}
}

// Print draws text inside bounds, honoring the given alignment hints,
// clipped to bounds (and implicitly to the destination's actual pixel
// extent). It returns the pixel rectangle it touched, which the caller
// should append to the surface's dirty list.
func (r *Renderer) Print(dst []byte, bytesPerLine int, bufHeight int, bounds picture.Rect, text string, h HAlign, v VAlign) picture.Rect {
	img := &image.RGBA{
		Pix:    dst,
		Stride: bytesPerLine,
		Rect:   image.Rect(0, 0, bytesPerLine/4, bufHeight),
	}

	width := font.MeasureString(r.Face, text).Ceil()
	metrics := r.Face.Metrics()
	height := metrics.Height.Ceil()

	x := bounds.X
	switch h {
	case HCenter:
		x = bounds.X + (bounds.W-width)/2
	case Right:
		x = bounds.X + bounds.W - width
	}

	y := bounds.Y + metrics.Ascent.Ceil()
	switch v {
	case VCenter:
		y = bounds.Y + (bounds.H-height)/2 + metrics.Ascent.Ceil()
	case Bottom:
		y = bounds.Y + bounds.H - metrics.Descent.Ceil()
	}

	clip := image.Rect(bounds.X, bounds.Y, bounds.X+bounds.W, bounds.Y+bounds.H).Intersect(img.Bounds())
	clipped := &clippedImage{RGBA: img, clip: clip}

	drawer := &font.Drawer{
		Dst:  clipped,
		Src:  image.NewUniform(r.Color),
		Face: r.Face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)

	return picture.Rect{X: clip.Min.X, Y: clip.Min.Y, W: clip.Dx(), H: clip.Dy()}
}

// clippedImage wraps an *image.RGBA so draw operations outside clip are
// silently dropped, implementing the "clips against surface bounds"
// requirement without allocating a sub-image copy.
type clippedImage struct {
	*image.RGBA
	clip image.Rectangle
}

var _ draw.Image = (*clippedImage)(nil)

func (c *clippedImage) Set(x, y int, col color.Color) {
	if image.Pt(x, y).In(c.clip) {
		c.RGBA.Set(x, y, col)
	}
}
