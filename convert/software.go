package convert

import (
	"errors"
	"image"
	"image/draw"

	"github.com/anthonynsimon/bild/transform"

	"github.com/mediacore/playbackcore/picture"
)

// Software is the default Converter: a pure-Go YUV->RGBA conversion
// followed by a resize into the destination sub-rectangle, using
// github.com/anthonynsimon/bild for the resize step.
type Software struct{}

var _ Converter = Software{}

func (Software) Convert(src *picture.Picture, dst []byte, dstBytesPerLine int, dstRect picture.Rect, tables *Tables) error {
	if src == nil {
		return errors.New("convert: nil source picture")
	}
	if tables == nil {
		tables = NewTables(1.0, false)
	}

	rgba, err := yuvToRGBA(src, tables)
	if err != nil {
		return err
	}

	resized := rgba
	if dstRect.W != rgba.Bounds().Dx() || dstRect.H != rgba.Bounds().Dy() {
		resized = toRGBA(transform.Resize(rgba, dstRect.W, dstRect.H, transform.Linear))
	}

	target := &image.RGBA{
		Pix:    dst,
		Stride: dstBytesPerLine,
		Rect:   image.Rect(0, 0, dstBytesPerLine/4, len(dst)/dstBytesPerLine),
	}
	draw.Draw(target, image.Rect(dstRect.X, dstRect.Y, dstRect.X+dstRect.W, dstRect.Y+dstRect.H), resized, image.Point{}, draw.Src)
	return nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

// yuvToRGBA performs a BT.601-style YUV->RGBA conversion of src's
// planes, applying tables's gamma/grayscale adjustment to the luma
// plane. Native-format pictures are not handled here; their Converter
// is supplied by the display-sink adapter that understands them.
func yuvToRGBA(src *picture.Picture, tables *Tables) (*image.RGBA, error) {
	if src.Format == picture.FormatNative {
		return nil, errors.New("convert: native-format pictures require a sink-specific converter")
	}
	if len(src.Planes) < 1 {
		return nil, errors.New("convert: picture has no plane data")
	}

	w, h := int(src.Width), int(src.Height)
	horiz, vert := src.Format.ChromaSubsampling()
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	yPlane := src.Planes[0]
	yPitch := pitchOrWidth(src.Pitch, 0, w)

	var uPlane, vPlane []byte
	var cPitch int
	hasChroma := len(src.Planes) >= 3
	if hasChroma {
		uPlane, vPlane = src.Planes[1], src.Planes[2]
		cPitch = pitchOrWidth(src.Pitch, 1, w/horiz)
	}

	for y := 0; y < h; y++ {
		cy := y / vert
		for x := 0; x < w; x++ {
			yi := y*yPitch + x
			if yi >= len(yPlane) {
				continue
			}
			yVal := tables.yTable[yPlane[yi]]

			var u, v float64 = 128, 128
			if hasChroma {
				cx := x / horiz
				ci := cy*cPitch + cx
				if ci < len(uPlane) {
					u = float64(uPlane[ci])
				}
				if ci < len(vPlane) {
					v = float64(vPlane[ci])
				}
			}

			r, g, b := yuvToRGB(yVal, u, v)
			if tables.Grayscale {
				g, b = r, r
			}
			out.SetRGBA(x, y, rgba(r, g, b))
		}
	}
	return out, nil
}

func pitchOrWidth(pitch []int, idx, fallback int) int {
	if idx < len(pitch) && pitch[idx] > 0 {
		return pitch[idx]
	}
	return fallback
}

func yuvToRGB(y, u, v float64) (r, g, b float64) {
	c := y - 16
	d := u - 128
	e := v - 128

	r = clamp255(1.164*c + 1.596*e)
	g = clamp255(1.164*c - 0.392*d - 0.813*e)
	b = clamp255(1.164*c + 2.017*d)
	return
}

func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func rgba(r, g, b float64) (out struct {
	R, G, B, A uint8
}) {
	out.R, out.G, out.B, out.A = uint8(r), uint8(g), uint8(b), 255
	return
}
