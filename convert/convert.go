// convert.go defines the colorspace-conversion capability the video
// output worker dispatches per picture format (step 5
// "dispatch the colorspace converter for the picture's format").
//
// Package convert implements the default software colorspace converter
// and YUV conversion table rebuild the worker needs when gamma/grayscale
// change-bitmap bits are acknowledged ("Change bitmap").
package convert

import (
	"math"

	"github.com/mediacore/playbackcore/picture"
)

// Tables holds the gamma/grayscale-adjusted YUV->RGB lookup tables. A
// fresh Tables is built whenever changebitmap.Gamma or
// changebitmap.Grayscale is acknowledged.
type Tables struct {
	Gamma     float64
	Grayscale bool

	yTable [256]float64
}

// NewTables builds conversion tables for the given gamma correction
// (1.0 == no correction) and grayscale flag.
func NewTables(gamma float64, grayscale bool) *Tables {
	t := &Tables{Gamma: gamma, Grayscale: grayscale}
	for i := 0; i < 256; i++ {
		v := float64(i) / 255.0
		if gamma != 1.0 && gamma > 0 {
			v = math.Pow(v, 1.0/gamma)
		}
		t.yTable[i] = v * 255.0
	}
	return t
}

// Converter dispatches colorspace conversion + scaling for one picture
// format into a destination RGBA region (step 5).
type Converter interface {
	// Convert writes src (in its native Format) scaled to dst's bounds
	// into dst, using tables for gamma/grayscale adjustment.
	Convert(src *picture.Picture, dst []byte, dstBytesPerLine int, dstRect picture.Rect, tables *Tables) error
}
