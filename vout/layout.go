// layout.go implements the video output worker's surface sub-rectangle
// computation ("Surface layout"): given a picture's size and
// aspect tag, fit it inside the render surface, centered, letterboxed.

package vout

import "github.com/mediacore/playbackcore/picture"

// roundDown16 rounds v down to the nearest multiple of 16, the
// SIMD-converter-derived constraint kept as a contract even though a
// different implementation could lift it.
func roundDown16(v int) int {
	return (v / 16) * 16
}

// Layout computes the centered, letterboxed destination rectangle for
// a picture of size pw x ph with the given aspect tag inside a surface
// of size sw x sh ("Surface layout"). It first tries a
// horizontal fit; if the resulting height overflows the surface, it
// redoes the computation as a vertical fit.
func Layout(pw, ph int, aspect picture.Aspect, sw, sh int) picture.Rect {
	dw, dh := horizontalFit(pw, ph, aspect, sw)
	if dh > sh {
		dw, dh = verticalFit(pw, ph, aspect, sh)
	}
	x := (sw - dw) / 2
	y := (sh - dh) / 2
	return picture.Rect{X: x, Y: y, W: dw, H: dh}
}

func horizontalFit(pw, ph int, aspect picture.Aspect, sw int) (dw, dh int) {
	dw = roundDown16(min(sw, pw))
	ratio := aspect.Ratio()
	if ratio <= 0 {
		dh = ph * dw / max(pw, 1)
	} else {
		dh = int(float64(dw) / ratio)
	}
	return dw, dh
}

func verticalFit(pw, ph int, aspect picture.Aspect, sh int) (dw, dh int) {
	dh = min(sh, ph)
	ratio := aspect.Ratio()
	if ratio <= 0 {
		dw = pw * dh / max(ph, 1)
	} else {
		dw = int(float64(dh) * ratio)
	}
	dw = roundDown16(dw)
	return dw, dh
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
