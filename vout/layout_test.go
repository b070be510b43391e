package vout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mediacore/playbackcore/picture"
)

// TestLayoutAspectLetterbox covers a 16:9 picture in a 4:3 surface:
// surface 640x480, picture 720x480, aspect 16:9. The expected sub-rectangle is
// 640x360, rounded to a multiple of 16, centered at y=60.
func TestLayoutAspectLetterbox(t *testing.T) {
	rect := Layout(720, 480, picture.Aspect16_9, 640, 480)
	require.Equal(t, picture.Rect{X: 0, Y: 60, W: 640, H: 360}, rect)
}

func TestLayoutVerticalFitFallback(t *testing.T) {
	// A tall, narrow picture with a wide surface must fall back to a
	// vertical fit: the horizontal-fit height would overflow.
	rect := Layout(200, 800, picture.AspectSquare, 640, 480)
	require.LessOrEqual(t, rect.H, 480)
	require.Equal(t, 480, rect.H)
	require.Equal(t, 0, rect.W%16)
}

func TestLayoutSquareAspectUsesPictureRatio(t *testing.T) {
	rect := Layout(320, 240, picture.AspectSquare, 640, 480)
	require.Equal(t, 320, rect.W)
	require.Equal(t, 240, rect.H)
	require.Equal(t, 160, rect.X)
	require.Equal(t, 120, rect.Y)
}

func TestRoundDown16(t *testing.T) {
	require.Equal(t, 640, roundDown16(640))
	require.Equal(t, 624, roundDown16(639))
	require.Equal(t, 0, roundDown16(15))
}
