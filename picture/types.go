// types.go defines the shared value types of the picture data model.

// Package picture implements the fixed-capacity picture buffer heap: the
// allocation, two-phase READY commit, and refcounted teardown rules of
// this pool.
package picture

import "fmt"

// Format names a picture's pixel layout. Native covers formats owned
// entirely by the display sink (e.g. a hardware surface handle) that
// this package never interprets.
type Format int

const (
	FormatUnknown Format = iota
	FormatYUV420
	FormatYUV422
	FormatYUV444
	FormatNative
)

func (f Format) String() string {
	switch f {
	case FormatYUV420:
		return "YUV420"
	case FormatYUV422:
		return "YUV422"
	case FormatYUV444:
		return "YUV444"
	case FormatNative:
		return "native"
	default:
		return "unknown"
	}
}

// PlaneCount returns how many pixel planes a picture of this format
// owns. Native pictures own a single opaque plane.
func (f Format) PlaneCount() int {
	switch f {
	case FormatYUV420, FormatYUV422, FormatYUV444:
		return 3
	default:
		return 1
	}
}

// ChromaSubsampling reports the horizontal/vertical chroma divisors
// relative to the luma plane, used to size the chroma planes.
func (f Format) ChromaSubsampling() (horiz, vert int) {
	switch f {
	case FormatYUV420:
		return 2, 2
	case FormatYUV422:
		return 2, 1
	case FormatYUV444:
		return 1, 1
	default:
		return 1, 1
	}
}

// Aspect tags the picture's display aspect ratio.
type Aspect int

const (
	AspectSquare Aspect = iota
	Aspect4_3
	Aspect16_9
	Aspect2_21_1
)

// Ratio returns the tag's width/height ratio relative to the picture's
// own square-pixel geometry. Square means "use the picture's own
// width/height ratio unmodified".
func (a Aspect) Ratio() float64 {
	switch a {
	case Aspect4_3:
		return 4.0 / 3.0
	case Aspect16_9:
		return 16.0 / 9.0
	case Aspect2_21_1:
		return 2.21
	default:
		return 0 // caller must fall back to Width/Height
	}
}

func (a Aspect) String() string {
	switch a {
	case Aspect4_3:
		return "4:3"
	case Aspect16_9:
		return "16:9"
	case Aspect2_21_1:
		return "2.21:1"
	default:
		return "square"
	}
}

// Rect is an integer display-crop / sub-rectangle.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.W, r.H, r.X, r.Y)
}

// Status is a picture cell's lifecycle state.
type Status int

const (
	StatusFree Status = iota
	StatusReserved
	StatusReservedDated
	StatusReservedDisp
	StatusReady
	StatusDisplayed
	StatusDestroyed
)

func (s Status) String() string {
	switch s {
	case StatusFree:
		return "FREE"
	case StatusReserved:
		return "RESERVED"
	case StatusReservedDated:
		return "RESERVED_DATED"
	case StatusReservedDisp:
		return "RESERVED_DISP"
	case StatusReady:
		return "READY"
	case StatusDisplayed:
		return "DISPLAYED"
	case StatusDestroyed:
		return "DESTROYED"
	default:
		return "INVALID"
	}
}
