// adapter.go defines the narrow clock-conversion contract used by the
// decoder owner.

// Package clock converts stream timestamps into wall-clock display
// dates under a caller-supplied playback rate.
package clock

import (
	"errors"
	"time"
)

// DefaultRate is the neutral playback rate: actual speed = DefaultRate/Rate.
const DefaultRate = 1000

// Rate is an integer playback-speed divisor, DefaultRate meaning 1x.
type Rate int

// ErrConversionFailed is returned when a stream timestamp cannot be
// mapped to a wall-clock date, e.g. it precedes the adapter's anchor by
// more than the caller's max bound.
var ErrConversionFailed = errors.New("clock: timestamp conversion failed")

// Adapter is the pure transformation: given a stream timestamp and a
// maximum allowed backward bound, it returns the corresponding
// wall-clock date and the adapter's current rate, or fails.
// Implementations must be safe to call under the decoder owner's lock
// only; they need not be safe for unsynchronized concurrent use from
// multiple owners.
type Adapter interface {
	// ToWallClock converts streamTS to a wall-clock date. maxBound
	// bounds how far streamTS may fall behind the adapter's current
	// anchor before the conversion is considered to have failed.
	ToWallClock(streamTS int64, maxBound time.Duration) (time.Time, Rate, error)

	// CurrentRate reports the rate that would be used by the next
	// ToWallClock call, without performing a conversion.
	CurrentRate() Rate

	// SetRate updates the playback rate used by subsequent conversions.
	SetRate(Rate)
}
