package clock

import (
	"fmt"
	"math"
	"time"

	"github.com/mediacore/playbackcore/coreerrors"
)

// Rational is a small num/den pair describing the stream's timestamp
// tick duration (e.g. 1/90000 for a 90kHz MPEG clock).
type Rational struct {
	Num, Den int64
}

func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Linear is the default Adapter: it anchors the first timestamp it
// observes to the wall-clock time at that moment, then maps every
// subsequent timestamp linearly from that anchor scaled by TimeBase and
// Rate.
type Linear struct {
	TimeBase Rational

	rate      Rate
	anchorSet bool
	anchorTS  int64
	anchorAt  time.Time
}

var _ Adapter = (*Linear)(nil)

// NewLinear constructs a Linear adapter at the default rate.
func NewLinear(timeBase Rational) *Linear {
	return &Linear{
		TimeBase: timeBase,
		rate:     DefaultRate,
	}
}

func (c *Linear) CurrentRate() Rate {
	return c.rate
}

func (c *Linear) SetRate(r Rate) {
	c.rate = r
}

func (c *Linear) ToWallClock(streamTS int64, maxBound time.Duration) (time.Time, Rate, error) {
	if !c.anchorSet {
		c.anchorSet = true
		c.anchorTS = streamTS
		c.anchorAt = time.Now()
		return c.anchorAt, c.rate, nil
	}

	tickDelta := streamTS - c.anchorTS
	speed := float64(DefaultRate) / float64(c.rate)
	dur := time.Duration(float64(tickDelta) * c.TimeBase.Float64() / speed * float64(time.Second))

	if maxBound > 0 && dur < -maxBound {
		return time.Time{}, c.rate, fmt.Errorf("%w: %w", ErrConversionFailed, coreerrors.ErrClockConversionFailure)
	}
	if math.IsNaN(float64(dur)) || math.IsInf(float64(dur), 0) {
		return time.Time{}, c.rate, fmt.Errorf("%w: %w", ErrConversionFailed, coreerrors.ErrClockConversionFailure)
	}

	return c.anchorAt.Add(dur), c.rate, nil
}

// Reanchor discards the current anchor so the next ToWallClock call
// re-anchors at that timestamp. Used on discontinuity/flush.
func (c *Linear) Reanchor() {
	c.anchorSet = false
}
