package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mediacore/playbackcore/clock"
	"github.com/mediacore/playbackcore/coreerrors"
)

func TestLinearAnchorsFirstTimestamp(t *testing.T) {
	c := clock.NewLinear(clock.Rational{Num: 1, Den: 90000})

	before := time.Now()
	wall, rate, err := c.ToWallClock(12345, 0)
	after := time.Now()
	require.NoError(t, err)
	require.Equal(t, clock.Rate(clock.DefaultRate), rate)
	require.False(t, wall.Before(before))
	require.False(t, wall.After(after))
}

func TestLinearMapsSubsequentTimestampsLinearly(t *testing.T) {
	c := clock.NewLinear(clock.Rational{Num: 1, Den: 90000})

	anchor, _, err := c.ToWallClock(90000, 0)
	require.NoError(t, err)

	next, _, err := c.ToWallClock(180000, 0)
	require.NoError(t, err)
	require.InDelta(t, time.Second, next.Sub(anchor), float64(time.Millisecond))
}

func TestLinearRejectsTimestampBeyondMaxBound(t *testing.T) {
	c := clock.NewLinear(clock.Rational{Num: 1, Den: 90000})

	_, _, err := c.ToWallClock(90000, 0)
	require.NoError(t, err)

	// One second behind the anchor, well past a 200ms bound.
	_, _, err = c.ToWallClock(0, 200*time.Millisecond)
	require.ErrorIs(t, err, clock.ErrConversionFailed)
	require.ErrorIs(t, err, coreerrors.ErrClockConversionFailure)
}

func TestLinearToleratesSmallBackwardJitterWithinBound(t *testing.T) {
	c := clock.NewLinear(clock.Rational{Num: 1, Den: 90000})

	_, _, err := c.ToWallClock(90000, 0)
	require.NoError(t, err)

	// Only 10ms behind the anchor, inside a 200ms bound.
	_, _, err = c.ToWallClock(90000-900, 200*time.Millisecond)
	require.NoError(t, err)
}

func TestLinearReanchorResetsAnchorPoint(t *testing.T) {
	c := clock.NewLinear(clock.Rational{Num: 1, Den: 90000})

	_, _, err := c.ToWallClock(90000, 0)
	require.NoError(t, err)

	c.Reanchor()

	before := time.Now()
	wall, _, err := c.ToWallClock(0, 0)
	require.NoError(t, err)
	require.False(t, wall.Before(before))
}

func TestLinearSetRateAffectsSubsequentConversion(t *testing.T) {
	c := clock.NewLinear(clock.Rational{Num: 1, Den: 90000})

	anchor, _, err := c.ToWallClock(90000, 0)
	require.NoError(t, err)

	c.SetRate(clock.DefaultRate * 2) // half speed
	require.Equal(t, clock.Rate(clock.DefaultRate*2), c.CurrentRate())

	next, rate, err := c.ToWallClock(180000, 0)
	require.NoError(t, err)
	require.Equal(t, clock.Rate(clock.DefaultRate*2), rate)
	require.InDelta(t, 2*time.Second, next.Sub(anchor), float64(time.Millisecond))
}
