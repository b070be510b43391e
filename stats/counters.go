// counters.go implements the structured counters (decoded,
// lost_pictures, displayed, lost_abuffers, played_abuffers), attached
// to both the video output worker and each decoder owner.

// Package stats holds the atomic counters the video output worker and
// decoder owners increment, and the humanize-formatted logging helper
// for FIFO occupancy.
package stats

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"go.uber.org/atomic"
)

// Counters is a fixed set of monotonically increasing event counts.
// All fields are safe for concurrent use.
type Counters struct {
	Decoded        atomic.Int64
	LostPictures   atomic.Int64
	Displayed      atomic.Int64
	LostABuffers   atomic.Int64
	PlayedABuffers atomic.Int64
}

// String renders the counters for structured log fields and CLI status
// output.
func (c *Counters) String() string {
	if c == nil {
		return "<nil counters>"
	}
	return fmt.Sprintf(
		"decoded=%d lost_pictures=%d displayed=%d lost_abuffers=%d played_abuffers=%d",
		c.Decoded.Load(), c.LostPictures.Load(), c.Displayed.Load(),
		c.LostABuffers.Load(), c.PlayedABuffers.Load(),
	)
}

// FIFOOccupancy renders a byte count using humanize, for logging a
// decoder owner's FIFO occupancy ("Backpressure").
func FIFOOccupancy(bytes int) string {
	return humanize.Bytes(uint64(bytes))
}
