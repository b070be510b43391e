// input.go implements the producer-facing backpressure policy:
// `input_decode(block, pace)`.

package decoder

import (
	"context"
	"fmt"

	"github.com/mediacore/playbackcore/block"
	"github.com/mediacore/playbackcore/coreerrors"
	"github.com/mediacore/playbackcore/logger"
)

// InputDecode is the producer-facing counterpart to the worker's FIFO
// consumption, implementing its two backpressure policies:
//
//   - pace=false: if FIFO bytes exceed FIFOMaxBytes, drop the entire
//     queue with a warning (a non-paced producer exceeding 400 MiB
//     means the consumer can't keep up; dropping avoids unbounded
//     growth).
//   - pace=true: block on the FIFO's not-full condition while the
//     queue holds at least FIFOMaxPacedCount blocks, but never while
//     the owner is in wait-for-first-frame mode: blocking there would
//     deadlock the upstream synchronizer.
func (o *Owner) InputDecode(ctx context.Context, b *block.Block, pace bool) {
	if pace {
		o.fifo.waitWhileFull(func() bool { return !o.isWaiting() })
	} else if o.fifo.occupiedBytes() > FIFOMaxBytes {
		dropped := o.fifo.clear()
		err := fmt.Errorf("%w: dropped %d blocks", coreerrors.ErrFIFOOverflow, dropped)
		logger.Warnf(ctx, "decoder owner %s: %v", o.cfg.StreamID, err)
	}

	o.fifo.push(b)
}

func (o *Owner) isWaiting() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.waiting
}
