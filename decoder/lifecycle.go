// lifecycle.go implements the owner's pause/resume/wait-unblock/flush/
// drain protocols and the flushing/waiting/draining/paused invariants
// that govern them.

package decoder

import (
	"context"

	"github.com/mediacore/playbackcore/block"
	"github.com/mediacore/playbackcore/coreerrors"
	"github.com/mediacore/playbackcore/logger"
)

// Pause freezes timestamp progress at the sinks ("paused
// freezes timestamp progress at the sinks").
func (o *Owner) Pause() {
	o.mu.Lock()
	o.paused = true
	o.mu.Unlock()
	o.requestCond.Broadcast()
}

// Resume restores timestamp progress after Pause ("a resume
// restores it").
func (o *Owner) Resume() {
	o.mu.Lock()
	o.paused = false
	o.pauseIgnore = 0
	o.mu.Unlock()
	o.requestCond.Broadcast()
}

// Step releases exactly one more frame while paused ("The
// ignore counter enables frame-step while paused").
func (o *Owner) Step() {
	o.mu.Lock()
	o.pauseIgnore++
	o.mu.Unlock()
	o.requestCond.Broadcast()
}

// SetWaiting toggles wait-for-first-frame mode ("waiting ⇒ the
// worker produces at most one unit before blocking on acknowledgement").
// Turning waiting off (e.g. once the caller has observed has_data)
// clears has_data so a later re-enable starts clean.
func (o *Owner) SetWaiting(w bool) {
	o.mu.Lock()
	o.waiting = w
	if !w {
		o.hasData = false
	}
	o.mu.Unlock()
	o.requestCond.Broadcast()
}

// HasData reports whether the worker has produced a unit since waiting
// was last enabled, i.e. whether the caller may now end waiting with
// SetWaiting(false).
func (o *Owner) HasData() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hasData
}

// waitUnblock is the producer-side barrier , called by the
// worker itself immediately before submitting a decoded unit to its
// sink. It follows the pseudocode below; in the not-paused branch it
// also sets has_data (and signals ackCond) when it lets a unit through
// while waiting, so the next unit blocks until waiting is turned off:
//
//	loop:
//	  if flushing: return reject=true
//	  if paused:
//	    if waiting and not has_data: break
//	    if pause.ignore > 0: pause.ignore--; break
//	  else:
//	    if not waiting or not has_data: break
//	  wait on condvar `request`
func (o *Owner) waitUnblock() (reject bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for {
		if o.flushing {
			return true
		}
		if o.paused {
			if o.waiting && !o.hasData {
				o.hasData = true
				o.ackCond.Broadcast()
				break
			}
			if o.pauseIgnore > 0 {
				o.pauseIgnore--
				break
			}
		} else {
			if o.waiting && !o.hasData {
				o.hasData = true
				o.ackCond.Broadcast()
				break
			}
			if !o.waiting {
				break
			}
		}
		o.requestCond.Wait()
	}
	return false
}

// Flush empties the FIFO, rejects anything in flight, and drives the
// sentinel-acknowledgement protocol. Repeating it is harmless: a second
// call runs the whole protocol again (including the decoder's own
// Flush) and leaves the owner in the same settled, empty state.
func (o *Owner) Flush(ctx context.Context) error {
	if o.isClosed() {
		// The worker loop that would run handleFlushSentinel and
		// broadcast ackCond is already gone; waiting on it here would
		// hang forever.
		return coreerrors.ErrClosed
	}

	logger.Debugf(ctx, "decoder owner %s: flush", o.cfg.StreamID)
	defer logger.Debugf(ctx, "decoder owner %s: /flush", o.cfg.StreamID)

	o.fifo.clear()
	o.draining.Store(false)

	o.mu.Lock()
	o.flushing = true
	o.prerollEnd = 0
	o.mu.Unlock()
	o.requestCond.Broadcast()

	sentinel := &block.Block{Flags: block.FlushSentinel}
	o.fifo.push(sentinel)

	o.mu.Lock()
	for o.flushing {
		o.ackCond.Wait()
	}
	o.mu.Unlock()

	return nil
}

// handleFlushSentinel is invoked by the worker loop when it dequeues
// the sentinel block Flush() pushed: it passes the sentinel through
// the decoder (to flush internal decoder state), then clears flushing
// and signals Flush's waiter.
func (o *Owner) handleFlushSentinel(ctx context.Context) {
	if err := o.cfg.Decoder.Flush(ctx); err != nil {
		logger.Warnf(ctx, "decoder owner %s: decoder flush: %v", o.cfg.StreamID, err)
	}
	if o.videoSink != nil {
		if err := o.videoSink.Flush(ctx); err != nil {
			logger.Warnf(ctx, "decoder owner %s: video sink flush: %v", o.cfg.StreamID, err)
		}
	}
	if o.audioSink != nil {
		if err := o.audioSink.Flush(ctx, false); err != nil {
			logger.Warnf(ctx, "decoder owner %s: audio sink flush: %v", o.cfg.StreamID, err)
		}
	}

	o.mu.Lock()
	o.flushing = false
	o.mu.Unlock()
	o.ackCond.Broadcast()
}

// Drain requests a one-shot push of all internal decoder/sink state to
// the presentation surface before shutdown. draining is a one-shot
// signal consumed exactly once when the FIFO empties.
func (o *Owner) Drain() {
	o.draining.Store(true)
	o.fifo.wakeAll()
}

// consumeDraining is the fifo.pop one-shot hook: it atomically observes
// and clears the draining flag exactly once (invariant).
func (o *Owner) consumeDraining() bool {
	return o.draining.CompareAndSwap(true, false)
}

// handleDrainSignal is invoked by the worker loop when fifo.pop returns
// the synthetic "None" drain block: it feeds None through the decoder
// (which drains any internally buffered output) then flushes the audio
// sink with the wait-until-silent option.
func (o *Owner) handleDrainSignal(ctx context.Context) {
	o.decodeDispatch(ctx, nil)
	if o.audioSink != nil {
		if err := o.audioSink.Flush(ctx, true); err != nil {
			logger.Warnf(ctx, "decoder owner %s: audio sink drain flush: %v", o.cfg.StreamID, err)
		}
	}
	o.drained.Store(true)
}

// Drained reports whether the most recent Drain has completed (
// invariant 6's "is_empty()" check is exposed separately via the
// broker's VideoOutputHandle.IsEmpty; this reports the decoder-owner
// side of drain completeness).
func (o *Owner) Drained() bool {
	return o.drained.Load()
}

// IsEmpty reports whether the owner's input FIFO currently holds no
// blocks (invariant 6 "is_empty()").
func (o *Owner) IsEmpty() bool {
	return o.fifo.isEmpty()
}
