// fifo.go implements the decoder owner's bounded input FIFO. The
// FIFO's own lock is independent of and short-held relative to the
// owner's lock.

package decoder

import (
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/mediacore/playbackcore/block"
)

// FIFOMaxBytes is the non-paced overflow threshold ("if FIFO
// bytes exceed 400 MiB, drop the entire queue with a warning").
const FIFOMaxBytes = 400 * humanize.MiByte

// FIFOMaxPacedCount is the paced backpressure threshold (:
// "while FIFO count >= 10 and not waiting, block").
const FIFOMaxPacedCount = 10

// fifo is the compressed-block queue a decoder owner's worker pulls
// from and producers push into.
type fifo struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	items []*block.Block
	bytes int
}

func newFIFO() *fifo {
	f := &fifo{}
	f.notEmpty = sync.NewCond(&f.mu)
	f.notFull = sync.NewCond(&f.mu)
	return f
}

// push appends b unconditionally, e.g. for the flush sentinel which
// must never be dropped by the backpressure policy.
func (f *fifo) push(b *block.Block) {
	f.mu.Lock()
	f.items = append(f.items, b)
	f.bytes += b.Bytes()
	f.mu.Unlock()
	f.notEmpty.Signal()
}

// len reports the queue's current element count.
func (f *fifo) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// occupiedBytes reports the queue's current byte accounting total.
func (f *fifo) occupiedBytes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bytes
}

// isEmpty reports whether the queue currently holds no blocks.
func (f *fifo) isEmpty() bool {
	return f.len() == 0
}

// clear drops every queued block and resets byte accounting, returning
// the count of blocks dropped ( Flush: "flush() empties the
// FIFO under its lock").
func (f *fifo) clear() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.items)
	f.items = nil
	f.bytes = 0
	f.notFull.Broadcast()
	return n
}

// waitWhileFull blocks a paced producer while the queue holds at least
// FIFOMaxPacedCount blocks, re-checking shouldBlock (the owner's "not
// waiting" guard — blocking while waiting would deadlock the upstream
// synchronizer) each time it wakes.
func (f *fifo) waitWhileFull(shouldBlock func() bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.items) >= FIFOMaxPacedCount && shouldBlock() {
		f.notFull.Wait()
	}
}

// pop blocks until a block is available, a one-shot drain signal fires,
// or wake is closed. consumeDrain is polled (and expected to clear its
// own one-shot state) only while the queue is empty.
//
// Return shapes: (block, true) is a real dequeued block (possibly the
// flush sentinel); (nil, true) is the synthetic "None" drain signal;
// (nil, false) means wake fired and the worker must stop.
func (f *fifo) pop(wake <-chan struct{}, consumeDrain func() bool) (*block.Block, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		if len(f.items) > 0 {
			b := f.items[0]
			f.items = f.items[1:]
			f.bytes -= b.Bytes()
			f.notFull.Broadcast()
			return b, true
		}
		if consumeDrain != nil && consumeDrain() {
			return nil, true
		}
		select {
		case <-wake:
			return nil, false
		default:
		}
		f.notEmpty.Wait()
		select {
		case <-wake:
			return nil, false
		default:
		}
	}
}

// wakeAll unblocks every goroutine waiting in pop without requiring a
// block to actually be queued, used on Close and Drain to let a stuck
// worker re-evaluate its exit/drain condition.
func (f *fifo) wakeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notEmpty.Broadcast()
}
