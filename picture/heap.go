// heap.go implements the fixed-size picture buffer pool and the
// two-phase RESERVED -> READY commit protocol.
package picture

import (
	"fmt"
	"sync"
	"time"

	"github.com/mediacore/playbackcore/coreerrors"
)

// DefaultCapacity is the heap's fixed slot count ("capacity
// ≈ 16 per kind").
const DefaultCapacity = 16

// Heap is the fixed-capacity array of picture cells guarded by one
// heap-wide mutex ("picture_lock").
type Heap struct {
	mu    sync.Mutex
	cells []*Picture // nil entry == StatusFree, owns no pixel memory
}

// NewHeap constructs a heap with the given capacity (DefaultCapacity if
// capacity <= 0).
func NewHeap(capacity int) *Heap {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Heap{cells: make([]*Picture, capacity)}
}

// Create implements the four-step allocation policy: prefer a reusable
// DESTROYED slot of identical geometry, fall back to a FREE slot, then
// repurpose any DESTROYED slot at the new geometry, and finally fail if
// the heap is exhausted.
func (h *Heap) Create(format Format, width, height uint32) (*Picture, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Step 1: fast path, reuse a DESTROYED slot of identical geometry.
	firstFree := -1
	firstDestroyed := -1
	for i, pic := range h.cells {
		if pic == nil {
			if firstFree < 0 {
				firstFree = i
			}
			continue
		}
		if pic.Status() != StatusDestroyed {
			continue
		}
		if firstDestroyed < 0 {
			firstDestroyed = i
		}
		if pic.sameGeometry(format, width, height) {
			pic.reset(format, width, height)
			return pic, nil
		}
	}

	// Step 3: no identical-geometry DESTROYED slot; prefer a FREE slot.
	if firstFree >= 0 {
		planes, pitch := allocPlanes(format, width, height)
		pic := &Picture{SlotIndex: firstFree, Planes: planes, Pitch: pitch}
		pic.reset(format, width, height)
		h.cells[firstFree] = pic
		return pic, nil
	}

	// Step 3 continued: repurpose the first DESTROYED slot at the new
	// geometry, discarding its old pixel memory.
	if firstDestroyed >= 0 {
		planes, pitch := allocPlanes(format, width, height)
		pic := h.cells[firstDestroyed]
		pic.Planes = planes
		pic.Pitch = pitch
		pic.reset(format, width, height)
		return pic, nil
	}

	// Step 4: heap exhausted.
	return nil, fmt.Errorf("%w: %w", coreerrors.ErrAllocationFailure, coreerrors.ErrHeapFull)
}

// Display records a display-request for pic, advancing it through the
// two-phase commit table. Idempotent calls past READY are
// rejected.
func (h *Heap) Display(pic *Picture) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch pic.Status() {
	case StatusReserved:
		pic.hasDisp = true
		pic.setStatus(StatusReservedDisp)
		return nil
	case StatusReservedDated:
		pic.hasDisp = true
		pic.setStatus(StatusReady)
		return nil
	case StatusReservedDisp:
		// Already recorded; table marks this (invalid) but we treat a
		// repeated display() as a harmless no-op rather than an error,
		// matching the idempotence promised by its preamble.
		return nil
	default:
		return fmt.Errorf("%w: display() on picture in state %s", coreerrors.ErrInvalidTransition, pic.Status())
	}
}

// Date records a presentation date for pic, advancing it through the
// two-phase commit table. Calling Date again while already
// StatusReservedDated or StatusReady updates the date in place.
func (h *Heap) Date(pic *Picture, t time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch pic.Status() {
	case StatusReserved:
		pic.date = t
		pic.hasDate = true
		pic.setStatus(StatusReservedDated)
		return nil
	case StatusReservedDisp:
		pic.date = t
		pic.hasDate = true
		pic.setStatus(StatusReady)
		return nil
	case StatusReservedDated, StatusReady:
		pic.date = t
		return nil
	default:
		return fmt.Errorf("%w: date() on picture in state %s", coreerrors.ErrInvalidTransition, pic.Status())
	}
}

// Link increments pic's reference count.
func (h *Heap) Link(pic *Picture) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pic.refcount++
}

// Unlink decrements pic's reference count, transitioning it to
// StatusDestroyed if the count reaches zero while StatusDisplayed
// ("Refcounting").
func (h *Heap) Unlink(pic *Picture) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pic.refcount--
	if pic.refcount <= 0 && pic.Status() == StatusDisplayed {
		pic.setStatus(StatusDestroyed)
	}
}

// MarkDisplayed transitions a READY picture that the video output
// worker has just presented to StatusDisplayed, or directly to
// StatusDestroyed if nothing references it (step 3's "late"
// path reuses the same rule).
func (h *Heap) MarkDisplayed(pic *Picture) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if pic.refcount <= 0 {
		pic.setStatus(StatusDestroyed)
		return
	}
	pic.setStatus(StatusDisplayed)
}

// Discard forcibly reclaims pic's slot regardless of its current
// status, transitioning it straight to StatusDestroyed. Used by the
// decoder owner to drop a picture that never reaches display — a
// preroll-window discard or a clock-conversion failure — so the slot
// doesn't leak stuck in a RESERVED* state (taxonomy:
// ClockConversionFailure, preroll discard).
func (h *Heap) Discard(pic *Picture) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pic.refcount = 0
	pic.setStatus(StatusDestroyed)
}

// ReadyPictures returns every picture currently in StatusReady, in heap
// slot order. The video output worker scans without acquiring the
// heap's mutex ("Concurrency"): StatusReady is a stable,
// single-writer-until-the-worker-acts state.
func (h *Heap) ReadyPictures() []*Picture {
	result := make([]*Picture, 0, len(h.cells))
	for _, pic := range h.cells {
		if pic != nil && pic.Status() == StatusReady {
			result = append(result, pic)
		}
	}
	return result
}

// Len returns the heap's fixed capacity.
func (h *Heap) Len() int {
	return len(h.cells)
}
