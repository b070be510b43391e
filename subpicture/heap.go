package subpicture

import (
	"fmt"
	"sync"

	"github.com/mediacore/playbackcore/coreerrors"
)

// DefaultCapacity mirrors package picture's per-kind heap size.
const DefaultCapacity = 16

// Heap is the fixed-capacity subpicture unit pool ("spu_lock").
type Heap struct {
	mu    sync.Mutex
	cells []*Unit
}

func NewHeap(capacity int) *Heap {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Heap{cells: make([]*Unit, capacity)}
}

// Create allocates a subpicture unit, following the same
// free-then-destroyed allocation order as package picture's heap, but
// without the geometry-based reuse fast path: subpicture payloads are
// small and variably sized, so every allocation reuses the first
// available slot's backing slice via append-friendly reset rather than
// matching on prior size.
func (h *Heap) Create(kind Kind) (*Unit, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	firstFree := -1
	firstDestroyed := -1
	for i, u := range h.cells {
		if u == nil {
			if firstFree < 0 {
				firstFree = i
			}
			continue
		}
		if u.Status() == StatusDestroyed && firstDestroyed < 0 {
			firstDestroyed = i
		}
	}

	switch {
	case firstFree >= 0:
		u := &Unit{SlotIndex: firstFree}
		u.reset()
		u.Kind = kind
		h.cells[firstFree] = u
		return u, nil
	case firstDestroyed >= 0:
		u := h.cells[firstDestroyed]
		u.reset()
		u.Kind = kind
		return u, nil
	default:
		return nil, fmt.Errorf("%w: %w", coreerrors.ErrAllocationFailure, coreerrors.ErrHeapFull)
	}
}

// Ready commits u directly to StatusReady ("without the
// two-phase date/display split").
func (h *Heap) Ready(u *Unit) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if u.Status() != StatusReserved {
		return fmt.Errorf("%w: ready() on subpicture in state %s", coreerrors.ErrInvalidTransition, u.Status())
	}
	u.setStatus(StatusReady)
	return nil
}

func (h *Heap) Link(u *Unit) {
	h.mu.Lock()
	defer h.mu.Unlock()
	u.refcount++
}

// Unlink decrements u's reference count. A subpicture has no DISPLAYED
// state; once its refcount reaches zero while still READY it
// transitions straight to DESTROYED.
func (h *Heap) Unlink(u *Unit) {
	h.mu.Lock()
	defer h.mu.Unlock()
	u.refcount--
	if u.refcount <= 0 && u.Status() == StatusReady {
		u.setStatus(StatusDestroyed)
	}
}

// Active returns every subpicture currently in StatusReady whose
// [Begin,End) window contains nowMicros, in heap slot order.
func (h *Heap) Active(nowMicros int64) []*Unit {
	result := make([]*Unit, 0, len(h.cells))
	for _, u := range h.cells {
		if u == nil || u.Status() != StatusReady {
			continue
		}
		if nowMicros >= u.Begin && nowMicros < u.End {
			result = append(result, u)
		}
	}
	return result
}

// Expired returns every StatusReady subpicture whose End has already
// passed nowMicros; the caller (video output worker) unlinks these.
func (h *Heap) Expired(nowMicros int64) []*Unit {
	result := make([]*Unit, 0)
	for _, u := range h.cells {
		if u != nil && u.Status() == StatusReady && nowMicros >= u.End {
			result = append(result, u)
		}
	}
	return result
}
