// subpicture.go implements the subpicture unit data model and its
// single-phase reservation->ready lifecycle ("Subpicture Unit").
//
// Package subpicture mirrors package picture's heap discipline for
// overlay/subtitle units, which commit to READY in one call instead of
// picture's two-phase display+date commit.
package subpicture

import "sync/atomic"

// Kind tags the subpicture's payload interpretation (text, bitmap,
// navigation menu highlight, ...). The core does not interpret it.
type Kind int

// Status is a subpicture cell's lifecycle state.
type Status int

const (
	StatusFree Status = iota
	StatusReserved
	StatusReady
	StatusDestroyed
)

func (s Status) String() string {
	switch s {
	case StatusFree:
		return "FREE"
	case StatusReserved:
		return "RESERVED"
	case StatusReady:
		return "READY"
	case StatusDestroyed:
		return "DESTROYED"
	default:
		return "INVALID"
	}
}

// Unit is one subtitle/overlay buffer.
type Unit struct {
	Kind    Kind
	Begin   int64 // presentation date, wall-clock microseconds
	End     int64
	Payload []byte
	Channel int
	Order   int

	SlotIndex int

	status   atomic.Int32
	refcount int
}

func (u *Unit) Status() Status {
	return Status(u.status.Load())
}

func (u *Unit) RefCount() int {
	return u.refcount
}

func (u *Unit) setStatus(s Status) {
	u.status.Store(int32(s))
}

func (u *Unit) reset() {
	u.Kind = 0
	u.Begin = 0
	u.End = 0
	u.Payload = u.Payload[:0]
	u.Channel = 0
	u.Order = 0
	u.refcount = 0
	u.setStatus(StatusReserved)
}
