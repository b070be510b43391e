// errors.go enumerates the error taxonomy. Per-unit failures are
// represented by these sentinels and handled locally (counted, unit
// dropped); subsystem-fatal failures additionally latch a persistent
// flag on the owning subsystem.

// Package coreerrors holds the sentinel errors shared across the core
// packages, so callers can classify a failure with errors.Is without
// importing the package that produced it.
package coreerrors

import "errors"

var (
	// ErrHeapFull is returned by a buffer heap when no FREE or
	// DESTROYED slot is available to satisfy an allocation.
	ErrHeapFull = errors.New("buffer heap: no free or destroyed slot available")

	// ErrAllocationFailure wraps ErrHeapFull and out-of-memory
	// conditions at picture/subpicture creation.
	ErrAllocationFailure = errors.New("allocation failure")

	// ErrNonDatedUnit is a warning-level condition: a unit reached a
	// sink without ever having had its date recorded.
	ErrNonDatedUnit = errors.New("unit has no presentation date")

	// ErrRateOutOfBounds marks an audio unit whose clock-adjusted rate
	// fell outside [1/AOUT_MAX_INPUT_RATE, AOUT_MAX_INPUT_RATE].
	ErrRateOutOfBounds = errors.New("rate out of bounds")

	// ErrClockConversionFailure marks a timestamp the clock adapter
	// could not map to a wall-clock date.
	ErrClockConversionFailure = errors.New("clock conversion failure")

	// ErrDecoderLoadFailure is fatal to the owning stream: the decoder
	// module failed to load or reload.
	ErrDecoderLoadFailure = errors.New("decoder load failure")

	// ErrUnauthorizedChange marks a change-bitmap bit neither the
	// video output worker nor its display sink cleared. Fatal to the
	// video output worker.
	ErrUnauthorizedChange = errors.New("unauthorized change bitmap bit")

	// ErrFIFOOverflow marks a non-paced producer exceeding the FIFO's
	// byte budget; the entire FIFO is dropped.
	ErrFIFOOverflow = errors.New("fifo overflow")

	// ErrInvalidTransition marks an attempted picture/subpicture
	// status transition that the two-phase commit table forbids.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrClosed marks an operation attempted against an already
	// torn-down worker or owner.
	ErrClosed = errors.New("closed")
)
