// fps.go implements the HUD's frames-per-second counter, a ring of the
// last N display dates ("FPS is computed from a ring of the
// last N display dates (N = 20)").

// Package hud implements the video output worker's on-screen overlay:
// aligned/clipped text printing and the FPS ring counter.
package hud

import "time"

// FPSRingSize is N in its FPS ring.
const FPSRingSize = 20

// FPSCounter tracks the last FPSRingSize display dates.
type FPSCounter struct {
	dates [FPSRingSize]time.Time
	count int
	next  int
}

// Record appends a display date to the ring, overwriting the oldest
// entry once full.
func (f *FPSCounter) Record(at time.Time) {
	f.dates[f.next] = at
	f.next = (f.next + 1) % FPSRingSize
	if f.count < FPSRingSize {
		f.count++
	}
}

// FPS returns the instantaneous frame rate computed from the ring's
// oldest and newest entries. Returns 0 until at least two samples have
// been recorded.
func (f *FPSCounter) FPS() float64 {
	if f.count < 2 {
		return 0
	}
	oldestIdx := f.next
	if f.count < FPSRingSize {
		oldestIdx = 0
	}
	newestIdx := (f.next - 1 + FPSRingSize) % FPSRingSize

	oldest := f.dates[oldestIdx]
	newest := f.dates[newestIdx]
	elapsed := newest.Sub(oldest)
	if elapsed <= 0 {
		return 0
	}
	return float64(f.count-1) / elapsed.Seconds()
}
