package picture

import (
	"sync/atomic"
	"time"
)

// Picture is one decoded video frame buffer owned by a Heap cell.
type Picture struct {
	Format             Format
	Width, Height      uint32
	ChromaWidth        uint32
	Crop               Rect
	AspectTag          Aspect
	MatrixCoefficients int

	// Planes holds one []byte slab per Format.PlaneCount(); a producer
	// may write into these without holding the heap lock as long as
	// the picture's status is StatusReserved ("Concurrency").
	Planes [][]byte
	// Pitch is the bytes-per-line of each entry in Planes.
	Pitch []int

	// SlotIndex is this picture's position in its owning Heap's cell
	// array; it breaks date ties deterministically when the video
	// output worker orders pictures for presentation.
	SlotIndex int

	date time.Time

	status    atomic.Int32 // Status, read lock-free once READY
	refcount  int          // protected by the owning Heap's mutex
	hasDate   bool
	hasDisp   bool
}

// Status returns the picture's current lifecycle state. Safe to call
// without the heap lock; see "Concurrency".
func (p *Picture) Status() Status {
	return Status(p.status.Load())
}

// Date returns the picture's presentation date. Only meaningful once
// Status is StatusReady or later.
func (p *Picture) Date() time.Time {
	return p.date
}

// HasDate reports whether Date() has been recorded since allocation.
func (p *Picture) HasDate() bool {
	return p.hasDate
}

// HasDisplayRequest reports whether Display() has been recorded since
// allocation.
func (p *Picture) HasDisplayRequest() bool {
	return p.hasDisp
}

// RefCount returns the picture's current reference count. Callers must
// hold the owning heap's lock to get a consistent read relative to
// concurrent Link/Unlink; it is exported chiefly for tests and metrics.
func (p *Picture) RefCount() int {
	return p.refcount
}

func (p *Picture) setStatus(s Status) {
	p.status.Store(int32(s))
}

func (p *Picture) reset(format Format, w, h uint32) {
	horiz, _ := format.ChromaSubsampling()
	chromaW := w / uint32(horiz)
	p.Format = format
	p.Width = w
	p.Height = h
	p.ChromaWidth = chromaW
	p.Crop = Rect{0, 0, int(w), int(h)}
	p.AspectTag = AspectSquare
	p.MatrixCoefficients = 0
	p.date = time.Time{}
	p.refcount = 0
	p.hasDate = false
	p.hasDisp = false
	p.setStatus(StatusReserved)
}

func (p *Picture) sameGeometry(format Format, w, h uint32) bool {
	return p.Format == format && p.Width == w && p.Height == h
}

func allocPlanes(format Format, w, h uint32) ([][]byte, []int) {
	n := format.PlaneCount()
	planes := make([][]byte, n)
	pitch := make([]int, n)
	if n == 1 {
		pitch[0] = int(w)
		planes[0] = make([]byte, int(w)*int(h))
		return planes, pitch
	}
	horiz, vert := format.ChromaSubsampling()
	pitch[0] = int(w)
	planes[0] = make([]byte, int(w)*int(h))
	chromaW := int(w) / horiz
	chromaH := int(h) / vert
	for i := 1; i < n; i++ {
		pitch[i] = chromaW
		planes[i] = make([]byte, chromaW*chromaH)
	}
	return planes, pitch
}
