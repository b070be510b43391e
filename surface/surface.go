package surface

import "github.com/mediacore/playbackcore/picture"

// Buffer is one of a Surface's two pixel buffers.
type Buffer struct {
	Pixels       []byte
	BytesPerLine int
	BytesPerPixel int

	// PictureRect is the sub-rectangle currently occupied by the
	// decoded picture within this buffer.
	PictureRect picture.Rect

	Dirty DirtyList
}

const clearChunk = 256

// ClearDirty zeroes every pending dirty span in the buffer, in
// 256-byte chunks with a 4-byte-chunk tail, then resets the dirty
// list.
func (b *Buffer) ClearDirty() {
	for _, span := range b.Dirty.Spans() {
		b.clearRows(span.Y0, span.Y1)
	}
	b.Dirty.Reset()
}

func (b *Buffer) clearRows(y0, y1 int) {
	if y0 < 0 {
		y0 = 0
	}
	rows := len(b.Pixels) / max(b.BytesPerLine, 1)
	if y1 > rows {
		y1 = rows
	}
	if y0 >= y1 {
		return
	}
	start := y0 * b.BytesPerLine
	end := y1 * b.BytesPerLine
	clearRange(b.Pixels[start:end])
}

func clearRange(buf []byte) {
	i := 0
	for ; i+clearChunk <= len(buf); i += clearChunk {
		zeroChunk := buf[i : i+clearChunk]
		for j := range zeroChunk {
			zeroChunk[j] = 0
		}
	}
	for ; i+4 <= len(buf); i += 4 {
		buf[i], buf[i+1], buf[i+2], buf[i+3] = 0, 0, 0, 0
	}
	for ; i < len(buf); i++ {
		buf[i] = 0
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Surface is the double-buffered pixel target ("Render
// Surface").
type Surface struct {
	Width, Height int
	buffers       [2]Buffer
	active        int
}

// NewSurface allocates a surface of the given size with bytesPerPixel
// per buffer (the display sink may override these; see
// worker contract).
func NewSurface(width, height, bytesPerLine, bytesPerPixel int) *Surface {
	s := &Surface{Width: width, Height: height}
	for i := range s.buffers {
		s.buffers[i] = Buffer{
			Pixels:        make([]byte, bytesPerLine*height),
			BytesPerLine:  bytesPerLine,
			BytesPerPixel: bytesPerPixel,
		}
	}
	return s
}

// Back returns the buffer currently being rendered into.
func (s *Surface) Back() *Buffer {
	return &s.buffers[1-s.active]
}

// Front returns the buffer currently presented to the display sink.
func (s *Surface) Front() *Buffer {
	return &s.buffers[s.active]
}

// Swap flips the active buffer index after a present.
func (s *Surface) Swap() {
	s.active = 1 - s.active
}
