// dirty.go implements the vertical-span dirty-area list that tracks
// which rows of a render surface buffer need clearing before the next
// render.

// Package surface implements the double-buffered pixel target the
// video output worker presents to the display sink.
package surface

import "sort"

// MaxDirtyAreas bounds the dirty-area list; once full, a new span is
// merged into the last entry instead of appended, extending it to the
// new endpoint.
const MaxDirtyAreas = 32

// Span is a vertical pixel-row range [Y0, Y1) that must be cleared.
type Span struct {
	Y0, Y1 int
}

// DirtyList is a sorted, non-overlapping (except by intentional merge)
// list of Spans.
type DirtyList struct {
	spans []Span
}

// Insert adds span to the list, keeping it sorted by Y0 and merging
// any overlap, capped at MaxDirtyAreas.
func (d *DirtyList) Insert(span Span) {
	if span.Y1 <= span.Y0 {
		return
	}

	if len(d.spans) >= MaxDirtyAreas {
		last := &d.spans[len(d.spans)-1]
		if span.Y0 < last.Y0 {
			last.Y0 = span.Y0
		}
		if span.Y1 > last.Y1 {
			last.Y1 = span.Y1
		}
		return
	}

	idx := sort.Search(len(d.spans), func(i int) bool {
		return d.spans[i].Y0 >= span.Y0
	})
	d.spans = append(d.spans, Span{})
	copy(d.spans[idx+1:], d.spans[idx:])
	d.spans[idx] = span

	d.mergeOverlaps()
}

func (d *DirtyList) mergeOverlaps() {
	if len(d.spans) < 2 {
		return
	}
	merged := d.spans[:1]
	for _, s := range d.spans[1:] {
		last := &merged[len(merged)-1]
		if s.Y0 <= last.Y1 {
			if s.Y1 > last.Y1 {
				last.Y1 = s.Y1
			}
			continue
		}
		merged = append(merged, s)
	}
	d.spans = merged
}

// Spans returns the current sorted, non-overlapping span list.
func (d *DirtyList) Spans() []Span {
	return d.spans
}

// Reset clears the list after each span has been zeroed for the next
// render iteration.
func (d *DirtyList) Reset() {
	d.spans = d.spans[:0]
}
