package vout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mediacore/playbackcore/contracts"
	"github.com/mediacore/playbackcore/convert"
	"github.com/mediacore/playbackcore/coreerrors"
	"github.com/mediacore/playbackcore/picture"
)

type fakeSink struct {
	mu        sync.Mutex
	displayed int
}

func (f *fakeSink) Init(ctx context.Context, w, h int) (int, int, contracts.DisplayBufferDescriptor, error) {
	return w, h, contracts.DisplayBufferDescriptor{BytesPerLine: w * 4, BytesPerPixel: 4}, nil
}

func (f *fakeSink) Manage(ctx context.Context) (bool, error) { return false, nil }

func (f *fakeSink) Display(ctx context.Context, buf contracts.DisplayBufferDescriptor) error {
	f.mu.Lock()
	f.displayed++
	f.mu.Unlock()
	return nil
}

func (f *fakeSink) Destroy(ctx context.Context) error { return nil }

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.displayed
}

var _ contracts.DisplaySink = (*fakeSink)(nil)

// orderingConverter records the Width of every picture it converts, in
// the order the worker dispatched them, instead of doing real pixel
// work.
type orderingConverter struct {
	mu    sync.Mutex
	order []uint32
}

func (c *orderingConverter) Convert(src *picture.Picture, dst []byte, dstBytesPerLine int, dstRect picture.Rect, tables *convert.Tables) error {
	c.mu.Lock()
	c.order = append(c.order, src.Width)
	c.mu.Unlock()
	return nil
}

func (c *orderingConverter) snapshot() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint32(nil), c.order...)
}

func newTestWorker(t *testing.T, sink contracts.DisplaySink) (*Worker, *picture.Heap) {
	heap := picture.NewHeap(4)
	w, err := New(context.Background(), Config{
		Display:     sink,
		Width:       640,
		Height:      480,
		PictureHeap: heap,
	})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close(context.Background()) })
	return w, heap
}

func readyPicture(t *testing.T, heap *picture.Heap, width, height uint32, date time.Time) *picture.Picture {
	pic, err := heap.Create(picture.FormatYUV420, width, height)
	require.NoError(t, err)
	require.NoError(t, heap.Display(pic))
	require.NoError(t, heap.Date(pic, date))
	require.Equal(t, picture.StatusReady, pic.Status())
	return pic
}

// TestWorkerDisplaysOnTimePicture covers S1: a picture due 50ms from
// now gets presented and the heap slot is released back to DESTROYED
// once the worker has finished with it.
func TestWorkerDisplaysOnTimePicture(t *testing.T) {
	sink := &fakeSink{}
	w, heap := newTestWorker(t, sink)

	pic := readyPicture(t, heap, 64, 64, time.Now().Add(50*time.Millisecond))
	require.NoError(t, w.SubmitPicture(context.Background(), pic))

	require.Eventually(t, func() bool {
		return w.Stats().Displayed.Load() == 1
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return pic.Status() == picture.StatusDestroyed
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, sink.count())
}

// TestWorkerDropsLatePicture covers S2: a picture whose date has
// already passed is dropped without ever reaching the display sink.
func TestWorkerDropsLatePicture(t *testing.T) {
	sink := &fakeSink{}
	w, heap := newTestWorker(t, sink)

	pic := readyPicture(t, heap, 64, 64, time.Now().Add(-time.Second))
	require.NoError(t, w.SubmitPicture(context.Background(), pic))

	require.Eventually(t, func() bool {
		return w.Stats().LostPictures.Load() == 1
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, int64(0), w.Stats().Displayed.Load())
	require.Equal(t, 0, sink.count())
}

// TestWorkerOrdersByDateNotSubmissionOrder covers invariant 1: pictures
// present in non-decreasing date order regardless of submission order.
func TestWorkerOrdersByDateNotSubmissionOrder(t *testing.T) {
	heap := picture.NewHeap(4)

	// Both pictures are READY in the shared heap before the worker
	// loop starts, so its very first tick sees both at once and must
	// pick by date rather than by arrival order.
	now := time.Now()
	later := readyPicture(t, heap, 222, 222, now.Add(40*time.Millisecond))
	earlier := readyPicture(t, heap, 111, 111, now.Add(10*time.Millisecond))

	sink := &fakeSink{}
	converter := &orderingConverter{}
	w, err := New(context.Background(), Config{
		Display:     sink,
		Width:       640,
		Height:      480,
		PictureHeap: heap,
		Converter:   converter,
	})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close(context.Background()) })

	require.NoError(t, w.SubmitPicture(context.Background(), later))
	require.NoError(t, w.SubmitPicture(context.Background(), earlier))

	require.Eventually(t, func() bool {
		return len(converter.snapshot()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	require.Equal(t, []uint32{111, 222}, converter.snapshot())
}

// TestWorkerFlushDropsReadyPictures covers the flush path used by the
// decoder owner on a rate change (step 3).
func TestWorkerFlushDropsReadyPictures(t *testing.T) {
	sink := &fakeSink{}
	w, heap := newTestWorker(t, sink)

	pic := readyPicture(t, heap, 64, 64, time.Now().Add(time.Hour))
	require.NoError(t, w.SubmitPicture(context.Background(), pic))
	require.False(t, w.IsEmpty())

	require.NoError(t, w.Flush(context.Background()))
	require.True(t, w.IsEmpty())
	require.Equal(t, picture.StatusDestroyed, pic.Status())
}

// TestWorkerRejectsSubmitAfterClose covers the closed-worker guard: a
// picture or subpicture submitted after Close must be rejected rather
// than linked into a heap nothing is draining anymore.
func TestWorkerRejectsSubmitAfterClose(t *testing.T) {
	sink := &fakeSink{}
	heap := picture.NewHeap(4)
	w, err := New(context.Background(), Config{
		Display:     sink,
		Width:       64,
		Height:      64,
		PictureHeap: heap,
	})
	require.NoError(t, err)
	require.NoError(t, w.Close(context.Background()))

	pic := readyPicture(t, heap, 64, 64, time.Now())
	require.ErrorIs(t, w.SubmitPicture(context.Background(), pic), coreerrors.ErrClosed)
}

// TestWorkerStateTracksLifecycle covers the create/destroy thread-status
// contract: a worker reaches READY shortly after construction and OVER
// once Close completes cleanly.
func TestWorkerStateTracksLifecycle(t *testing.T) {
	sink := &fakeSink{}
	w, _ := newTestWorker(t, sink)

	require.Eventually(t, func() bool {
		return w.State() == contracts.ThreadReady
	}, time.Second, time.Millisecond)

	require.NoError(t, w.Close(context.Background()))
	require.Equal(t, contracts.ThreadOver, w.State())
}
