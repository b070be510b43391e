package vout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mediacore/playbackcore/contracts"
	"github.com/mediacore/playbackcore/vout/changebitmap"
)

// timestampingSink is a contracts.DisplaySink that records the wall
// time of every Display call, so a test can check a picture was
// presented near its scheduled date rather than merely "eventually".
type timestampingSink struct {
	mu   sync.Mutex
	when []time.Time
}

func (s *timestampingSink) Init(ctx context.Context, w, h int) (int, int, contracts.DisplayBufferDescriptor, error) {
	return w, h, contracts.DisplayBufferDescriptor{BytesPerLine: w * 4, BytesPerPixel: 4}, nil
}

func (s *timestampingSink) Manage(ctx context.Context) (bool, error) { return false, nil }

func (s *timestampingSink) Display(ctx context.Context, buf contracts.DisplayBufferDescriptor) error {
	s.mu.Lock()
	s.when = append(s.when, time.Now())
	s.mu.Unlock()
	return nil
}

func (s *timestampingSink) Destroy(ctx context.Context) error { return nil }

func (s *timestampingSink) last() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.when) == 0 {
		return time.Time{}, false
	}
	return s.when[len(s.when)-1], true
}

var _ contracts.DisplaySink = (*timestampingSink)(nil)

// TestWorkerPresentsOnScheduleDespiteConcurrentWake covers S1's timing
// window (picture presented within [date-20ms, date+20ms]) even when
// an unrelated SetChange wakes the loop out of sleepUntil while it is
// waiting on a picture's deadline: the wake must not make tick present
// the picture ahead of schedule.
func TestWorkerPresentsOnScheduleDespiteConcurrentWake(t *testing.T) {
	sink := &timestampingSink{}
	w, heap := newTestWorker(t, sink)

	deadline := time.Now().Add(60 * time.Millisecond)
	pic := readyPicture(t, heap, 64, 64, deadline)
	require.NoError(t, w.SubmitPicture(context.Background(), pic))

	// Fire an unrelated wake partway through the picture's wait window.
	time.AfterFunc(20*time.Millisecond, func() {
		w.SetChange(changebitmap.InfoOverlay)
	})

	require.Eventually(t, func() bool {
		return w.Stats().Displayed.Load() == 1
	}, time.Second, 5*time.Millisecond)

	presentedAt, ok := sink.last()
	require.True(t, ok)
	require.WithinDuration(t, deadline, presentedAt, 20*time.Millisecond,
		"a concurrent wake must not make the worker present ahead of the picture's own deadline")
}
