// run.go implements the video output worker's main loop: pick the next
// ready picture by timestamp, wait until its display deadline,
// composite overlays, present, and release.

package vout

import (
	"context"
	"time"

	"github.com/mediacore/playbackcore/contracts"
	"github.com/mediacore/playbackcore/convert"
	"github.com/mediacore/playbackcore/coreerrors"
	"github.com/mediacore/playbackcore/logger"
	"github.com/mediacore/playbackcore/vout/changebitmap"
)

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	for !w.IsClosed() {
		w.tick(ctx)
	}
}

// tick runs one iteration of the worker's schedule: manage the sink,
// acknowledge pending reconfiguration, pick a picture, and either drop
// it (late), defer it (early), or render+present it.
func (w *Worker) tick(ctx context.Context) {
	if fatal, err := w.manageSink(ctx); fatal {
		logger.Errorf(ctx, "video output worker %v: display sink fatal: %v", w.cfg.Label, err)
		w.errored.Store(true)
		w.state.Store(int32(contracts.ThreadError))
		w.sleep(ctx, IdleSleep)
		return
	} else if err != nil {
		logger.Warnf(ctx, "video output worker: manage: %v", err)
	}

	w.changeLock.Lock()
	w.acknowledgeChanges(ctx)

	ready := w.cfg.PictureHeap.ReadyPictures()
	pic := pickReady(ready)
	now := time.Now()

	switch {
	case pic == nil:
		w.changeLock.Unlock()
		w.sleep(ctx, IdleSleep)
		return

	case pic.Date().Before(now):
		w.changeLock.Unlock()
		w.cfg.PictureHeap.MarkDisplayed(pic)
		w.cfg.PictureHeap.Unlink(pic)
		w.cfg.Stats.LostPictures.Inc()
		return

	case pic.Date().Sub(now) > DisplayDelay:
		w.changeLock.Unlock()
		w.sleep(ctx, IdleSleep)
		return
	}

	w.renderLocked(pic)
	w.changeLock.Unlock()

	if closed := w.sleepUntil(ctx, pic.Date()); closed {
		return
	}

	w.changeLock.Lock()
	if err := w.presentLocked(ctx); err != nil {
		logger.Warnf(ctx, "video output worker: display: %v", err)
	}
	w.changeLock.Unlock()

	w.cfg.PictureHeap.MarkDisplayed(pic)
	w.cfg.PictureHeap.Unlink(pic)
	w.cfg.Stats.Displayed.Inc()
	w.fps.Record(pic.Date())
}

// acknowledgeChanges must be called with changeLock held. It rebuilds
// the YUV tables if a table-invalidating bit is pending, flips the
// worker's persistent toggle state for the remaining known bits, and
// latches a fatal error for any bit neither the worker nor the sink
// declared knowledge of.
func (w *Worker) acknowledgeChanges(ctx context.Context) {
	pending := w.bitmap.Pending()
	if pending == 0 {
		return
	}

	var sinkKnown changebitmap.Bit
	if neg, ok := w.cfg.Display.(interface{ KnownChangeBits() changebitmap.Bit }); ok {
		sinkKnown = neg.KnownChangeBits()
	}
	if unknown := w.bitmap.UnknownBits(sinkKnown); unknown != 0 {
		logger.Errorf(ctx, "video output worker: %v: bits %v", coreerrors.ErrUnauthorizedChange, unknown)
		w.errored.Store(true)
		w.state.Store(int32(contracts.ThreadError))
	}

	if changebitmap.RequiresTableRebuild.Match(changebitmap.Snapshot(pending)) {
		w.tables = convert.NewTables(w.gamma, w.grayscale)
	}
	if pending&changebitmap.InfoOverlay != 0 {
		w.showInfoOverlay = !w.showInfoOverlay
	}
	if pending&changebitmap.Interface != 0 {
		w.showInterface = !w.showInterface
	}
	if pending&changebitmap.NoDisplay != 0 {
		w.noDisplay = !w.noDisplay
	}

	w.bitmap.Acknowledge(pending)
}

// manageSink pumps the display sink's event queue, a no-op when the
// worker has no attached sink (e.g. in tests).
func (w *Worker) manageSink(ctx context.Context) (fatal bool, err error) {
	if w.cfg.Display == nil {
		return false, nil
	}
	return w.cfg.Display.Manage(ctx)
}

// sleep blocks for d or until Close/SetChange/SubmitPicture wake the
// loop early, whichever comes first.
func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-w.CloseChan():
	case <-w.wake:
	case <-timer.C:
	}
}

// sleepUntil blocks until deadline truly arrives, reports whether it
// was instead cut short by Close. A SetChange/SubmitPicture wake during
// the wait does not end the wait early: the picture chosen by this tick
// is already committed to, so sleepUntil just recomputes the remaining
// time and keeps waiting rather than let tick present ahead of
// schedule.
func (w *Worker) sleepUntil(ctx context.Context, deadline time.Time) (closed bool) {
	for {
		d := time.Until(deadline)
		if d <= 0 {
			return false
		}
		timer := time.NewTimer(d)
		select {
		case <-w.CloseChan():
			timer.Stop()
			return true
		case <-w.wake:
			timer.Stop()
		case <-timer.C:
			timer.Stop()
			return false
		}
	}
}
