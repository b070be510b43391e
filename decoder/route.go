// route.go implements the decoder owner's worker loop and the
// routing-by-category dispatch: decoded units are routed to the
// video, audio, or subpicture sink based on the decoder's output
// category.

package decoder

import (
	"context"
	"fmt"
	"time"

	"github.com/mediacore/playbackcore/block"
	"github.com/mediacore/playbackcore/clock"
	"github.com/mediacore/playbackcore/contracts"
	"github.com/mediacore/playbackcore/coreerrors"
	"github.com/mediacore/playbackcore/logger"
	"github.com/mediacore/playbackcore/picture"
	"github.com/mediacore/playbackcore/subpicture"
)

// run is the decoder owner's worker loop: block on the FIFO, decode
// the dequeued block in a loop until the decoder yields no more
// output, then loop again. Its sole cancellation point is the FIFO
// wait.
func (o *Owner) run(ctx context.Context) {
	defer o.wg.Done()
	wake := o.CloseChan()

	for {
		blk, ok := o.fifo.pop(wake, o.consumeDraining)
		if !ok {
			return
		}
		if blk == nil {
			o.handleDrainSignal(ctx)
			continue
		}
		if blk.IsSentinel() {
			o.handleFlushSentinel(ctx)
			continue
		}
		o.decodeDispatch(ctx, blk)
	}
}

// decodeDispatch runs a packetizer pre-stage (if configured), then
// feeds the resulting block(s) through the decoder and routes every
// output unit by category. in == nil means the drain sentinel.
func (o *Owner) decodeDispatch(ctx context.Context, in *block.Block) {
	if o.errored.Load() {
		// Subsystem-fatal: keep draining the FIFO but drop inputs.
		return
	}

	toDecode := in
	if o.cfg.Packetizer != nil && in != nil {
		packetized, err := o.cfg.Packetizer.Packetize(ctx, in)
		if err != nil {
			logger.WarnFields(ctx, "packetizer error", nil)
			return
		}
		if o.cfg.Packetizer.HasFormatChanged() {
			if err := o.reloadLocked(ctx, packetized); err != nil {
				logger.ErrorFields(ctx, "decoder reload failed", nil)
				o.errored.Store(true)
				o.state.Store(int32(contracts.ThreadError))
				return
			}
		}
		toDecode = packetized
	}

	if in != nil && in.Flags.Has(block.Preroll) {
		o.extendPreroll(in.PTS)
	}
	if in != nil && in.Flags.Has(block.Discontinuity) {
		o.mu.Lock()
		o.prerollEnd = in.PTS
		o.mu.Unlock()
	}

	switch o.cfg.Decoder.Category() {
	case contracts.CategoryVideo:
		o.routeVideo(ctx, toDecode)
	case contracts.CategoryAudio:
		o.routeAudio(ctx, toDecode)
	case contracts.CategorySubpicture:
		o.routeSub(ctx, toDecode)
	}

	o.dispatchCC(ctx, in)
}

// extendPreroll advances prerollEnd to the maximum of in's PTS and the
// current watermark: the maximum of block timestamps observed while
// the preroll flag is set.
func (o *Owner) extendPreroll(pts int64) {
	o.mu.Lock()
	if pts > o.prerollEnd {
		o.prerollEnd = pts
	}
	o.mu.Unlock()
}

func (o *Owner) prerollWatermark() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.prerollEnd
}

// clearPrerollIfPast clears prerollEnd once a unit past the watermark
// has been observed: sinks are flushed and prerollEnd is cleared.
func (o *Owner) clearPrerollIfPast(ctx context.Context, ts int64) {
	o.mu.Lock()
	wasPrerolling := o.prerollEnd != 0
	pastWatermark := ts >= o.prerollEnd
	if wasPrerolling && pastWatermark {
		o.prerollEnd = 0
	}
	o.mu.Unlock()
	if wasPrerolling && pastWatermark {
		if o.videoSink != nil {
			_ = o.videoSink.Flush(ctx)
		}
		if o.audioSink != nil {
			_ = o.audioSink.Flush(ctx, false)
		}
	}
}

// routeVideo decodes a video block into zero or more pictures; each
// is preroll-filtered, timestamped under the owner lock,
// barrier-checked, flushed-on-rate-change, then submitted.
func (o *Owner) routeVideo(ctx context.Context, in *block.Block) {
	pics, err := o.cfg.Decoder.DecodeVideo(ctx, o.cfg.PictureHeap, in)
	if err != nil {
		logger.WarnFields(ctx, "video decode error", nil)
		return
	}
	for _, pic := range pics {
		o.cfg.Stats.Decoded.Inc()
		o.submitPicture(ctx, pic)
	}
}

// submitPicture handles one decoded picture. By the time the decoder
// plugin returns pic, it has already driven the two-phase commit to
// READY itself (Display() unconditionally, Date() with the picture's
// raw stream timestamp as a placeholder — see contracts.Decoder); the
// owner's job here is solely the clock conversion, preroll, and
// wait-unblock/rate-change handling, followed by overwriting the
// placeholder date with the real wall-clock one (the commit table's
// "update date" transition, since pic is already READY).
func (o *Owner) submitPicture(ctx context.Context, pic *picture.Picture) {
	if !pic.HasDate() {
		logger.Warnf(ctx, "video submit rejected: %v", coreerrors.ErrNonDatedUnit)
		o.cfg.PictureHeap.Discard(pic)
		return
	}
	rawPTS := pic.Date().UnixMicro()

	if watermark := o.prerollWatermark(); watermark != 0 && rawPTS < watermark {
		o.cfg.PictureHeap.Discard(pic)
		return
	}

	o.mu.Lock()
	wallTS, rate, err := o.cfg.ClockAdapter.ToWallClock(rawPTS, VOUTMaxPrepareTime)
	rateChanged := rate != o.lastRate
	o.lastRate = rate
	o.mu.Unlock()

	if err != nil {
		logger.WarnFields(ctx, "clock conversion failed for picture", nil)
		o.cfg.PictureHeap.Discard(pic)
		return
	}
	_ = o.cfg.PictureHeap.Date(pic, wallTS.Add(o.cfg.TSDelay))

	if reject := o.waitUnblock(); reject {
		o.cfg.PictureHeap.Discard(pic)
		return
	}

	if rateChanged && o.videoSink != nil {
		_ = o.videoSink.Flush(ctx)
	}

	if o.videoSink == nil {
		o.cfg.PictureHeap.Discard(pic)
		return
	}
	// Preroll must end, and any stale pictures it flushes out of the
	// heap must be gone, before this picture is itself submitted into
	// that same heap.
	o.clearPrerollIfPast(ctx, rawPTS)
	if err := o.videoSink.SubmitPicture(ctx, pic); err != nil {
		logger.WarnFields(ctx, "video submit failed", nil)
		o.cfg.PictureHeap.Discard(pic)
		return
	}
}

// routeAudio decodes an audio block like routeVideo, plus a deadline
// wait and a rate-bound rejection.
func (o *Owner) routeAudio(ctx context.Context, in *block.Block) {
	blocks, err := o.cfg.Decoder.DecodeAudio(ctx, in)
	if err != nil {
		logger.WarnFields(ctx, "audio decode error", nil)
		return
	}
	for _, ab := range blocks {
		o.submitAudio(ctx, ab)
	}
}

func (o *Owner) submitAudio(ctx context.Context, ab *contracts.AudioBlock) {
	defer o.recycleAudioBlock(ab)

	o.mu.Lock()
	wallTS, rate, err := o.cfg.ClockAdapter.ToWallClock(ab.PTS, AOUTMaxPrepareTime)
	o.mu.Unlock()
	if err != nil {
		logger.WarnFields(ctx, "clock conversion failed for audio block", nil)
		o.cfg.Stats.LostABuffers.Inc()
		return
	}

	if !audioRateInBounds(int(rate)) {
		err := fmt.Errorf("%w: rate %d", coreerrors.ErrRateOutOfBounds, rate)
		logger.Warnf(ctx, "audio submit rejected: %v", err)
		o.cfg.Stats.LostABuffers.Inc()
		return
	}

	deadline := wallTS.Add(o.cfg.TSDelay).Add(-AOUTMaxPrepareTime)
	if !o.waitDate(ctx, deadline) {
		return
	}

	if reject := o.waitUnblock(); reject {
		o.cfg.Stats.LostABuffers.Inc()
		return
	}

	if o.audioSink == nil {
		o.cfg.Stats.LostABuffers.Inc()
		return
	}
	o.clearPrerollIfPast(ctx, ab.PTS)
	if err := o.audioSink.Play(ctx, ab, int(rate)); err != nil {
		logger.WarnFields(ctx, "audio play failed", nil)
		o.cfg.Stats.LostABuffers.Inc()
		return
	}
	o.cfg.Stats.PlayedABuffers.Inc()
}

// audioRateInBounds bounds the accepted rate to
// [1/AOUTMaxInputRate, AOUTMaxInputRate] relative to clock.DefaultRate.
func audioRateInBounds(rate int) bool {
	if rate <= 0 {
		return false
	}
	lo := clock.DefaultRate / AOUTMaxInputRate
	hi := clock.DefaultRate * AOUTMaxInputRate
	return rate >= lo && rate <= hi
}

// routeSub fixes a subpicture unit's start/stop via the clock, waits
// until start - SPUMaxPrepareTime, then submits it.
func (o *Owner) routeSub(ctx context.Context, in *block.Block) {
	units, err := o.cfg.Decoder.DecodeSub(ctx, o.cfg.SubpictureHeap, in)
	if err != nil {
		logger.WarnFields(ctx, "subpicture decode error", nil)
		return
	}
	for _, u := range units {
		o.submitSub(ctx, u)
	}
}

func (o *Owner) submitSub(ctx context.Context, u *subpicture.Unit) {
	o.mu.Lock()
	wallBegin, _, errBegin := o.cfg.ClockAdapter.ToWallClock(u.Begin, SPUMaxPrepareTime)
	wallEnd, _, errEnd := o.cfg.ClockAdapter.ToWallClock(u.End, SPUMaxPrepareTime)
	o.mu.Unlock()
	if errBegin != nil || errEnd != nil {
		logger.WarnFields(ctx, "clock conversion failed for subpicture", nil)
		o.cfg.SubpictureHeap.Unlink(u)
		return
	}
	u.Begin = wallBegin.Add(o.cfg.TSDelay).UnixMicro()
	u.End = wallEnd.Add(o.cfg.TSDelay).UnixMicro()

	if !o.waitDate(ctx, wallBegin.Add(o.cfg.TSDelay).Add(-SPUMaxPrepareTime)) {
		return
	}

	if reject := o.waitUnblock(); reject {
		o.cfg.SubpictureHeap.Unlink(u)
		return
	}

	if o.subSink == nil {
		o.cfg.SubpictureHeap.Unlink(u)
		return
	}
	if err := o.subSink.SubmitSubpicture(ctx, u); err != nil {
		logger.WarnFields(ctx, "subpicture submit failed", nil)
		o.cfg.SubpictureHeap.Unlink(u)
		return
	}
}

// waitDate sleeps until deadline, returning false if the owner was
// closed in the meantime.
func (o *Owner) waitDate(ctx context.Context, deadline time.Time) bool {
	d := time.Until(deadline)
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-o.CloseChan():
		return false
	case <-ctx.Done():
		return false
	}
}
