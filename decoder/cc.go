// cc.go implements closed-caption sub-stream multiplexing out of a
// video decoder. Up to four CC sub-streams are multiplexed from the
// video decoder's GetCC method; for each enabled channel, the owner
// spawns a sub-decoder whose input FIFO is fed with CC blocks
// (duplicated when multiple channels consume the same block).

package decoder

import (
	"context"
	"fmt"

	"github.com/mediacore/playbackcore/block"
	"github.com/mediacore/playbackcore/contracts"
	"github.com/mediacore/playbackcore/logger"
	"github.com/mediacore/playbackcore/resource"
)

// ccDecoder is one enabled closed-caption channel: a full decoder.Owner
// reinvoked over the same narrow decoder/sink interface.
type ccDecoder struct {
	channel int
	owner   *Owner
}

// EnableCC spawns a sub-decoder for channel (0-3) that will receive
// every CC block the video decoder multiplexes out for that channel.
// EnableCC is a no-op if channel is already enabled.
func (o *Owner) EnableCC(ctx context.Context, channel int, dec contracts.Decoder, sink resource.SubpictureHandle) error {
	if channel < 0 || channel > 3 {
		return fmt.Errorf("decoder: cc channel %d out of range [0,3]", channel)
	}
	if o.cc[channel] != nil {
		return nil
	}

	sub, err := New(ctx, Config{
		StreamID:       fmt.Sprintf("%s/cc%d", o.cfg.StreamID, channel),
		Decoder:        dec,
		ClockAdapter:   o.cfg.ClockAdapter,
		SubpictureHeap: o.cfg.SubpictureHeap,
		TSDelay:        o.cfg.TSDelay,
		Stats:          o.cfg.Stats,
	})
	if err != nil {
		return fmt.Errorf("decoder: spawning cc[%d] sub-decoder: %w", channel, err)
	}
	sub.subSink = sink
	o.cc[channel] = &ccDecoder{channel: channel, owner: sub}
	return nil
}

// DisableCC tears down channel's sub-decoder, if any.
func (o *Owner) DisableCC(ctx context.Context, channel int) error {
	if channel < 0 || channel > 3 || o.cc[channel] == nil {
		return nil
	}
	err := o.cc[channel].owner.Close(ctx)
	o.cc[channel] = nil
	return err
}

// dispatchCC asks the video decoder for any CC block multiplexed out of
// its most recent output and fans it out to every enabled channel that
// claims it, duplicating the block when more than one channel consumes
// it. in == nil (the drain signal) never carries CC.
func (o *Owner) dispatchCC(ctx context.Context, in *block.Block) {
	if in == nil || o.cfg.Decoder.Category() != contracts.CategoryVideo {
		return
	}

	ccBlock, present, err := o.cfg.Decoder.GetCC(ctx)
	if err != nil {
		logger.Warnf(ctx, "decoder owner %s: GetCC: %v", o.cfg.StreamID, err)
		return
	}
	if ccBlock == nil {
		return
	}

	for ch := 0; ch < 4; ch++ {
		if !present[ch] || o.cc[ch] == nil {
			continue
		}
		dup := *ccBlock
		dup.Payload = append([]byte(nil), ccBlock.Payload...)
		o.cc[ch].owner.InputBlock(&dup)
	}
}
