// reload.go implements the decoder-reload-on-format-change path: if
// the packetizer's output format changes mid-stream, the owner drains
// and reloads the decoder module with the new format. The packetizer
// is re-entered with the same accumulated block queue — the owner
// does not drop blocks already queued ahead of the format-changing
// block; it drains the old decoder, then continues decoding with the
// new one, starting with the block that carried the new format.

package decoder

import (
	"context"
	"fmt"

	"github.com/mediacore/playbackcore/block"
	"github.com/mediacore/playbackcore/contracts"
	"github.com/mediacore/playbackcore/coreerrors"
	"github.com/mediacore/playbackcore/logger"
)

// DecoderFactory constructs a replacement contracts.Decoder once the
// packetizer reports a format change, given the block whose packetized
// form first carries the new format. Config.Decoder is the initial
// decoder; reload happens only when Config.DecoderFactory is set.
type DecoderFactory func(ctx context.Context, formatSample *block.Block) (contracts.Decoder, error)

// reloadLocked drains the current decoder ("Drain": pushes a
// None block through it) and swaps in a freshly constructed one for
// the new format. The block stream itself is never reordered: the
// packetized block that triggered the reload is decoded by the new
// decoder, not dropped.
func (o *Owner) reloadLocked(ctx context.Context, formatSample *block.Block) error {
	logger.Infof(ctx, "decoder owner %s: reloading decoder for format change", o.cfg.StreamID)

	if o.cfg.DecoderFactory == nil {
		return fmt.Errorf("%w: packetizer reported a format change but no DecoderFactory is configured", coreerrors.ErrDecoderLoadFailure)
	}

	// Drain: push whatever the current decoder still has buffered to
	// its sink before discarding it ("Drain").
	o.decodeDispatch(ctx, nil)

	if err := o.cfg.Decoder.Close(ctx); err != nil {
		logger.Warnf(ctx, "decoder owner %s: closing old decoder: %v", o.cfg.StreamID, err)
	}

	next, err := o.cfg.DecoderFactory(ctx, formatSample)
	if err != nil {
		return fmt.Errorf("%w: %w", coreerrors.ErrDecoderLoadFailure, err)
	}
	o.cfg.Decoder = next
	return nil
}
