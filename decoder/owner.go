// owner.go implements the per-stream decoder owner: the
// producer/consumer bridge between a compressed-block FIFO and a
// video/audio/subpicture sink.

// Package decoder implements the decoder owner: the worker that
// mediates between a compressed input FIFO and an output sink,
// enforcing clock conversion, preroll, pause, wait-for-first-frame,
// flush, drain, and dynamic format reconfiguration.
package decoder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xaionaro-go/observability"
	"go.uber.org/atomic"

	"github.com/mediacore/playbackcore/block"
	"github.com/mediacore/playbackcore/clock"
	"github.com/mediacore/playbackcore/contracts"
	"github.com/mediacore/playbackcore/helpers/closuresignaler"
	"github.com/mediacore/playbackcore/logger"
	"github.com/mediacore/playbackcore/picture"
	"github.com/mediacore/playbackcore/pool"
	"github.com/mediacore/playbackcore/resource"
	"github.com/mediacore/playbackcore/stats"
	"github.com/mediacore/playbackcore/subpicture"
)

// AOUTMaxPrepareTime bounds how early an audio block is submitted
// ahead of its deadline ("Audio": "wait until deadline -
// AOUT_MAX_PREPARE_TIME").
const AOUTMaxPrepareTime = 200 * time.Millisecond

// SPUMaxPrepareTime is the subpicture analogue of AOUTMaxPrepareTime
// ("Subpicture").
const SPUMaxPrepareTime = 100 * time.Millisecond

// VOUTMaxPrepareTime is the picture analogue of AOUTMaxPrepareTime: the
// clock adapter rejects a picture timestamp that converts to more than
// this far behind the current anchor as a bad conversion rather than a
// normal jittery timestamp.
const VOUTMaxPrepareTime = 200 * time.Millisecond

// AOUTMaxInputRate bounds the accepted audio rate deviation relative to
// clock.DefaultRate ("reject if rate is outside
// [1/AOUT_MAX_INPUT_RATE, AOUT_MAX_INPUT_RATE]").
const AOUTMaxInputRate = 3

// Config holds a decoder owner's fixed, construction-time dependencies
// ("no CLI surface at this layer": no file/env parsing here).
type Config struct {
	StreamID     string
	Decoder      contracts.Decoder
	Packetizer   contracts.Packetizer // nil when input is pre-packetized
	// DecoderFactory constructs a replacement decoder when Packetizer
	// reports a format change mid-stream ("Packetizer
	// pre-stage"). Required only if Packetizer is set.
	DecoderFactory DecoderFactory
	ClockAdapter   clock.Adapter
	Broker         resource.Broker

	// PictureHeap is required when Decoder.Category() == CategoryVideo.
	PictureHeap *picture.Heap
	// SubpictureHeap is required when Decoder.Category() ==
	// CategorySubpicture, including for CC sub-decoders.
	SubpictureHeap *subpicture.Heap

	// TSDelay is the fixed timestamp delay offset applied to every
	// converted wall-clock date ("timestamp delay offset").
	TSDelay time.Duration

	// AudioBlockPool recycles *contracts.AudioBlock instances between
	// the audio decoder plugin and the owner, so a steady stream of
	// short audio buffers doesn't churn the allocator. Built
	// automatically for CategoryAudio decoders if left nil; an audio
	// decoder adapter may call Owner.AudioBlockPool().Get() instead of
	// allocating its own blocks.
	AudioBlockPool *pool.Pool[contracts.AudioBlock]

	Stats *stats.Counters
}

// Owner is the per-stream decoder owner.
type Owner struct {
	*closuresignaler.ClosureSignaler

	cfg  Config
	fifo *fifo

	mu          sync.Mutex
	requestCond *sync.Cond
	ackCond     *sync.Cond

	paused      bool
	waiting     bool
	hasData     bool
	first       bool
	flushing    bool
	pauseIgnore int

	draining atomic.Bool
	drained  atomic.Bool
	idle     atomic.Bool
	errored  atomic.Bool
	state    atomic.Int32

	prerollEnd int64
	lastRate   clock.Rate

	videoSink resource.VideoOutputHandle
	audioSink contracts.AudioSink
	subSink   resource.SubpictureHandle

	cc [4]*ccDecoder

	wg sync.WaitGroup
}

// New constructs and starts a decoder owner: it acquires the sink
// matching cfg.Decoder.Category() from cfg.Broker and launches the
// worker goroutine ("Decoder owners are created at stream
// attach").
func New(ctx context.Context, cfg Config) (*Owner, error) {
	if cfg.Decoder == nil {
		return nil, fmt.Errorf("decoder: Config.Decoder is required")
	}
	if cfg.ClockAdapter == nil {
		return nil, fmt.Errorf("decoder: Config.ClockAdapter is required")
	}
	if cfg.Stats == nil {
		cfg.Stats = &stats.Counters{}
	}
	if cfg.AudioBlockPool == nil && cfg.Decoder.Category() == contracts.CategoryAudio {
		cfg.AudioBlockPool = pool.NewPool(
			func() *contracts.AudioBlock { return &contracts.AudioBlock{} },
			func(ab *contracts.AudioBlock) {
				ab.Payload = ab.Payload[:0]
				ab.PTS = 0
				ab.Channels = 0
				ab.Rate = 0
			},
			func(*contracts.AudioBlock) {},
		)
	}

	o := &Owner{
		ClosureSignaler: closuresignaler.New(),
		cfg:             cfg,
		fifo:            newFIFO(),
		first:           true,
		lastRate:        clock.DefaultRate,
	}
	o.requestCond = sync.NewCond(&o.mu)
	o.ackCond = sync.NewCond(&o.mu)

	if cfg.Broker != nil {
		switch cfg.Decoder.Category() {
		case contracts.CategoryVideo:
			sink, err := cfg.Broker.AcquireVideoOutput(ctx, cfg.StreamID)
			if err != nil {
				return nil, fmt.Errorf("decoder: acquiring video output: %w", err)
			}
			o.videoSink = sink
		case contracts.CategoryAudio:
			sink, err := cfg.Broker.AcquireAudioOutput(ctx, cfg.StreamID)
			if err != nil {
				return nil, fmt.Errorf("decoder: acquiring audio output: %w", err)
			}
			o.audioSink = sink
		case contracts.CategorySubpicture:
			sink, err := cfg.Broker.AcquireSubpictureOutput(ctx, cfg.StreamID)
			if err != nil {
				return nil, fmt.Errorf("decoder: acquiring subpicture output: %w", err)
			}
			o.subSink = sink
		}
	}

	o.state.Store(int32(contracts.ThreadStart))
	o.wg.Add(1)
	observability.Go(ctx, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorFields(ctx, "decoder owner worker panicked", nil)
				o.errored.Store(true)
				o.state.Store(int32(contracts.ThreadFatal))
			}
		}()
		o.state.Store(int32(contracts.ThreadReady))
		o.run(ctx)
	})

	return o, nil
}

// State reports the owner worker's current position in the
// create/destroy thread-status contract.
func (o *Owner) State() contracts.ThreadState { return contracts.ThreadState(o.state.Load()) }

// Stats returns the owner's counters.
func (o *Owner) Stats() *stats.Counters { return o.cfg.Stats }

// AudioBlockPool returns the owner's audio block recycling pool, nil
// for non-audio owners.
func (o *Owner) AudioBlockPool() *pool.Pool[contracts.AudioBlock] { return o.cfg.AudioBlockPool }

// FIFOOccupancy reports the input FIFO's current byte accounting total.
func (o *Owner) FIFOOccupancy() int { return o.fifo.occupiedBytes() }

func (o *Owner) recycleAudioBlock(ab *contracts.AudioBlock) {
	if o.cfg.AudioBlockPool != nil {
		o.cfg.AudioBlockPool.Put(ab)
	}
}

// Errored reports whether the owner has latched a subsystem-fatal
// error ("the subsystem continues to accept inputs but drops
// them until deletion").
func (o *Owner) Errored() bool { return o.errored.Load() }

// Close cancels the worker at its sole cancellation point (the FIFO
// wait), joins it deterministically, releases CC sub-decoders, and
// returns the owner's sink to the broker. It clears paused/waiting,
// sets flushing, signals request, joins, then tears down.
func (o *Owner) Close(ctx context.Context) error {
	o.state.Store(int32(contracts.ThreadEnd))

	o.mu.Lock()
	o.paused = false
	o.waiting = false
	o.flushing = true
	o.mu.Unlock()
	o.requestCond.Broadcast()

	o.ClosureSignaler.Close(ctx)
	o.fifo.wakeAll()
	o.wg.Wait()

	for i, cc := range o.cc {
		if cc == nil {
			continue
		}
		if err := cc.owner.Close(ctx); err != nil {
			logger.Warnf(ctx, "cc[%d] close: %v", i, err)
		}
	}

	var errs []error
	if err := o.cfg.Decoder.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if o.cfg.Packetizer != nil {
		if err := o.cfg.Packetizer.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if o.cfg.Broker != nil {
		switch o.cfg.Decoder.Category() {
		case contracts.CategoryVideo:
			o.cfg.Broker.ReleaseVideoOutput(ctx, o.cfg.StreamID, o.videoSink)
		case contracts.CategoryAudio:
			o.cfg.Broker.ReleaseAudioOutput(ctx, o.cfg.StreamID, o.audioSink)
		case contracts.CategorySubpicture:
			o.cfg.Broker.ReleaseSubpictureOutput(ctx, o.cfg.StreamID, o.subSink)
		}
	}

	if len(errs) == 0 {
		o.state.Store(int32(contracts.ThreadOver))
		return nil
	}
	o.state.Store(int32(contracts.ThreadError))
	if len(errs) == 1 {
		return errs[0]
	}
	return fmt.Errorf("decoder: close: %v", errs)
}

// InputBlock enqueues a compressed input block for the owner's worker.
// It is the producer-facing counterpart to input_decode and
// is further exercised through InputDecode for the pacing policy.
func (o *Owner) InputBlock(b *block.Block) {
	o.fifo.push(b)
}

func (o *Owner) isClosed() bool {
	return o.ClosureSignaler.IsClosed()
}
