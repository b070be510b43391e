// broker.go implements an ownership-by-resource-manager pattern: the
// decoder owner borrows its sinks from an external broker and returns
// them on shutdown, so no cyclic owning reference exists between an
// owner and its sink.

// Package resource defines the narrow broker interface the decoder
// owner uses to acquire and release its output sinks, plus a static
// reference implementation for tests and the demo command.
package resource

import (
	"context"
	"fmt"
	"sync"

	"github.com/mediacore/playbackcore/contracts"
	"github.com/mediacore/playbackcore/picture"
	"github.com/mediacore/playbackcore/subpicture"
)

// Broker lends sinks to decoder owners. Acquire calls are keyed by an
// opaque stream identifier so one broker can serve multiple streams
// (e.g. one video output shared by a primary video stream and another
// borrowing it for a brief transition).
type Broker interface {
	AcquireVideoOutput(ctx context.Context, streamID string) (VideoOutputHandle, error)
	AcquireAudioOutput(ctx context.Context, streamID string) (contracts.AudioSink, error)
	AcquireSubpictureOutput(ctx context.Context, streamID string) (SubpictureHandle, error)

	ReleaseVideoOutput(ctx context.Context, streamID string, h VideoOutputHandle)
	ReleaseAudioOutput(ctx context.Context, streamID string, sink contracts.AudioSink)
	ReleaseSubpictureOutput(ctx context.Context, streamID string, h SubpictureHandle)
}

// VideoOutputHandle is the subset of a video output worker the decoder
// owner needs: a way to hand it newly decoded pictures, to ask it to
// flush stale frames on a rate change, and to observe whether it has
// finished presenting everything queued (drain completeness).
type VideoOutputHandle interface {
	SubmitPicture(ctx context.Context, pic *picture.Picture) error
	Flush(ctx context.Context) error
	IsEmpty() bool
}

// SubpictureHandle is the subset of subpicture handling the decoder
// owner needs to submit a decoded unit for display.
type SubpictureHandle interface {
	SubmitSubpicture(ctx context.Context, unit *subpicture.Unit) error
}

// ErrUnknownStream is returned by a broker when asked to acquire or
// release a sink for a stream it has no mapping for.
func ErrUnknownStream(streamID string) error {
	return fmt.Errorf("resource broker: unknown stream %q", streamID)
}

// StaticBroker is a reference Broker that hands out a fixed, externally
// constructed set of sinks regardless of streamID. It never refuses an
// Acquire call for a sink it was configured with and never actually
// owns the sinks it lends — Release is a no-op. Nothing internal to
// this package holds a cyclic owning reference; StaticBroker merely
// vends references it was handed at construction.
type StaticBroker struct {
	mu sync.Mutex

	Video      VideoOutputHandle
	Audio      contracts.AudioSink
	Subpicture SubpictureHandle
}

var _ Broker = (*StaticBroker)(nil)

// NewStaticBroker constructs a broker that always lends the same three
// sinks. Any of them may be nil if the demo/test has no use for that
// category.
func NewStaticBroker(video VideoOutputHandle, audio contracts.AudioSink, sub SubpictureHandle) *StaticBroker {
	return &StaticBroker{Video: video, Audio: audio, Subpicture: sub}
}

func (b *StaticBroker) AcquireVideoOutput(ctx context.Context, streamID string) (VideoOutputHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Video == nil {
		return nil, ErrUnknownStream(streamID)
	}
	return b.Video, nil
}

func (b *StaticBroker) AcquireAudioOutput(ctx context.Context, streamID string) (contracts.AudioSink, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Audio == nil {
		return nil, ErrUnknownStream(streamID)
	}
	return b.Audio, nil
}

func (b *StaticBroker) AcquireSubpictureOutput(ctx context.Context, streamID string) (SubpictureHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Subpicture == nil {
		return nil, ErrUnknownStream(streamID)
	}
	return b.Subpicture, nil
}

func (b *StaticBroker) ReleaseVideoOutput(ctx context.Context, streamID string, h VideoOutputHandle) {}

func (b *StaticBroker) ReleaseAudioOutput(ctx context.Context, streamID string, sink contracts.AudioSink) {}

func (b *StaticBroker) ReleaseSubpictureOutput(ctx context.Context, streamID string, h SubpictureHandle) {}
