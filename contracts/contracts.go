// contracts.go defines the narrow capability interfaces the core
// dispatches through. Concrete decoder plugins and display
// backends are out of scope for this repository; this
// package holds only the interfaces they must satisfy.
package contracts

import (
	"context"

	"github.com/mediacore/playbackcore/block"
	"github.com/mediacore/playbackcore/picture"
	"github.com/mediacore/playbackcore/subpicture"
)

// Category names a decoder's output kind, used by the decoder owner to
// route decoded units ("Routing by category").
type Category int

const (
	CategoryUnknown Category = iota
	CategoryVideo
	CategoryAudio
	CategorySubpicture
)

// AudioBlock is the opaque decoded-audio unit handed to an audio sink;
// the core never interprets its payload, only its timestamp and rate.
type AudioBlock struct {
	Payload  []byte
	PTS      int64
	Channels int
	Rate     int
}

// Decoder is the polymorphic decoder-plugin contract. A
// concrete decoder implements only the methods relevant to its
// Category; the others may return (nil, nil).
//
// DecodeVideo drives the two-phase commit table itself on every
// picture it returns: it must call heap.Display(pic) unconditionally
// and heap.Date(pic, ...) with the picture's raw stream timestamp
// reinterpreted as a time.Time (via time.UnixMicro(rawPTS)) before
// returning it, so the picture is already READY by the time the
// decoder owner sees it. The owner's job is solely to convert that
// placeholder date to a real wall-clock one — a second Date() call on
// an already-READY picture updates its date in place per the commit
// table.
type Decoder interface {
	Category() Category

	DecodeVideo(ctx context.Context, heap *picture.Heap, in *block.Block) ([]*picture.Picture, error)
	DecodeAudio(ctx context.Context, in *block.Block) ([]*AudioBlock, error)
	DecodeSub(ctx context.Context, heap *subpicture.Heap, in *block.Block) ([]*subpicture.Unit, error)

	// GetCC returns any closed-caption block multiplexed out of a video
	// decoder's most recent output, and which of up to four channels
	// carry data ("Closed captions").
	GetCC(ctx context.Context) (out *block.Block, present [4]bool, err error)

	// Flush resets internal decoder state in response to a flush
	// sentinel ("Flush").
	Flush(ctx context.Context) error

	Close(ctx context.Context) error
}

// Packetizer re-frames raw demuxed blocks into decoder-ready blocks
// when the input is not already pre-packetized ("Packetizer
// pre-stage").
type Packetizer interface {
	Packetize(ctx context.Context, in *block.Block) (*block.Block, error)

	// HasFormatChanged reports, and clears, the monotonic "description
	// was updated" flag ("Ordering guarantees").
	HasFormatChanged() bool

	Close(ctx context.Context) error
}

// DisplayBufferDescriptor exposes a display sink's actual backing
// memory for a render surface buffer ("buffer descriptor").
type DisplayBufferDescriptor struct {
	Data          []byte
	BytesPerLine  int
	BytesPerPixel int
}

// DisplaySink is the opaque display backend contract.
type DisplaySink interface {
	Init(ctx context.Context, width, height int) (negotiatedWidth, negotiatedHeight int, buf DisplayBufferDescriptor, err error)

	// Manage pumps the sink's event queue; fatal reports whether the
	// sink has entered an unrecoverable state.
	Manage(ctx context.Context) (fatal bool, err error)

	// Display presents the back buffer described by buf.
	Display(ctx context.Context, buf DisplayBufferDescriptor) error

	Destroy(ctx context.Context) error
}

// AudioSink is the opaque audio output backend contract.
type AudioSink interface {
	Play(ctx context.Context, b *AudioBlock, rate int) error
	Flush(ctx context.Context, wait bool) error
	ChangePause(ctx context.Context, paused bool, date int64) error
	GetResetLost() int
}

// ThreadState is a position in the create/destroy thread-status
// contract.
type ThreadState int

const (
	ThreadCreate ThreadState = iota
	ThreadStart
	ThreadReady
	ThreadEnd
	ThreadOver
	ThreadError
	ThreadFatal
)

func (s ThreadState) String() string {
	switch s {
	case ThreadCreate:
		return "CREATE"
	case ThreadStart:
		return "START"
	case ThreadReady:
		return "READY"
	case ThreadEnd:
		return "END"
	case ThreadOver:
		return "OVER"
	case ThreadError:
		return "ERROR"
	case ThreadFatal:
		return "FATAL"
	default:
		return "INVALID"
	}
}

// IsTerminal reports whether s is one of the contract's terminal
// states (OVER, ERROR, FATAL).
func (s ThreadState) IsTerminal() bool {
	return s == ThreadOver || s == ThreadError || s == ThreadFatal
}
