// Package astiavdecoder adapts an astiav (libav) codec context to
// contracts.Decoder, the video half of the decoder plugin contract.
// Audio/subpicture categories are left to sibling adapters; this one
// answers only Category() == contracts.CategoryVideo.
package astiavdecoder

import (
	"context"
	"fmt"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/davecgh/go-spew/spew"
	"github.com/xaionaro-go/xsync"

	"github.com/mediacore/playbackcore/block"
	"github.com/mediacore/playbackcore/contracts"
	"github.com/mediacore/playbackcore/logger"
	"github.com/mediacore/playbackcore/picture"
	"github.com/mediacore/playbackcore/subpicture"
)

// Config describes the codec a Decoder should open.
type Config struct {
	CodecID            astiav.CodecID
	CodecParameters    *astiav.CodecParameters
	HardwareDeviceType astiav.HardwareDeviceType
}

// Decoder wraps an astiav.CodecContext behind contracts.Decoder. It
// drives the picture heap's two-phase commit itself, per
// contracts.Decoder's documented obligation: every returned picture is
// already Display()ed and Date()d with its raw stream PTS before
// DecodeVideo returns.
type Decoder struct {
	locker xsync.RWMutex

	codec        *astiav.Codec
	codecContext *astiav.CodecContext
	frame        *astiav.Frame
	pkt          *astiav.Packet
	closer       *astikit.Closer
}

var _ contracts.Decoder = (*Decoder)(nil)

// New opens a video decoder for cfg.CodecID, optionally seeded from
// cfg.CodecParameters (container-supplied extradata/geometry).
func New(ctx context.Context, cfg Config) (_ *Decoder, _err error) {
	closer := astikit.NewCloser()
	defer func() {
		if _err != nil {
			closer.Close()
		}
	}()

	codec := astiav.FindDecoder(cfg.CodecID)
	if codec == nil {
		return nil, fmt.Errorf("astiavdecoder: no decoder registered for %v", cfg.CodecID)
	}

	codecContext := astiav.AllocCodecContext(codec)
	if codecContext == nil {
		return nil, fmt.Errorf("astiavdecoder: unable to allocate a codec context for %v", cfg.CodecID)
	}
	closer.Add(codecContext.Free)

	if cfg.CodecParameters != nil {
		logger.Tracef(ctx, "astiavdecoder: codec_parameters: %s", spew.Sdump(cfg.CodecParameters))
		if err := cfg.CodecParameters.ToCodecContext(codecContext); err != nil {
			return nil, fmt.Errorf("astiavdecoder: unable to copy codec parameters: %w", err)
		}
	}

	if err := codecContext.Open(codec, nil); err != nil {
		return nil, fmt.Errorf("astiavdecoder: unable to open the codec context: %w", err)
	}

	frame := astiav.AllocFrame()
	closer.Add(frame.Free)
	pkt := astiav.AllocPacket()
	closer.Add(pkt.Free)

	d := &Decoder{
		codec:        codec,
		codecContext: codecContext,
		frame:        frame,
		pkt:          pkt,
		closer:       closer,
	}
	return d, nil
}

func (d *Decoder) Category() contracts.Category { return contracts.CategoryVideo }

// DecodeVideo feeds in's payload through the codec context and drains
// every resulting frame into a newly allocated, already-READY picture
// (the contract DecodeVideo owes per contracts.Decoder). in == nil
// means the drain/None block ("decode_dispatch(ctx, nil)"):
// SendPacket(nil) flushes the internal reorder buffer without feeding
// new compressed data.
func (d *Decoder) DecodeVideo(ctx context.Context, heap *picture.Heap, in *block.Block) ([]*picture.Picture, error) {
	var out []*picture.Picture
	err := xsync.DoR1(ctx, &d.locker, func() error {
		d.pkt.Unref()
		if in != nil {
			if err := d.pkt.FromData(in.Payload); err != nil {
				return fmt.Errorf("astiavdecoder: unable to wrap the payload in a packet: %w", err)
			}
			d.pkt.SetPts(in.PTS)
			d.pkt.SetDts(in.PTS)
		}

		if err := d.codecContext.SendPacket(d.pkt); err != nil && err != astiav.ErrEagain && err != astiav.ErrEof {
			return fmt.Errorf("astiavdecoder: send_packet: %w", err)
		}

		for {
			err := d.codecContext.ReceiveFrame(d.frame)
			if err == astiav.ErrEagain || err == astiav.ErrEof {
				return nil
			}
			if err != nil {
				return fmt.Errorf("astiavdecoder: receive_frame: %w", err)
			}

			pic, err := framePicture(heap, d.frame)
			d.frame.Unref()
			if err != nil {
				logger.WarnFields(ctx, "astiavdecoder: dropping a frame", nil)
				continue
			}
			out = append(out, pic)
		}
	})
	return out, err
}

// framePicture copies f's planes into a freshly created picture sized
// and formatted to match, and commits it to READY via the two-phase
// table (Display unconditionally, Date with the raw PTS).
func framePicture(heap *picture.Heap, f *astiav.Frame) (*picture.Picture, error) {
	format, ok := pixelFormatOf(f.PixelFormat())
	if !ok {
		return nil, fmt.Errorf("astiavdecoder: unsupported pixel format %v", f.PixelFormat())
	}

	pic, err := heap.Create(format, uint32(f.Width()), uint32(f.Height()))
	if err != nil {
		return nil, err
	}

	linesize := f.Linesize()
	for i := range pic.Planes {
		srcLine := linesize[i]
		src, err := f.Data().Bytes(i)
		if err != nil {
			return nil, err
		}
		dstLine := pic.Pitch[i]
		rows := len(pic.Planes[i]) / dstLine
		for row := 0; row < rows; row++ {
			srcOff := row * srcLine
			dstOff := row * dstLine
			if srcOff+dstLine > len(src) {
				break
			}
			copy(pic.Planes[i][dstOff:dstOff+dstLine], src[srcOff:srcOff+dstLine])
		}
	}

	if err := heap.Display(pic); err != nil {
		return nil, err
	}
	if err := heap.Date(pic, picturePTS(f.Pts())); err != nil {
		return nil, err
	}
	return pic, nil
}

// picturePTS reinterprets a raw astiav frame PTS as the placeholder
// time.Time contracts.Decoder asks every decoder to stamp a picture
// with before returning it.
func picturePTS(rawPTS int64) time.Time {
	return time.UnixMicro(rawPTS)
}

func pixelFormatOf(pf astiav.PixelFormat) (picture.Format, bool) {
	switch pf {
	case astiav.PixelFormatYuv420P:
		return picture.FormatYUV420, true
	case astiav.PixelFormatYuv422P:
		return picture.FormatYUV422, true
	case astiav.PixelFormatYuv444P:
		return picture.FormatYUV444, true
	default:
		return picture.FormatUnknown, false
	}
}

func (d *Decoder) DecodeAudio(ctx context.Context, in *block.Block) ([]*contracts.AudioBlock, error) {
	return nil, nil
}

func (d *Decoder) DecodeSub(ctx context.Context, heap *subpicture.Heap, in *block.Block) ([]*subpicture.Unit, error) {
	return nil, nil
}

// GetCC returns no closed captions: this adapter never multiplexes a
// side channel out of the frame stream.
func (d *Decoder) GetCC(ctx context.Context) (*block.Block, [4]bool, error) {
	return nil, [4]bool{}, nil
}

func (d *Decoder) Flush(ctx context.Context) error {
	return xsync.DoR1(ctx, &d.locker, func() error {
		d.codecContext.FlushBuffers()
		return nil
	})
}

func (d *Decoder) Close(ctx context.Context) error {
	return xsync.DoR1(ctx, &d.locker, func() error {
		return d.closer.Close()
	})
}
