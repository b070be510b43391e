// Command mediacoreplay demuxes a media file with astiav, decodes its
// first video stream through a decoder owner, and presents it either
// through a gocv window (built with -tags with_cv) or, by default,
// nowhere but the stats line — a minimal end-to-end wiring of the
// core's pieces, not a full media player.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt"
	belttool "github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/observability"

	"github.com/mediacore/playbackcore/adapters/astiavdecoder"
	"github.com/mediacore/playbackcore/block"
	"github.com/mediacore/playbackcore/clock"
	"github.com/mediacore/playbackcore/decoder"
	"github.com/mediacore/playbackcore/logger"
	"github.com/mediacore/playbackcore/picture"
	"github.com/mediacore/playbackcore/resource"
	"github.com/mediacore/playbackcore/stats"
	"github.com/mediacore/playbackcore/vout"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s <input-file>\n", os.Args[0])
	}

	loggerLevel := belttool.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	gamma := pflag.Float64("gamma", 1.0, "initial gamma correction applied by the video output worker")
	pflag.Parse()
	if len(pflag.Args()) != 1 {
		pflag.Usage()
		os.Exit(1)
	}
	inputPath := pflag.Arg(0)

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer belt.Flush(ctx)

	if err := run(ctx, inputPath, *gamma); err != nil {
		l.Fatal(err)
	}
}

func run(ctx context.Context, inputPath string, gamma float64) error {
	fmtCtx := astiav.AllocFormatContext()
	if fmtCtx == nil {
		return fmt.Errorf("mediacoreplay: unable to allocate a format context")
	}
	defer fmtCtx.Free()

	if err := fmtCtx.OpenInput(inputPath, nil, nil); err != nil {
		return fmt.Errorf("mediacoreplay: opening %q: %w", inputPath, err)
	}
	defer fmtCtx.CloseInput()

	if err := fmtCtx.FindStreamInfo(nil); err != nil {
		return fmt.Errorf("mediacoreplay: finding stream info: %w", err)
	}

	var videoStreamIndex = -1
	var codecParameters *astiav.CodecParameters
	var timeBase astiav.Rational
	for _, s := range fmtCtx.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			videoStreamIndex = s.Index()
			codecParameters = s.CodecParameters()
			timeBase = s.TimeBase()
			break
		}
	}
	if videoStreamIndex < 0 {
		return fmt.Errorf("mediacoreplay: %q has no video stream", inputPath)
	}

	dec, err := astiavdecoder.New(ctx, astiavdecoder.Config{
		CodecID:         codecParameters.CodecID(),
		CodecParameters: codecParameters,
	})
	if err != nil {
		return fmt.Errorf("mediacoreplay: opening the video decoder: %w", err)
	}

	pictureHeap := picture.NewHeap(picture.DefaultCapacity)
	counters := &stats.Counters{}

	display := displaySink(inputPath)
	worker, err := vout.New(ctx, vout.Config{
		Display:     display,
		Width:       codecParameters.Width(),
		Height:      codecParameters.Height(),
		PictureHeap: pictureHeap,
		Gamma:       gamma,
		Label:       inputPath,
		Stats:       counters,
	})
	if err != nil {
		return fmt.Errorf("mediacoreplay: starting the video output worker: %w", err)
	}
	defer worker.Close(ctx)

	broker := resource.NewStaticBroker(worker, nil, nil)
	owner, err := decoder.New(ctx, decoder.Config{
		StreamID:     inputPath,
		Decoder:      dec,
		ClockAdapter: clock.NewLinear(clock.Rational{Num: int64(timeBase.Num()), Den: int64(timeBase.Den())}),
		Broker:       broker,
		PictureHeap:  pictureHeap,
		Stats:        counters,
	})
	if err != nil {
		return fmt.Errorf("mediacoreplay: starting the decoder owner: %w", err)
	}
	defer owner.Close(ctx)

	observability.Go(ctx, func(ctx context.Context) {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				logger.Infof(ctx, "worker: %s | owner fifo: %s", counters, stats.FIFOOccupancy(owner.FIFOOccupancy()))
			}
		}
	})

	pkt := astiav.AllocPacket()
	defer pkt.Free()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := fmtCtx.ReadFrame(pkt); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				owner.Drain()
				return nil
			}
			return fmt.Errorf("mediacoreplay: reading a frame: %w", err)
		}
		if pkt.StreamIndex() != videoStreamIndex {
			pkt.Unref()
			continue
		}

		payload := make([]byte, len(pkt.Data()))
		copy(payload, pkt.Data())
		owner.InputBlock(&block.Block{Payload: payload, PTS: pkt.Pts()})
		pkt.Unref()
	}
}
