//go:build with_cv

// Package gocvdisplay adapts a gocv highgui window to
// contracts.DisplaySink, the reference "show it on screen" backend
// used by the demo command when built with the with_cv tag.
package gocvdisplay

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/mediacore/playbackcore/contracts"
)

// Sink presents BGRA buffers handed to it by the video output worker
// in a gocv highgui window. It owns no decoding or conversion logic:
// the worker's convert.Converter already produced the packed buffer
// this type merely blits.
type Sink struct {
	title string

	win *gocv.Window
	mat gocv.Mat

	width, height int
}

var _ contracts.DisplaySink = (*Sink)(nil)

// New constructs a Sink that will open its window lazily, on the first
// Init call, once the negotiated geometry is known.
func New(title string) *Sink {
	return &Sink{title: title}
}

// Init opens the highgui window at the requested geometry; gocv never
// renegotiates it, so the negotiated size always equals the request.
func (s *Sink) Init(ctx context.Context, width, height int) (int, int, contracts.DisplayBufferDescriptor, error) {
	s.width, s.height = width, height
	s.win = gocv.NewWindow(s.title)
	s.win.ResizeWindow(width, height)
	s.mat = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC4)

	return width, height, contracts.DisplayBufferDescriptor{
		Data:          s.mat.ToBytes(),
		BytesPerLine:  width * 4,
		BytesPerPixel: 4,
	}, nil
}

// Manage pumps gocv's underlying HighGUI event loop; a closed window
// is reported as fatal so the video output worker stops presenting to
// it rather than spinning against a dead sink.
func (s *Sink) Manage(ctx context.Context) (bool, error) {
	if s.win == nil {
		return true, fmt.Errorf("gocvdisplay: Manage called before Init")
	}
	s.win.WaitKey(1)
	if s.win.IsClosed() {
		return true, nil
	}
	return false, nil
}

// Display copies buf's bytes into the backing Mat and blits it.
func (s *Sink) Display(ctx context.Context, buf contracts.DisplayBufferDescriptor) error {
	if s.win == nil {
		return fmt.Errorf("gocvdisplay: Display called before Init")
	}
	raw, err := s.mat.DataPtrUint8()
	if err != nil {
		return fmt.Errorf("gocvdisplay: unable to access the backing buffer: %w", err)
	}
	copy(raw, buf.Data)
	s.win.IMShow(s.mat)
	return nil
}

func (s *Sink) Destroy(ctx context.Context) error {
	if s.win != nil {
		s.win.Close()
	}
	return s.mat.Close()
}
