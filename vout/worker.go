// worker.go implements the video output worker: the display-clock-
// driven scheduler that picks the next ready picture by timestamp,
// waits until its display deadline, composites overlays, presents, and
// releases.

// Package vout implements the video output worker: the heap-driven
// scheduler that presents pictures and subpictures to an opaque
// display sink in strict non-decreasing date order.
package vout

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xaionaro-go/observability"

	"go.uber.org/atomic"

	"github.com/mediacore/playbackcore/contracts"
	"github.com/mediacore/playbackcore/convert"
	"github.com/mediacore/playbackcore/coreerrors"
	"github.com/mediacore/playbackcore/helpers/closuresignaler"
	"github.com/mediacore/playbackcore/hud"
	"github.com/mediacore/playbackcore/logger"
	"github.com/mediacore/playbackcore/picture"
	"github.com/mediacore/playbackcore/resource"
	"github.com/mediacore/playbackcore/stats"
	"github.com/mediacore/playbackcore/subpicture"
	"github.com/mediacore/playbackcore/surface"
	"github.com/mediacore/playbackcore/vout/changebitmap"
)

var (
	_ resource.VideoOutputHandle = (*Worker)(nil)
	_ resource.SubpictureHandle  = (*Worker)(nil)
)

// DisplayDelay is the early-policy horizon: a picture due more than
// this far in the future is treated as if none were chosen, rather
// than rendered ahead of schedule.
const DisplayDelay = 100 * time.Millisecond

// IdleSleep is the loop's sleep duration when no picture is ready to
// render at all.
const IdleSleep = 20 * time.Millisecond

// Config holds a Worker's construction-time dependencies.
type Config struct {
	Display contracts.DisplaySink

	// Width/Height are the worker's requested surface geometry; Init
	// asks the display sink for its actual geometry and the sink may
	// override them.
	Width, Height int

	PictureHeap    *picture.Heap
	SubpictureHeap *subpicture.Heap

	// Converter defaults to convert.Software{} if nil.
	Converter convert.Converter
	// HUD defaults to hud.NewRenderer() if nil.
	HUD *hud.Renderer

	ShowInfoOverlay bool
	ShowInterface   bool

	// Gamma/Grayscale seed the initial conversion tables; changed later
	// via SetGamma/SetGrayscale.
	Gamma     float64
	Grayscale bool

	// Label, if non-empty, is drawn in the interface bar when the
	// Interface bit is toggled on.
	Label string

	Stats *stats.Counters
}

// Worker is the video output worker: the scheduler that presents
// pictures and subpictures to an opaque display sink.
type Worker struct {
	*closuresignaler.ClosureSignaler

	cfg Config

	changeLock sync.Mutex
	surface    *surface.Surface
	tables     *convert.Tables
	bitmap     changebitmap.Bitmap
	fps        hud.FPSCounter

	gamma           float64
	grayscale       bool
	showInfoOverlay bool
	showInterface   bool
	noDisplay       bool

	errored atomic.Bool
	state   atomic.Int32

	wake chan struct{}
	wg   sync.WaitGroup

	bufW, bufH, bytesPerPixel, bytesPerLine int
}

// New constructs a Worker: it initializes the display sink (which may
// override geometry), allocates the render surface, builds the default
// YUV conversion tables, and starts the main loop goroutine.
func New(ctx context.Context, cfg Config) (*Worker, error) {
	if cfg.PictureHeap == nil {
		cfg.PictureHeap = picture.NewHeap(picture.DefaultCapacity)
	}
	if cfg.SubpictureHeap == nil {
		cfg.SubpictureHeap = subpicture.NewHeap(subpicture.DefaultCapacity)
	}
	if cfg.Converter == nil {
		cfg.Converter = convert.Software{}
	}
	if cfg.HUD == nil {
		cfg.HUD = hud.NewRenderer()
	}
	if cfg.Stats == nil {
		cfg.Stats = &stats.Counters{}
	}

	gamma := cfg.Gamma
	if gamma == 0 {
		gamma = 1.0
	}

	w := &Worker{
		ClosureSignaler: closuresignaler.New(),
		cfg:             cfg,
		tables:          convert.NewTables(gamma, cfg.Grayscale),
		gamma:           gamma,
		grayscale:       cfg.Grayscale,
		showInfoOverlay: cfg.ShowInfoOverlay,
		showInterface:   cfg.ShowInterface,
		wake:            make(chan struct{}, 1),
	}

	if cfg.Display != nil {
		negW, negH, buf, err := cfg.Display.Init(ctx, cfg.Width, cfg.Height)
		if err != nil {
			return nil, err
		}
		w.bufW, w.bufH = negW, negH
		w.bytesPerPixel = buf.BytesPerPixel
		w.bytesPerLine = buf.BytesPerLine
	} else {
		w.bufW, w.bufH = cfg.Width, cfg.Height
		w.bytesPerPixel = 4
		w.bytesPerLine = cfg.Width * 4
	}
	if w.bytesPerLine == 0 {
		w.bytesPerLine = w.bufW * w.bytesPerPixel
	}
	w.surface = surface.NewSurface(w.bufW, w.bufH, w.bytesPerLine, w.bytesPerPixel)

	w.state.Store(int32(contracts.ThreadStart))
	w.wg.Add(1)
	observability.Go(ctx, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorFields(ctx, "video output worker panicked", nil)
				w.errored.Store(true)
				w.state.Store(int32(contracts.ThreadFatal))
			}
		}()
		w.state.Store(int32(contracts.ThreadReady))
		w.run(ctx)
	})

	return w, nil
}

// State reports the worker's current position in the create/destroy
// thread-status contract.
func (w *Worker) State() contracts.ThreadState { return contracts.ThreadState(w.state.Load()) }

// Close requests the loop to exit on its next iteration, joins it, and
// tears down the display sink. It does not release picture or
// subpicture heap slots: cells still READY or linked stay as they are.
func (w *Worker) Close(ctx context.Context) error {
	w.state.Store(int32(contracts.ThreadEnd))
	w.ClosureSignaler.Close(ctx)
	w.signalWake()
	w.wg.Wait()

	if w.cfg.Display != nil {
		if err := w.cfg.Display.Destroy(ctx); err != nil {
			w.state.Store(int32(contracts.ThreadError))
			return err
		}
	}
	w.state.Store(int32(contracts.ThreadOver))
	return nil
}

// Stats returns the worker's counters.
func (w *Worker) Stats() *stats.Counters { return w.cfg.Stats }

// Heap returns the worker's picture heap, shared with decoder owners
// that decode video for this output: a decoder owner obtains its
// output pictures from this pool, via the worker.
func (w *Worker) Heap() *picture.Heap { return w.cfg.PictureHeap }

// SubpictureHeap returns the worker's subpicture heap.
func (w *Worker) SubpictureHeap() *subpicture.Heap { return w.cfg.SubpictureHeap }

// SubmitPicture registers the worker's reference to a newly decoded,
// already-READY picture by linking it, and nudges the loop out of its
// idle sleep so a picture with an imminent deadline doesn't wait out a
// stale sleep window.
func (w *Worker) SubmitPicture(ctx context.Context, pic *picture.Picture) error {
	if w.IsClosed() {
		return coreerrors.ErrClosed
	}
	w.cfg.PictureHeap.Link(pic)
	w.signalWake()
	return nil
}

// SubmitSubpicture registers the worker's reference to a newly decoded
// subpicture unit.
func (w *Worker) SubmitSubpicture(ctx context.Context, unit *subpicture.Unit) error {
	if w.IsClosed() {
		return coreerrors.ErrClosed
	}
	w.cfg.SubpictureHeap.Link(unit)
	w.signalWake()
	return nil
}

// Flush drops every currently READY picture without displaying it,
// used to discard now-stale frames on a rate change.
func (w *Worker) Flush(ctx context.Context) error {
	for _, pic := range w.cfg.PictureHeap.ReadyPictures() {
		w.cfg.PictureHeap.Discard(pic)
	}
	return nil
}

// IsEmpty reports whether the worker's picture heap currently holds no
// READY pictures.
func (w *Worker) IsEmpty() bool {
	return len(w.cfg.PictureHeap.ReadyPictures()) == 0
}

// SetChange marks a reconfiguration bit pending.
func (w *Worker) SetChange(bit changebitmap.Bit) {
	w.bitmap.Set(bit)
	w.signalWake()
}

// SetGamma stores a new gamma value and schedules a table rebuild.
func (w *Worker) SetGamma(gamma float64) {
	w.changeLock.Lock()
	w.gamma = gamma
	w.changeLock.Unlock()
	w.SetChange(changebitmap.Gamma)
}

// SetGrayscale stores a new grayscale flag and schedules a table
// rebuild.
func (w *Worker) SetGrayscale(grayscale bool) {
	w.changeLock.Lock()
	w.grayscale = grayscale
	w.changeLock.Unlock()
	w.SetChange(changebitmap.Grayscale)
}

// Errored reports whether the worker has latched a fatal error: an
// unauthorized change-bitmap bit (one neither the worker nor the sink
// declares), a fatal display-sink tick, or a recovered panic.
func (w *Worker) Errored() bool { return w.errored.Load() }

func (w *Worker) signalWake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// pickReady selects the READY picture with the smallest date, ties
// broken by slot index for a deterministic presentation order.
func pickReady(ready []*picture.Picture) *picture.Picture {
	if len(ready) == 0 {
		return nil
	}
	sort.Slice(ready, func(i, j int) bool {
		if !ready[i].Date().Equal(ready[j].Date()) {
			return ready[i].Date().Before(ready[j].Date())
		}
		return ready[i].SlotIndex < ready[j].SlotIndex
	})
	return ready[0]
}
