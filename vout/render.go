// render.go implements the video output worker's per-picture render
// pass: surface layout, dirty-area bookkeeping, colorspace conversion,
// and HUD/subpicture compositing.

package vout

import (
	"context"
	"fmt"

	"github.com/mediacore/playbackcore/contracts"
	"github.com/mediacore/playbackcore/hud"
	"github.com/mediacore/playbackcore/picture"
	"github.com/mediacore/playbackcore/surface"
)

// infoBarHeight and interfaceBarHeight size the fixed HUD strips;
// unrelated to the picture sub-rectangle.
const (
	infoBarHeight      = 20
	interfaceBarHeight = 24
	subpictureBarHeight = 40
)

// renderLocked must be called with changeLock held. It composites pic
// into the surface's back buffer: clear the dirty areas left over from
// the buffer's prior use, compute the sub-rectangle and register this
// render's own letterbox bands to be cleared the next time this buffer
// is used as back, dispatch the colorspace converter, then optionally
// draw the HUD and active subpictures.
func (w *Worker) renderLocked(pic *picture.Picture) {
	back := w.surface.Back()

	back.ClearDirty()

	rect := Layout(int(pic.Width), int(pic.Height), pic.AspectTag, w.surface.Width, w.surface.Height)
	markLetterbox(back, rect, w.surface.Width, w.surface.Height)

	if err := w.cfg.Converter.Convert(pic, back.Pixels, back.BytesPerLine, rect, w.tables); err != nil {
		return
	}
	back.PictureRect = rect

	nowMicros := pic.Date().UnixMicro()

	if w.showInfoOverlay {
		w.renderInfoOverlay(back)
	}
	if w.showInterface && w.cfg.Label != "" {
		w.renderInterfaceBar(back)
	}
	w.renderSubpictures(back, nowMicros)
}

// markLetterbox appends the rows outside rect, and the previous
// render's sub-rectangle if it moved, to back's dirty list so they get
// cleared the next time this buffer comes back around as the back buffer.
func markLetterbox(back *surface.Buffer, rect picture.Rect, sw, sh int) {
	if rect.Y > 0 {
		back.Dirty.Insert(surface.Span{Y0: 0, Y1: rect.Y})
	}
	if bottom := rect.Y + rect.H; bottom < sh {
		back.Dirty.Insert(surface.Span{Y0: bottom, Y1: sh})
	}
	if old := back.PictureRect; old != rect {
		back.Dirty.Insert(surface.Span{Y0: old.Y, Y1: old.Y + old.H})
	}
}

func (w *Worker) renderInfoOverlay(back *surface.Buffer) {
	text := fmt.Sprintf("fps %.1f  dec %d  shown %d  lost %d",
		w.fps.FPS(), w.cfg.Stats.Decoded.Load(), w.cfg.Stats.Displayed.Load(), w.cfg.Stats.LostPictures.Load())
	bounds := picture.Rect{X: 4, Y: 0, W: w.surface.Width - 8, H: infoBarHeight}
	touched := w.cfg.HUD.Print(back.Pixels, back.BytesPerLine, w.surface.Height, bounds, text, hud.Left, hud.Top)
	back.Dirty.Insert(surface.Span{Y0: touched.Y, Y1: touched.Y + touched.H})
}

func (w *Worker) renderInterfaceBar(back *surface.Buffer) {
	y := w.surface.Height - interfaceBarHeight
	bounds := picture.Rect{X: 4, Y: y, W: w.surface.Width - 8, H: interfaceBarHeight}
	touched := w.cfg.HUD.Print(back.Pixels, back.BytesPerLine, w.surface.Height, bounds, w.cfg.Label, hud.HCenter, hud.VCenter)
	back.Dirty.Insert(surface.Span{Y0: touched.Y, Y1: touched.Y + touched.H})
}

// renderSubpictures draws every subpicture unit active at nowMicros and
// unlinks every unit that has already expired. SPU render content is
// left unspecified beyond the status machine and scheduling contract;
// payloads are treated as UTF-8 caption text, the common case for the
// closed-caption sub-decoders this worker feeds.
func (w *Worker) renderSubpictures(back *surface.Buffer, nowMicros int64) {
	for _, u := range w.cfg.SubpictureHeap.Active(nowMicros) {
		text := string(u.Payload)
		if text == "" {
			continue
		}
		bounds := picture.Rect{
			X: 4,
			Y: w.surface.Height - subpictureBarHeight,
			W: w.surface.Width - 8,
			H: subpictureBarHeight,
		}
		touched := w.cfg.HUD.Print(back.Pixels, back.BytesPerLine, w.surface.Height, bounds, text, hud.HCenter, hud.Bottom)
		back.Dirty.Insert(surface.Span{Y0: touched.Y, Y1: touched.Y + touched.H})
	}
	for _, u := range w.cfg.SubpictureHeap.Expired(nowMicros) {
		w.cfg.SubpictureHeap.Unlink(u)
	}
}

// presentLocked must be called with changeLock held. It swaps the
// surface's buffers and hands the newly-front one to the display sink,
// unless the NoDisplay bit is currently toggled on.
func (w *Worker) presentLocked(ctx context.Context) error {
	w.surface.Swap()
	if w.noDisplay || w.cfg.Display == nil {
		return nil
	}
	front := w.surface.Front()
	return w.cfg.Display.Display(ctx, contracts.DisplayBufferDescriptor{
		Data:          front.Pixels,
		BytesPerLine:  front.BytesPerLine,
		BytesPerPixel: front.BytesPerPixel,
	})
}
