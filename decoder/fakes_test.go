package decoder

import (
	"context"
	"sync"
	"time"

	"github.com/mediacore/playbackcore/block"
	"github.com/mediacore/playbackcore/clock"
	"github.com/mediacore/playbackcore/contracts"
	"github.com/mediacore/playbackcore/picture"
	"github.com/mediacore/playbackcore/resource"
	"github.com/mediacore/playbackcore/subpicture"
)

// fakeVideoDecoder is a minimal contracts.Decoder for CategoryVideo
// that drives the two-phase commit itself (Display unconditionally,
// Date with the block's raw PTS reinterpreted as a time.Time), exactly
// per contracts.Decoder's documented obligation.
type fakeVideoDecoder struct {
	heap *picture.Heap

	mu          sync.Mutex
	decodeCalls int
	drainCalls  int
	flushCalls  int
	closeCalls  int

	// onDecode, if set, is invoked (without the mutex held) before a
	// picture is created for a non-drain call.
	onDecode func(in *block.Block)

	// skipPicture, if set and true for a given input block, makes the
	// call count as a decode (flags on the block are still processed
	// by the owner regardless) but yield no picture at all, modeling a
	// block that only carries timing metadata.
	skipPicture func(in *block.Block) bool
}

var _ contracts.Decoder = (*fakeVideoDecoder)(nil)

func (d *fakeVideoDecoder) Category() contracts.Category { return contracts.CategoryVideo }

func (d *fakeVideoDecoder) DecodeVideo(ctx context.Context, heap *picture.Heap, in *block.Block) ([]*picture.Picture, error) {
	if in == nil {
		d.mu.Lock()
		d.drainCalls++
		d.mu.Unlock()
		return nil, nil
	}
	if d.onDecode != nil {
		d.onDecode(in)
	}
	d.mu.Lock()
	d.decodeCalls++
	d.mu.Unlock()

	if d.skipPicture != nil && d.skipPicture(in) {
		return nil, nil
	}

	pic, err := heap.Create(picture.FormatYUV420, 16, 16)
	if err != nil {
		return nil, err
	}
	if err := heap.Display(pic); err != nil {
		return nil, err
	}
	if err := heap.Date(pic, time.UnixMicro(in.PTS)); err != nil {
		return nil, err
	}
	return []*picture.Picture{pic}, nil
}

func (d *fakeVideoDecoder) DecodeAudio(ctx context.Context, in *block.Block) ([]*contracts.AudioBlock, error) {
	return nil, nil
}

func (d *fakeVideoDecoder) DecodeSub(ctx context.Context, heap *subpicture.Heap, in *block.Block) ([]*subpicture.Unit, error) {
	return nil, nil
}

func (d *fakeVideoDecoder) GetCC(ctx context.Context) (*block.Block, [4]bool, error) {
	return nil, [4]bool{}, nil
}

func (d *fakeVideoDecoder) Flush(ctx context.Context) error {
	d.mu.Lock()
	d.flushCalls++
	d.mu.Unlock()
	return nil
}

func (d *fakeVideoDecoder) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closeCalls++
	d.mu.Unlock()
	return nil
}

func (d *fakeVideoDecoder) snapshot() (decodeCalls, drainCalls, flushCalls, closeCalls int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.decodeCalls, d.drainCalls, d.flushCalls, d.closeCalls
}

// passthroughClock is a clock.Adapter that maps a stream timestamp
// (interpreted as microseconds) directly to the corresponding wall-clock
// instant, so tests can control presentation dates precisely without
// depending on wall-clock anchoring.
type passthroughClock struct {
	mu   sync.Mutex
	rate clock.Rate
}

var _ clock.Adapter = (*passthroughClock)(nil)

func newPassthroughClock() *passthroughClock {
	return &passthroughClock{rate: clock.DefaultRate}
}

func (c *passthroughClock) ToWallClock(streamTS int64, maxBound time.Duration) (time.Time, clock.Rate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.UnixMicro(streamTS), c.rate, nil
}

func (c *passthroughClock) CurrentRate() clock.Rate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

func (c *passthroughClock) SetRate(r clock.Rate) {
	c.mu.Lock()
	c.rate = r
	c.mu.Unlock()
}

// fakeVideoSink is a resource.VideoOutputHandle recording every picture
// submitted to it.
type fakeVideoSink struct {
	mu         sync.Mutex
	submitted  []*picture.Picture
	flushCalls int
}

func (s *fakeVideoSink) SubmitPicture(ctx context.Context, pic *picture.Picture) error {
	s.mu.Lock()
	s.submitted = append(s.submitted, pic)
	s.mu.Unlock()
	return nil
}

func (s *fakeVideoSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.flushCalls++
	s.mu.Unlock()
	return nil
}

func (s *fakeVideoSink) IsEmpty() bool { return true }

var _ resource.VideoOutputHandle = (*fakeVideoSink)(nil)

func (s *fakeVideoSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submitted)
}

// fakePacketizer is a contracts.Packetizer that passes blocks through
// unchanged and reports a format change exactly once, on demand.
type fakePacketizer struct {
	mu      sync.Mutex
	changed bool
	calls   int
}

var _ contracts.Packetizer = (*fakePacketizer)(nil)

func (p *fakePacketizer) Packetize(ctx context.Context, in *block.Block) (*block.Block, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return in, nil
}

func (p *fakePacketizer) HasFormatChanged() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	changed := p.changed
	p.changed = false
	return changed
}

func (p *fakePacketizer) triggerFormatChange() {
	p.mu.Lock()
	p.changed = true
	p.mu.Unlock()
}

func (p *fakePacketizer) Close(ctx context.Context) error { return nil }
