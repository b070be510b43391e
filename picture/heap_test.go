package picture_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mediacore/playbackcore/picture"
)

func TestCreateAllocatesFreeSlot(t *testing.T) {
	h := picture.NewHeap(2)
	pic, err := h.Create(picture.FormatYUV420, 320, 240)
	require.NoError(t, err)
	require.Equal(t, picture.StatusReserved, pic.Status())
	require.Equal(t, 0, pic.RefCount())
	require.Equal(t, picture.AspectSquare, pic.AspectTag)
	require.Equal(t, picture.Rect{0, 0, 320, 240}, pic.Crop)
}

func TestHeapFullReturnsError(t *testing.T) {
	h := picture.NewHeap(1)
	_, err := h.Create(picture.FormatYUV420, 320, 240)
	require.NoError(t, err)

	_, err = h.Create(picture.FormatYUV420, 320, 240)
	require.Error(t, err)
}

func TestTwoPhaseCommitBothOrders(t *testing.T) {
	h := picture.NewHeap(4)

	pic, err := h.Create(picture.FormatYUV420, 64, 64)
	require.NoError(t, err)
	require.NoError(t, h.Display(pic))
	require.Equal(t, picture.StatusReservedDisp, pic.Status())
	require.NoError(t, h.Date(pic, time.Now()))
	require.Equal(t, picture.StatusReady, pic.Status())
	require.True(t, pic.HasDate())
	require.True(t, pic.HasDisplayRequest())

	pic2, err := h.Create(picture.FormatYUV420, 64, 64)
	require.NoError(t, err)
	require.NoError(t, h.Date(pic2, time.Now()))
	require.Equal(t, picture.StatusReservedDated, pic2.Status())
	require.NoError(t, h.Display(pic2))
	require.Equal(t, picture.StatusReady, pic2.Status())
}

func TestDateUpdateWhileReservedDated(t *testing.T) {
	h := picture.NewHeap(2)
	pic, err := h.Create(picture.FormatYUV420, 64, 64)
	require.NoError(t, err)

	t1 := time.Now()
	require.NoError(t, h.Date(pic, t1))
	require.Equal(t, picture.StatusReservedDated, pic.Status())

	t2 := t1.Add(time.Second)
	require.NoError(t, h.Date(pic, t2))
	require.Equal(t, picture.StatusReservedDated, pic.Status())
	require.Equal(t, t2, pic.Date())
}

func TestRefcountDestroysOnZeroWhileDisplayed(t *testing.T) {
	h := picture.NewHeap(2)
	pic, err := h.Create(picture.FormatYUV420, 64, 64)
	require.NoError(t, err)
	h.Link(pic)
	h.Link(pic)
	require.NoError(t, h.Display(pic))
	require.NoError(t, h.Date(pic, time.Now()))

	h.MarkDisplayed(pic)
	require.Equal(t, picture.StatusDisplayed, pic.Status())

	h.Unlink(pic)
	require.Equal(t, picture.StatusDisplayed, pic.Status(), "refcount still 1: must not be destroyed early (memory safety)")

	h.Unlink(pic)
	require.Equal(t, picture.StatusDestroyed, pic.Status())
}

func TestMarkDisplayedWithNoRefsGoesStraightToDestroyed(t *testing.T) {
	h := picture.NewHeap(2)
	pic, err := h.Create(picture.FormatYUV420, 64, 64)
	require.NoError(t, err)
	require.NoError(t, h.Display(pic))
	require.NoError(t, h.Date(pic, time.Now()))

	h.MarkDisplayed(pic)
	require.Equal(t, picture.StatusDestroyed, pic.Status())
}

func TestDestroyedSlotReusedVerbatimAtSameGeometry(t *testing.T) {
	h := picture.NewHeap(1)
	pic, err := h.Create(picture.FormatYUV420, 128, 96)
	require.NoError(t, err)
	require.NoError(t, h.Display(pic))
	require.NoError(t, h.Date(pic, time.Now()))
	h.MarkDisplayed(pic)
	require.Equal(t, picture.StatusDestroyed, pic.Status())

	planes := pic.Planes

	reused, err := h.Create(picture.FormatYUV420, 128, 96)
	require.NoError(t, err)
	require.Same(t, pic, reused)
	require.Equal(t, picture.StatusReserved, reused.Status())
	require.Same(t, &planes[0][0], &reused.Planes[0][0], "pixel memory must be reused verbatim, not reallocated")
}

func TestDestroyedSlotReallocatedAtDifferentGeometry(t *testing.T) {
	h := picture.NewHeap(1)
	pic, err := h.Create(picture.FormatYUV420, 128, 96)
	require.NoError(t, err)
	require.NoError(t, h.Display(pic))
	require.NoError(t, h.Date(pic, time.Now()))
	h.MarkDisplayed(pic)

	reused, err := h.Create(picture.FormatYUV420, 64, 64)
	require.NoError(t, err)
	require.Same(t, pic, reused)
	require.Equal(t, uint32(64), reused.Width)
}

func TestReadyPicturesOrderedBySlotIndexOnTies(t *testing.T) {
	h := picture.NewHeap(4)
	now := time.Now()

	var pics []*picture.Picture
	for i := 0; i < 3; i++ {
		p, err := h.Create(picture.FormatYUV420, 32, 32)
		require.NoError(t, err)
		require.NoError(t, h.Display(p))
		require.NoError(t, h.Date(p, now))
		pics = append(pics, p)
	}

	ready := h.ReadyPictures()
	require.Len(t, ready, 3)
	for i, p := range ready {
		require.Equal(t, pics[i].SlotIndex, p.SlotIndex)
		require.LessOrEqual(t, i, 2)
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	h := picture.NewHeap(1)
	pic, err := h.Create(picture.FormatYUV420, 16, 16)
	require.NoError(t, err)
	require.NoError(t, h.Display(pic))
	require.NoError(t, h.Date(pic, time.Now()))
	h.MarkDisplayed(pic)

	require.Error(t, h.Display(pic))
	require.Error(t, h.Date(pic, time.Now()))
}
