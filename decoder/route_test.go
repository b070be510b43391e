package decoder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mediacore/playbackcore/picture"
)

// TestSubmitPictureRejectsNonDatedUnit covers the decoder contract
// obligation that a picture reaching the owner is already READY with
// a date set: a picture that only went through Create+Display (never
// Date) must be discarded rather than passed to the clock adapter with
// a meaningless placeholder timestamp.
func TestSubmitPictureRejectsNonDatedUnit(t *testing.T) {
	dec := &fakeVideoDecoder{}
	sink := &fakeVideoSink{}
	o, heap := newTestOwner(t, dec, sink)

	pic, err := heap.Create(picture.FormatYUV420, 16, 16)
	require.NoError(t, err)
	require.NoError(t, heap.Display(pic))
	require.False(t, pic.HasDate())

	o.submitPicture(context.Background(), pic)

	require.Equal(t, 0, sink.count())
	require.Equal(t, picture.StatusDestroyed, pic.Status())
}
