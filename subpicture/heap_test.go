package subpicture_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mediacore/playbackcore/subpicture"
)

func TestCreateAndReady(t *testing.T) {
	h := subpicture.NewHeap(2)
	u, err := h.Create(subpicture.Kind(1))
	require.NoError(t, err)
	require.Equal(t, subpicture.StatusReserved, u.Status())

	u.Begin, u.End = 1000, 2000
	require.NoError(t, h.Ready(u))
	require.Equal(t, subpicture.StatusReady, u.Status())
}

func TestReadyTwiceRejected(t *testing.T) {
	h := subpicture.NewHeap(1)
	u, err := h.Create(subpicture.Kind(0))
	require.NoError(t, err)
	require.NoError(t, h.Ready(u))
	require.Error(t, h.Ready(u))
}

func TestActiveAndExpiredWindow(t *testing.T) {
	h := subpicture.NewHeap(2)
	u, err := h.Create(subpicture.Kind(0))
	require.NoError(t, err)
	u.Begin, u.End = 1000, 2000
	require.NoError(t, h.Ready(u))

	require.Len(t, h.Active(1500), 1)
	require.Empty(t, h.Active(2500))
	require.Len(t, h.Expired(2500), 1)
}

func TestUnlinkDestroysAtZeroRefcount(t *testing.T) {
	h := subpicture.NewHeap(1)
	u, err := h.Create(subpicture.Kind(0))
	require.NoError(t, err)
	h.Link(u)
	require.NoError(t, h.Ready(u))

	h.Unlink(u)
	require.Equal(t, subpicture.StatusDestroyed, u.Status())
}

func TestHeapFull(t *testing.T) {
	h := subpicture.NewHeap(1)
	_, err := h.Create(subpicture.Kind(0))
	require.NoError(t, err)
	_, err = h.Create(subpicture.Kind(0))
	require.Error(t, err)
}
