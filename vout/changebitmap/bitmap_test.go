package changebitmap_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mediacore/playbackcore/vout/changebitmap"
)

func TestBitmapSetPendingAcknowledge(t *testing.T) {
	var m changebitmap.Bitmap
	require.Equal(t, changebitmap.Bit(0), m.Pending())

	m.Set(changebitmap.Gamma)
	m.Set(changebitmap.Interface)
	require.True(t, m.IsSet(changebitmap.Gamma))
	require.True(t, m.IsSet(changebitmap.Interface))
	require.False(t, m.IsSet(changebitmap.Scale))

	m.Acknowledge(changebitmap.Gamma)
	require.False(t, m.IsSet(changebitmap.Gamma))
	require.True(t, m.IsSet(changebitmap.Interface))
}

func TestHasBitOrAndNotStaticCombinators(t *testing.T) {
	gammaOrGrayscale := changebitmap.Or{changebitmap.HasBit(changebitmap.Gamma), changebitmap.HasBit(changebitmap.Grayscale)}
	require.True(t, gammaOrGrayscale.Match(changebitmap.Snapshot(changebitmap.Gamma)))
	require.True(t, gammaOrGrayscale.Match(changebitmap.Snapshot(changebitmap.Grayscale)))
	require.False(t, gammaOrGrayscale.Match(changebitmap.Snapshot(changebitmap.Scale)))

	neitherGammaNorScale := changebitmap.And{
		changebitmap.Not{Condition: changebitmap.HasBit(changebitmap.Gamma)},
		changebitmap.Not{Condition: changebitmap.HasBit(changebitmap.Scale)},
	}
	require.True(t, neitherGammaNorScale.Match(changebitmap.Snapshot(changebitmap.Interface)))
	require.False(t, neitherGammaNorScale.Match(changebitmap.Snapshot(changebitmap.Gamma)))
	require.False(t, neitherGammaNorScale.Match(changebitmap.Snapshot(changebitmap.Scale)))

	require.True(t, changebitmap.Static(true).Match(changebitmap.Snapshot(0)))
	require.False(t, changebitmap.Static(false).Match(changebitmap.Snapshot(changebitmap.Gamma)))
}

func TestFunctionAdaptsPlainPredicate(t *testing.T) {
	evenBit := changebitmap.Function(func(m *changebitmap.Bitmap) bool {
		return m.Pending()%2 == 0
	})
	require.True(t, evenBit.Match(changebitmap.Snapshot(changebitmap.Grayscale)))
	require.False(t, evenBit.Match(changebitmap.Snapshot(changebitmap.Gamma)))
	require.NotEmpty(t, evenBit.String())
}

func TestKnownConditionCoversEveryDeclaredBit(t *testing.T) {
	for _, bit := range []changebitmap.Bit{
		changebitmap.Gamma, changebitmap.Grayscale, changebitmap.InfoOverlay,
		changebitmap.Interface, changebitmap.Scale, changebitmap.NoDisplay,
	} {
		require.True(t, changebitmap.Known.Match(changebitmap.Snapshot(bit)), "bit %s should be Known", bit)
	}
	require.True(t, changebitmap.Known.Match(changebitmap.Snapshot(changebitmap.Bit(1<<20))) == false)
}

func TestRequiresTableRebuildOnlyForGammaAndGrayscale(t *testing.T) {
	require.True(t, changebitmap.RequiresTableRebuild.Match(changebitmap.Snapshot(changebitmap.Gamma)))
	require.True(t, changebitmap.RequiresTableRebuild.Match(changebitmap.Snapshot(changebitmap.Grayscale)))
	require.False(t, changebitmap.RequiresTableRebuild.Match(changebitmap.Snapshot(changebitmap.Interface)))
}

func TestUnknownBitsRejectsBitsNeitherWorkerNorSinkDeclare(t *testing.T) {
	var m changebitmap.Bitmap
	m.Set(changebitmap.Gamma)
	m.Set(changebitmap.Bit(1 << 20)) // outside the worker's declared set

	require.Equal(t, changebitmap.Bit(1<<20), m.UnknownBits(0))

	// A sink that separately declares knowledge of the extra bit clears it.
	require.Equal(t, changebitmap.Bit(0), m.UnknownBits(changebitmap.Bit(1<<20)))
}
