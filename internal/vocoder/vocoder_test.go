package vocoder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcessReturnsRequestedLength(t *testing.T) {
	v := New(48000, 128)
	in := make([]float32, 128)
	out := v.Process(in, 128)
	require.Len(t, out, 128)
}

func TestSilentInputStaysSilentAtUnityPitch(t *testing.T) {
	v := New(48000, 128)
	in := make([]float32, 128)
	for i := 0; i < 20; i++ {
		out := v.Process(in, 128)
		for _, s := range out {
			require.Equal(t, float32(0), s)
		}
	}
}

func TestSetPitchRatioClampsNonPositive(t *testing.T) {
	v := New(48000, 128)
	v.SetPitchRatio(-1)
	require.Equal(t, 1.0, v.pitchRatio)
	v.SetPitchRatio(2.0)
	require.Equal(t, 2.0, v.pitchRatio)
}

func TestProcessHandlesManyBlocksWithoutPanicking(t *testing.T) {
	v := New(48000, 256)
	v.SetPitchRatio(1.5)
	in := make([]float32, 256)
	for i := range in {
		if i%8 == 0 {
			in[i] = 0.5
		}
	}
	for i := 0; i < 50; i++ {
		out := v.Process(in, 256)
		require.Len(t, out, 256)
	}
}
