package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOnePoleSmootherConvergesToTarget(t *testing.T) {
	s := NewOnePoleSmoother(10, 48000)
	s.SetImmediate(0)
	s.SetTarget(1)
	for i := 0; i < 48000; i++ {
		s.Next()
	}
	require.InDelta(t, 1.0, s.Current(), 1e-6)
}

func TestOnePoleSmootherAtTarget(t *testing.T) {
	s := NewOnePoleSmoother(10, 48000)
	s.SetImmediate(0.5)
	require.True(t, s.AtTarget(1e-9))
}

func TestLCGDeterministicForSeed(t *testing.T) {
	a := NewLCG(42)
	b := NewLCG(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Next(), b.Next())
	}
}

func TestLCGRangeBounded(t *testing.T) {
	g := NewLCG(7)
	for i := 0; i < 10000; i++ {
		v := g.Next()
		require.True(t, v >= -1 && v < 1)
	}
}

func TestClampAndLerp(t *testing.T) {
	require.Equal(t, 1.0, Clamp(5, -1, 1))
	require.Equal(t, -1.0, Clamp(-5, -1, 1))
	require.Equal(t, 0.5, Clamp(0.5, -1, 1))
	require.Equal(t, 5.0, Lerp(0, 10, 0.5))
}

func TestPolyBLEPZeroAwayFromWrap(t *testing.T) {
	require.Equal(t, 0.0, PolyBLEP(0.5, 0.01))
}

func TestPolyBLEPNonzeroNearWrap(t *testing.T) {
	require.NotEqual(t, 0.0, PolyBLEP(0.001, 0.01))
	require.NotEqual(t, 0.0, PolyBLEP(0.999, 0.01))
}

func TestFFTRoundTrip(t *testing.T) {
	n := 8
	data := make([]Complex, n)
	for i := range data {
		data[i] = Complex{Re: math.Sin(2 * math.Pi * float64(i) / float64(n)), Im: 0}
	}
	original := append([]Complex(nil), data...)

	FFT(data, false)
	FFT(data, true)
	for i := range data {
		data[i].Re /= float64(n)
		data[i].Im /= float64(n)
	}

	for i := range data {
		require.InDelta(t, original[i].Re, data[i].Re, 1e-9)
		require.InDelta(t, original[i].Im, data[i].Im, 1e-9)
	}
}

func TestNextPow2(t *testing.T) {
	require.Equal(t, 1, NextPow2(1))
	require.Equal(t, 8, NextPow2(5))
	require.Equal(t, 1024, NextPow2(1024))
}

func TestKaiserWindowSymmetric(t *testing.T) {
	w := make([]float64, 16)
	KaiserWindow(w, 8.0)
	for i := 0; i < len(w)/2; i++ {
		require.InDelta(t, w[i], w[len(w)-1-i], 1e-9)
	}
	require.InDelta(t, 1.0, w[len(w)/2], 0.05)
}
