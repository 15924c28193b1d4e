package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteDrain(t *testing.T) {
	b := New[float32](2, 4)
	b.Write([]float32{1, -1})
	b.Write([]float32{2, -2})
	b.Write([]float32{3, -3})

	require.Equal(t, 3, b.Len())

	frames, ok := b.Drain(2)
	require.True(t, ok)
	require.Equal(t, []float32{1, 2}, frames[0])
	require.Equal(t, []float32{-1, -2}, frames[1])
	require.Equal(t, 1, b.Len())
}

func TestDrainInsufficientFrames(t *testing.T) {
	b := New[float32](1, 4)
	b.Write([]float32{1})
	_, ok := b.Drain(2)
	require.False(t, ok)
}

func TestClobberOnOverflow(t *testing.T) {
	b := New[float32](1, 3)
	b.Write([]float32{1})
	b.Write([]float32{2})
	b.Write([]float32{3})
	b.Write([]float32{4}) // overwrites 1

	require.Equal(t, 3, b.Len())
	frames, ok := b.Drain(3)
	require.True(t, ok)
	require.Equal(t, []float32{2, 3, 4}, frames[0])
}

func TestReset(t *testing.T) {
	b := New[float32](1, 2)
	b.Write([]float32{1})
	b.Reset()
	require.Equal(t, 0, b.Len())
}
