package resource

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateIsAppendOnly(t *testing.T) {
	m := New()
	require.True(t, m.Update("r", []float32{1, 2, 3}))
	require.False(t, m.Update("r", []float32{9}), "existing name must not be replaceable")

	b, ok := m.Get("r")
	require.True(t, ok)
	require.Equal(t, []float32{1, 2, 3}, b.Data)
}

func TestGetMissing(t *testing.T) {
	m := New()
	_, ok := m.Get("missing")
	require.False(t, ok)
}

func TestPruneRemovesUnreferenced(t *testing.T) {
	m := New()
	m.Update("a", []float32{1})
	m.Update("b", []float32{2})

	b, _ := m.Get("b")
	b.Retain()

	removed := m.Prune()
	require.Equal(t, 1, removed)

	_, ok := m.Get("a")
	require.False(t, ok)
	_, ok = m.Get("b")
	require.True(t, ok)
}

func TestKeysSorted(t *testing.T) {
	m := New()
	m.Update("zebra", nil)
	m.Update("apple", nil)
	require.Equal(t, []string{"apple", "zebra"}, m.Keys())
}

func TestMutableBufferCreatedOnce(t *testing.T) {
	m := New()
	a := m.MutableBuffer("x", 512)
	b := m.MutableBuffer("x", 512)
	require.Same(t, a, b)
	require.Len(t, a.Data, 512)
}
