package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccessorsRoundTrip(t *testing.T) {
	n, ok := FromFloat(440).AsFloat()
	require.True(t, ok)
	require.Equal(t, 440.0, n)

	_, ok = FromFloat(440).AsString()
	require.False(t, ok)

	s, ok := FromString("cycle").AsString()
	require.True(t, ok)
	require.Equal(t, "cycle", s)

	fa, ok := FromFloatArray([]float32{1, 2, 3}).AsFloatArray()
	require.True(t, ok)
	require.Equal(t, []float32{1, 2, 3}, fa)

	b, ok := FromBool(true).AsBool()
	require.True(t, ok)
	require.True(t, b)
}

func TestEqual(t *testing.T) {
	require.True(t, FromFloat(1).Equal(FromFloat(1)))
	require.False(t, FromFloat(1).Equal(FromFloat(2)))
	require.True(t, FromArray([]Value{FromFloat(1), FromString("a")}).
		Equal(FromArray([]Value{FromFloat(1), FromString("a")})))
	require.False(t, FromFunc(func([]Value) Value { return Undef }).
		Equal(FromFunc(func([]Value) Value { return Undef })))
}

func TestUndefinedZeroValue(t *testing.T) {
	var v Value
	require.True(t, v.IsUndefined())
	require.Equal(t, Undefined, v.Kind())
}

func TestKindString(t *testing.T) {
	require.Equal(t, "number", Number.String())
	require.Equal(t, "floatArray", FloatArray.String())
}
