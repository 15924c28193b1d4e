package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClaimReusesFreedSlot(t *testing.T) {
	calls := 0
	p := New[int](1, func() int { calls++; return calls })

	h1 := p.Claim(1, nil)
	require.Equal(t, 1, p.Len())

	h1.Release()
	require.EqualValues(t, 0, h1.RefCount())

	h2 := p.Claim(1, nil)
	require.Equal(t, 1, p.Len(), "claim should reuse the freed slot, not grow")
	require.Equal(t, h1.Get(), h2.Get())
}

func TestClaimGrowsWhenNoneFree(t *testing.T) {
	p := New[int](1, func() int { return 0 })
	h1 := p.Claim(1, nil)
	_ = h1

	h2 := p.Claim(2, nil)
	_ = h2
	require.Equal(t, 3, p.Len())
}

func TestResetFnAppliedOnClaim(t *testing.T) {
	p := New[int](1, func() int { return 0 })
	h1 := p.Claim(1, nil)
	h1.Release()

	h2 := p.Claim(1, func(v int) int { return v + 100 })
	require.Equal(t, 100, h2.Get())
}

func TestAcquireAlwaysAppends(t *testing.T) {
	p := New[int](0, func() int { return 1 })
	p.Acquire()
	p.Acquire()
	require.Equal(t, 2, p.Len())
}
