package spsc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushPopOrder(t *testing.T) {
	q := New[int](4)
	require.True(t, q.Push(1))
	require.True(t, q.Push(2))
	require.True(t, q.Push(3))

	v, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestFullQueueRejectsPush(t *testing.T) {
	q := New[int](2)
	require.True(t, q.Push(1))
	require.True(t, q.Push(2))
	require.False(t, q.Push(3))
}

func TestEmptyQueuePopFails(t *testing.T) {
	q := New[int](4)
	_, ok := q.Pop()
	require.False(t, ok)
}

func TestDrainLatest(t *testing.T) {
	q := New[int](8)
	q.Push(1)
	q.Push(2)
	q.Push(3)

	latest, ok := q.DrainLatest()
	require.True(t, ok)
	require.Equal(t, 3, latest)

	_, ok = q.Pop()
	require.False(t, ok)
}

func TestDrainLatestEmpty(t *testing.T) {
	q := New[int](4)
	_, ok := q.DrainLatest()
	require.False(t, ok)
}

func TestCapacityRoundsToPowerOfTwo(t *testing.T) {
	q := New[int](5)
	require.Equal(t, 8, q.Cap())
}

func TestConcurrentProducerConsumer(t *testing.T) {
	q := New[int](16)
	const n = 10000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !q.Push(i) {
			}
		}
	}()

	received := make([]int, 0, n)
	go func() {
		defer wg.Done()
		for len(received) < n {
			if v, ok := q.Pop(); ok {
				received = append(received, v)
			}
		}
	}()

	wg.Wait()
	require.Len(t, received, n)
	for i, v := range received {
		require.Equal(t, i, v)
	}
}
