// Package render implements the render-sequence compiler and the
// compile-time buffer allocator it draws from: the control-thread
// machinery that turns a committed node/edge graph into an immutable,
// linearized plan the audio thread can execute without allocating.
package render

import (
	"github.com/ehrlich-b/elementary/internal/constants"
	"github.com/ehrlich-b/elementary/internal/pool"
)

// ChunkPool is the backing store BufferAllocator draws chunks from: a
// pool of constants.BufferChunkSize*blockSize-float32 slices, reused
// across compiles instead of left for the garbage collector, since a
// long-running control thread recompiling on every COMMIT_UPDATES would
// otherwise churn one multi-KB slice per commit.
type ChunkPool = pool.Pool[[]float32]

// NewChunkPool creates a chunk pool sized for blockSize buffers,
// pre-reserving one chunk. Owned by whatever constructs a Reconciler
// (one per Runtime), outliving any single BufferAllocator.
func NewChunkPool(blockSize int) *ChunkPool {
	chunkFloats := constants.BufferChunkSize * blockSize
	return pool.New(1, func() []float32 { return make([]float32, chunkFloats) })
}

// BufferAllocator hands out one block-sized float32 buffer per visited
// node during a single compile. It draws whole chunks from a shared
// ChunkPool, growing by claiming another chunk when the current one is
// exhausted, and never frees mid-compile. A fresh allocator is created
// per compile; Release returns its chunks to the pool once the render
// sequence it produced has been superseded (internal/reconcile.Reconciler
// calls this at the same point it releases the superseded sequence's
// node use-counts).
type BufferAllocator struct {
	blockSize int
	chunkPool *ChunkPool
	chunks    [][]float32
	handles   []pool.Handle[[]float32]
	chunkSize int
	used      int
}

// NewBufferAllocator creates an allocator for one compile pass, sized to
// hand out buffers of blockSize floats each, drawing chunks from p.
func NewBufferAllocator(blockSize int, p *ChunkPool) *BufferAllocator {
	a := &BufferAllocator{blockSize: blockSize, chunkPool: p, chunkSize: constants.BufferChunkSize}
	a.grow()
	return a
}

func zeroFloats(buf []float32) []float32 {
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

func (a *BufferAllocator) grow() {
	h := a.chunkPool.Claim(1, zeroFloats)
	a.handles = append(a.handles, h)
	a.chunks = append(a.chunks, h.Get())
}

// Alloc returns a fresh, zeroed block-sized buffer.
func (a *BufferAllocator) Alloc() []float32 {
	chunkIdx := a.used / a.chunkSize
	for chunkIdx >= len(a.chunks) {
		a.grow()
	}
	offsetInChunk := (a.used % a.chunkSize) * a.blockSize
	buf := a.chunks[chunkIdx][offsetInChunk : offsetInChunk+a.blockSize]
	a.used++
	return buf
}

// Allocated reports how many buffers have been handed out so far.
func (a *BufferAllocator) Allocated() int { return a.used }

// Release returns every chunk this allocator claimed back to its pool,
// making them eligible for reuse by a future compile. Must only be
// called once the sequence built from this allocator's buffers is no
// longer reachable from the audio thread.
func (a *BufferAllocator) Release() {
	for _, h := range a.handles {
		h.Release()
	}
}
