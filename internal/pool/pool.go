// Package pool implements a fixed-capacity pool of reference-counted
// objects. Unlike a sync.Pool, slots are reused only once their
// refcount has dropped to one (meaning only the pool itself still
// references the object) and the pool grows by appending whole chunks
// rather than allocating per-Get, since growth only ever happens off the
// realtime path (garbage collection runs after COMMIT_UPDATES, never
// inside Process).
package pool

import "sync/atomic"

// Handle is a refcounted reference to a pooled object. Release must be
// called exactly once per Acquire/Claim.
type Handle[T any] struct {
	slot *slot[T]
}

type slot[T any] struct {
	obj  T
	refs atomic.Int32
}

// Get returns the underlying object.
func (h Handle[T]) Get() T { return h.slot.obj }

// Release decrements the slot's refcount. Once it returns to one, the
// slot is eligible to be reused by Claim.
func (h Handle[T]) Release() {
	h.slot.refs.Add(-1)
}

// RefCount reports the slot's current outside-reference count (excluding
// the pool's own implicit hold).
func (h Handle[T]) RefCount() int32 {
	return h.slot.refs.Load() - 1
}

// Pool is a fixed-capacity, growable collection of T, each wrapped with
// an atomic refcount.
type Pool[T any] struct {
	new   func() T
	slots []*slot[T]
}

// New creates a pool with an initial capacity, using newFn to construct
// fresh objects for new slots.
func New[T any](initialCapacity int, newFn func() T) *Pool[T] {
	p := &Pool[T]{new: newFn}
	p.Grow(initialCapacity)
	return p
}

// Grow appends n new slots to the pool. Must only be called off the
// realtime path.
func (p *Pool[T]) Grow(n int) {
	for i := 0; i < n; i++ {
		s := &slot[T]{obj: p.new()}
		s.refs.Store(1) // pool's own implicit hold
		p.slots = append(p.slots, s)
	}
}

// Len reports the pool's current slot count.
func (p *Pool[T]) Len() int { return len(p.slots) }

// Claim finds a slot whose outside refcount is zero (RefCount() == 0)
// and returns a new Handle to it with refcount one, reinitializing the
// slot's object via resetFn if provided. If no free slot exists, the
// pool grows by one chunk (chunkSize) before retrying.
func (p *Pool[T]) Claim(chunkSize int, resetFn func(T) T) Handle[T] {
	for {
		for _, s := range p.slots {
			if s.refs.CompareAndSwap(1, 2) {
				if resetFn != nil {
					s.obj = resetFn(s.obj)
				}
				return Handle[T]{slot: s}
			}
		}
		if chunkSize <= 0 {
			chunkSize = 1
		}
		p.Grow(chunkSize)
	}
}

// Acquire wraps an externally constructed slot: used when the caller
// wants to hand out a fresh handle without scanning for a reusable one
// (e.g. immediately after Grow). It always appends a new slot.
func (p *Pool[T]) Acquire() Handle[T] {
	s := &slot[T]{obj: p.new()}
	s.refs.Store(2) // one implicit pool hold + one outside reference
	p.slots = append(p.slots, s)
	return Handle[T]{slot: s}
}
