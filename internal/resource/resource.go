// Package resource implements the shared resource map: a process-wide
// name -> immutable float buffer table plus a name -> mutable per-block
// buffer table (the tap bus).
//
// Immutable inserts are append-only: a name can never be replaced once
// present. A single writer is assumed, and the audio thread only ever
// reads shared pointers. Mutable
// (tap) entries are written and read entirely within the audio thread
// inside one block, so no atomic coordination is required there beyond
// the read-then-write ordering the tap nodes themselves enforce.
package resource

import (
	"sort"
	"sync"
	"sync/atomic"
)

// ImmutableBuffer is a named, append-only float buffer (audio samples
// or a lookup table) referenced by operator properties.
type ImmutableBuffer struct {
	Name string
	Data []float32
	refs atomic.Int32
}

// Retain increments the buffer's outside reference count. Called when
// an operator resolves a name reference during SetProperty.
func (b *ImmutableBuffer) Retain() { b.refs.Add(1) }

// Release decrements the buffer's outside reference count. Called when
// the referencing node is destroyed.
func (b *ImmutableBuffer) Release() { b.refs.Add(-1) }

// Map owns both halves of the shared resource map. Every method (Update,
// Get, Prune, Keys, MutableBuffer) takes the map's mutex and runs on the
// control thread; the audio thread only touches the buffers those calls
// returned.
type Map struct {
	mu        sync.Mutex
	immutable map[string]*ImmutableBuffer
	mutable   map[string]*MutableBlock
}

// MutableBlock is one block's worth of samples shared between a tapOut
// and the tapIn nodes reading its name.
type MutableBlock struct {
	Data []float32
}

// New creates an empty shared resource map.
func New() *Map {
	return &Map{
		immutable: make(map[string]*ImmutableBuffer),
		mutable:   make(map[string]*MutableBlock),
	}
}

// Update appends an immutable buffer under name. It reports false
// without modifying the map if name is already present (append-only).
func (m *Map) Update(name string, data []float32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.immutable[name]; exists {
		return false
	}
	buf := &ImmutableBuffer{Name: name, Data: data}
	m.immutable[name] = buf
	return true
}

// Get resolves an immutable buffer by name.
func (m *Map) Get(name string) (*ImmutableBuffer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.immutable[name]
	return b, ok
}

// Prune removes immutable entries with no outside references.
func (m *Map) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for name, b := range m.immutable {
		if b.refs.Load() <= 0 {
			delete(m.immutable, name)
			removed++
		}
	}
	return removed
}

// Keys returns a sorted snapshot of the immutable buffer names.
func (m *Map) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.immutable))
	for k := range m.immutable {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MutableBuffer returns the tap bus buffer for name, creating it sized
// to blockSize on first reference. Called only from the compiler, on
// the control thread: tapIn/tapOut nodes resolve their shared pointer
// once at compile time and hold it for the lifetime of the render
// sequence, so Process never takes this lock.
func (m *Map) MutableBuffer(name string, blockSize int) *MutableBlock {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.mutable[name]
	if !ok {
		b = &MutableBlock{Data: make([]float32, blockSize)}
		m.mutable[name] = b
	}
	return b
}
