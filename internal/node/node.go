// Package node defines the operator contract shared by every concrete
// node kind in internal/ops, plus the kind -> factory registry
// operators are constructed through.
package node

import (
	"sync"

	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/resource"
	"github.com/ehrlich-b/elementary/internal/value"
)

// Event is one readout emitted by an analyzer's ProcessEvents (spec
// section 4.6, section 6.3).
type Event struct {
	Type   string
	Source string
	Data   value.Value
}

// BlockContext carries everything a node needs to process one block.
// Inputs are positional child output buffers resolved by the compiled
// render sequence; Output is this node's own scratch buffer.
type BlockContext struct {
	Inputs     [][]float32
	Output     []float32
	SampleRate float64
	BlockSize  int
	Resources  *resource.Map
}

// Input returns the i'th positional input buffer, or nil if fewer
// inputs were wired than requested (operators must write silence and
// return in that case).
func (c *BlockContext) Input(i int) []float32 {
	if i < 0 || i >= len(c.Inputs) {
		return nil
	}
	return c.Inputs[i]
}

// Silence zero-fills the node's output buffer.
func (c *BlockContext) Silence() {
	for i := range c.Output {
		c.Output[i] = 0
	}
}

// GraphNode is the uniform operator contract every node kind
// implements. All methods except Process run on the control thread
// (ProcessEvents included, where it drains readouts queued by Process);
// Process runs on the audio thread and must not allocate, lock, or make
// a syscall.
type GraphNode interface {
	ID() int32
	Kind() string
	SetProperty(key string, v value.Value) errcode.Code
	Properties() map[string]value.Value
	Process(ctx *BlockContext)
	ProcessEvents(emit func(Event))
	Reset()
}

// Base embeds the bookkeeping common to every operator: its id, kind
// tag, sample rate, block size, and property map. Concrete operators in
// internal/ops embed Base and implement Process/ProcessEvents/Reset
// (and usually override SetProperty to validate specific keys, calling
// Base.SetProperty for unrecognized ones so unknown properties are
// still recorded for Snapshot/diagnostics).
type Base struct {
	id         int32
	kind       string
	sampleRate float64
	blockSize  int

	mu    sync.Mutex
	props map[string]value.Value
}

// NewBase constructs the embeddable bookkeeping for a node of the given
// kind.
func NewBase(id int32, kind string, sampleRate float64, blockSize int) Base {
	return Base{
		id:         id,
		kind:       kind,
		sampleRate: sampleRate,
		blockSize:  blockSize,
		props:      make(map[string]value.Value),
	}
}

func (b *Base) ID() int32          { return b.id }
func (b *Base) Kind() string       { return b.kind }
func (b *Base) SampleRate() float64 { return b.sampleRate }
func (b *Base) BlockSize() int     { return b.blockSize }

// Name returns the node's "name" property, used as the Source of
// emitted events, or "" if unset.
func (b *Base) Name() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.props["name"]; ok {
		if s, ok := v.AsString(); ok {
			return s
		}
	}
	return ""
}

// SetProperty records v under key without validation. Concrete
// operators call this as a fallback for keys they don't specifically
// recognize.
func (b *Base) SetProperty(key string, v value.Value) errcode.Code {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.props[key] = v
	return errcode.Ok
}

// Property returns a previously set property value.
func (b *Base) Property(key string) (value.Value, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.props[key]
	return v, ok
}

// Properties returns a snapshot copy of the node's property map, used
// by Runtime.Snapshot.
func (b *Base) Properties() map[string]value.Value {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]value.Value, len(b.props))
	for k, v := range b.props {
		out[k] = v
	}
	return out
}

// Factory constructs a node of a specific kind with the given id,
// sample rate, and block size.
type Factory func(id int32, sampleRate float64, blockSize int) GraphNode

// Registry maps kind strings to factories. Registration happens on
// the control thread only, typically once at Runtime construction.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Factory)}
}

// Register adds a new kind. It fails with KindAlreadyRegistered if the
// kind is already present.
func (r *Registry) Register(kind string, factory Factory) errcode.Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[kind]; exists {
		return errcode.KindAlreadyRegistered
	}
	r.kinds[kind] = factory
	return errcode.Ok
}

// Create instantiates a node of the given kind. It fails with
// UnknownKind if no factory is registered for kind.
func (r *Registry) Create(kind string, id int32, sampleRate float64, blockSize int) (GraphNode, errcode.Code) {
	r.mu.RLock()
	factory, ok := r.kinds[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, errcode.UnknownKind
	}
	return factory(id, sampleRate, blockSize), errcode.Ok
}

// Has reports whether kind has a registered factory.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.kinds[kind]
	return ok
}
