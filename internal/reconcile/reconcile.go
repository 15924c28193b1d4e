// Package reconcile implements the instruction reconciler: it applies
// one ordered instruction batch against a graph.Graph, stopping at the
// first failing instruction, then prunes the garbage table. A successful
// COMMIT_UPDATES triggers the render-sequence compiler and publishes the
// result onto the handoff queue the audio thread drains.
package reconcile

import (
	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/graph"
	"github.com/ehrlich-b/elementary/internal/render"
	"github.com/ehrlich-b/elementary/internal/resource"
	"github.com/ehrlich-b/elementary/internal/spsc"
)

// Opcode identifies one instruction's kind.
type Opcode int

const (
	CreateNode Opcode = iota
	DeleteNode
	AppendChild
	SetProperty
	ActivateRoots
	CommitUpdates
)

// Instruction is one decoded wire instruction. Which fields are
// populated depends on Op.
type Instruction struct {
	Op        Opcode
	ID        int32
	Kind      string
	ParentID  int32
	ChildID   int32
	Key       string
	Value     interface{}
	RootIDs   []int32
}

// SetActiveFunc is implemented by node kinds that respond to
// ACTIVATE_ROOTS (only ops.Root today); the reconciler never imports
// internal/ops directly to avoid a dependency cycle with
// internal/render, so this is injected by the Reconciler's owner.
type SetActiveFunc func(id int32, active bool)

// ObservedGenFunc reports the generation number of the render.Sequence
// the audio thread most recently adopted (see Runtime.Process). Gens
// increase monotonically, so any pending release stamped with a gen
// strictly less than the reported value is guaranteed to no longer be
// reachable from the audio thread.
type ObservedGenFunc func() uint64

// pendingRelease is a superseded sequence's node references and buffer
// chunks, held back from reclamation until the audio thread is observed
// to have moved past the gen that referenced them.
type pendingRelease struct {
	gen   uint64
	ids   []int32
	alloc *render.BufferAllocator
}

// Reconciler owns one graph plus the compile-time machinery needed to
// turn a committed graph into a published render.Sequence.
type Reconciler struct {
	graph       *graph.Graph
	resources   *resource.Map
	sampleRate  float64
	blockSize   int
	setActive   SetActiveFunc
	setProp     func(id int32, key string, v interface{}) errcode.Code
	observedGen ObservedGenFunc

	outbox *spsc.Queue[*render.Sequence]

	chunkPool *render.ChunkPool
	nextGen   uint64

	lastSequenceIDs []int32
	lastGen         uint64
	lastAllocator   *render.BufferAllocator

	pending []pendingRelease
}

// New creates a reconciler over graph g, publishing compiled sequences
// onto outbox. setProperty adapts an opaque wire value into a
// node.GraphNode.SetProperty call (kept out of this package's import
// graph since the wire Value type lives in internal/value, imported here
// only through the function signature's caller). observedGen lets the
// reconciler ask the audio thread which sequence generation it has
// actually adopted, so it never recycles a node or buffer the audio
// thread might still be executing.
func New(g *graph.Graph, resources *resource.Map, sampleRate float64, blockSize int, outbox *spsc.Queue[*render.Sequence], setActive SetActiveFunc, setProp func(id int32, key string, v interface{}) errcode.Code, observedGen ObservedGenFunc) *Reconciler {
	return &Reconciler{
		graph:       g,
		resources:   resources,
		sampleRate:  sampleRate,
		blockSize:   blockSize,
		setActive:   setActive,
		setProp:     setProp,
		observedGen: observedGen,
		outbox:      outbox,
		chunkPool:   render.NewChunkPool(blockSize),
		nextGen:     1,
	}
}

// Apply runs one instruction batch in order, stopping at the first
// failure. Property changes applied before the abort remain applied.
// After the batch (whether it aborted or not), any pending release the
// audio thread has since confirmed is reclaimed and the garbage table is
// pruned.
func (r *Reconciler) Apply(batch []Instruction) errcode.Code {
	code := errcode.Ok
	for _, ins := range batch {
		code = r.applyOne(ins)
		if code != errcode.Ok {
			break
		}
	}
	r.releaseRetired()
	r.graph.PruneGarbage()
	return code
}

func (r *Reconciler) applyOne(ins Instruction) errcode.Code {
	switch ins.Op {
	case CreateNode:
		return r.graph.Create(ins.ID, ins.Kind, r.sampleRate, r.blockSize)
	case DeleteNode:
		return r.graph.Delete(ins.ID)
	case AppendChild:
		return r.graph.AppendChild(ins.ParentID, ins.ChildID)
	case SetProperty:
		if _, ok := r.graph.Node(ins.ID); !ok {
			return errcode.NodeNotFound
		}
		return r.setProp(ins.ID, ins.Key, ins.Value)
	case ActivateRoots:
		r.graph.ActivateRoots(ins.RootIDs, r.setActive)
		return errcode.Ok
	case CommitUpdates:
		r.commit()
		return errcode.Ok
	default:
		return errcode.InvalidInstruction
	}
}

// commit compiles a fresh render sequence from the current graph state
// and publishes it to the audio thread. The previously published
// sequence's node references and buffer chunks are not reclaimed here —
// they are queued as a pendingRelease and only reclaimed once
// releaseRetired (called by Apply after the batch finishes) observes
// that the audio thread has moved on from that generation, since a fast
// run of COMMIT_UPDATES can otherwise outpace a Process call still
// mid-block on the superseded sequence.
func (r *Reconciler) commit() {
	alloc := render.NewBufferAllocator(r.blockSize, r.chunkPool)
	seq := render.Compile(r.graph, r.resources, alloc, r.blockSize)
	seq.Gen = r.nextGen
	r.nextGen++

	newIDs := seq.NodeIDs()
	r.graph.RetainForSequence(newIDs)

	if r.lastAllocator != nil {
		r.pending = append(r.pending, pendingRelease{
			gen:   r.lastGen,
			ids:   r.lastSequenceIDs,
			alloc: r.lastAllocator,
		})
	}
	r.lastSequenceIDs = newIDs
	r.lastGen = seq.Gen
	r.lastAllocator = alloc

	r.outbox.Push(seq)
}

// releaseRetired reclaims every pendingRelease whose generation the
// audio thread has confirmed it no longer references: gens increase
// monotonically and Process only ever adopts a strictly newer sequence,
// so observedGen() > pending.gen means the audio thread swapped away
// from that generation's sequence before this call and will never touch
// it again.
func (r *Reconciler) releaseRetired() {
	observed := r.observedGen()
	kept := r.pending[:0]
	for _, p := range r.pending {
		if p.gen < observed {
			r.graph.ReleasePreviousSequence(p.ids)
			p.alloc.Release()
		} else {
			kept = append(kept, p)
		}
	}
	r.pending = kept
}
