// Package graph owns the control-thread node table, edge table, and
// garbage table: the persistent structure the instruction reconciler
// mutates and the render-sequence compiler reads to produce a compiled
// plan. Everything in this package runs on the control thread only.
package graph

import (
	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/node"
)

// handle wraps a node with the use-count bookkeeping the garbage table
// needs: a node is destroyed once only the garbage table still
// references it (use-count returns to one).
type handle struct {
	n        node.GraphNode
	useCount int32
}

// Graph owns the node table, edge table, and garbage table for one
// Runtime instance. Create/Delete/AppendChild/ ActivateRoots mutate it;
// the render-sequence compiler only reads it.
type Graph struct {
	registry *node.Registry

	nodes   map[int32]*handle
	garbage map[int32]*handle
	edges   map[int32][]int32

	activeRoots map[int32]bool
	fadingRoots map[int32]bool
}

// New creates an empty graph backed by registry for node construction.
func New(registry *node.Registry) *Graph {
	return &Graph{
		registry:    registry,
		nodes:       make(map[int32]*handle),
		garbage:     make(map[int32]*handle),
		edges:       make(map[int32][]int32),
		activeRoots: make(map[int32]bool),
		fadingRoots: make(map[int32]bool),
	}
}

// Create instantiates a node of kind via the registry and inserts it
// into the node table. Fails with NodeAlreadyExists if id is already
// present, or whatever the registry returns if kind is unregistered.
func (g *Graph) Create(id int32, kind string, sampleRate float64, blockSize int) errcode.Code {
	if _, exists := g.nodes[id]; exists {
		return errcode.NodeAlreadyExists
	}
	if _, exists := g.garbage[id]; exists {
		return errcode.NodeAlreadyExists
	}
	n, code := g.registry.Create(kind, id, sampleRate, blockSize)
	if code != errcode.Ok {
		return code
	}
	g.nodes[id] = &handle{n: n, useCount: 1}
	g.edges[id] = nil
	return errcode.Ok
}

// Delete moves id from the node table to the garbage table and removes
// its edge-table entry. The node is only actually destroyed once
// PruneGarbage observes its use-count has returned to one.
func (g *Graph) Delete(id int32) errcode.Code {
	h, ok := g.nodes[id]
	if !ok {
		return errcode.NodeNotFound
	}
	delete(g.nodes, id)
	delete(g.edges, id)
	g.garbage[id] = h
	delete(g.activeRoots, id)
	delete(g.fadingRoots, id)
	return errcode.Ok
}

// AppendChild appends childId to parentId's ordered child list. Both ids
// must exist in the node table.
func (g *Graph) AppendChild(parentID, childID int32) errcode.Code {
	if _, ok := g.nodes[parentID]; !ok {
		return errcode.NodeNotFound
	}
	if _, ok := g.nodes[childID]; !ok {
		return errcode.NodeNotFound
	}
	g.edges[parentID] = append(g.edges[parentID], childID)
	return errcode.Ok
}

// Node returns the node handle for id, looking first in the active node
// table, then the garbage table (render sequences referencing a
// deleted-but-not-yet-pruned node must still resolve it).
func (g *Graph) Node(id int32) (node.GraphNode, bool) {
	if h, ok := g.nodes[id]; ok {
		return h.n, true
	}
	if h, ok := g.garbage[id]; ok {
		return h.n, true
	}
	return nil, false
}

// LiveNode resolves id only against the node table, never the garbage
// table. The render-sequence compiler uses this (rather than Node) when
// walking the edge table so a commit after DELETE_NODE excludes the
// deleted node even though nothing has rewritten the parent's child list
// that still names it.
func (g *Graph) LiveNode(id int32) (node.GraphNode, bool) {
	h, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return h.n, true
}

// Children returns the ordered child-id list for a node currently in the
// node table.
func (g *Graph) Children(id int32) []int32 {
	return g.edges[id]
}

// NodeIDs returns every id currently in the node table, in no particular
// order.
func (g *Graph) NodeIDs() []int32 {
	ids := make([]int32, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return ids
}

// ActivateRoots marks the given root ids active (target gain -> 1) and
// moves any previously active root not in the list into the fading set.
// Ids missing from the node table are skipped; every other id is
// recorded as an active root and passed to setActive, whatever its
// node kind, and setActive decides what to do with it.
func (g *Graph) ActivateRoots(ids []int32, setActive func(id int32, active bool)) {
	wanted := make(map[int32]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	for id := range g.activeRoots {
		if !wanted[id] {
			delete(g.activeRoots, id)
			g.fadingRoots[id] = true
			setActive(id, false)
		}
	}
	for id := range wanted {
		if _, ok := g.nodes[id]; !ok {
			continue
		}
		g.activeRoots[id] = true
		delete(g.fadingRoots, id)
		setActive(id, true)
	}
}

// DropFadingRoot removes id from the fading set once its gain has
// reached zero, called by the compiler after observing StillRunning() ==
// false for a root.
func (g *Graph) DropFadingRoot(id int32) {
	delete(g.fadingRoots, id)
}

// ActiveRoots returns a snapshot of the currently active root ids.
func (g *Graph) ActiveRoots() []int32 {
	out := make([]int32, 0, len(g.activeRoots))
	for id := range g.activeRoots {
		out = append(out, id)
	}
	return out
}

// FadingRoots returns a snapshot of the currently fading root ids.
func (g *Graph) FadingRoots() []int32 {
	out := make([]int32, 0, len(g.fadingRoots))
	for id := range g.fadingRoots {
		out = append(out, id)
	}
	return out
}

// RetainForSequence increments the use-count of every node reachable
// from roots, called once per compile so PruneGarbage can tell which
// garbage-table nodes a just-superseded render sequence was still
// holding. ids should be every node-id the compiled sequence references.
func (g *Graph) RetainForSequence(ids []int32) {
	for _, id := range ids {
		if h, ok := g.nodes[id]; ok {
			h.useCount++
		} else if h, ok := g.garbage[id]; ok {
			h.useCount++
		}
	}
}

// ReleasePreviousSequence decrements the use-count of every node a
// superseded sequence referenced. Callers must only invoke this once the
// audio thread is confirmed to have moved past that sequence, since the
// use-count it decrements is what keeps a still-live node out of the
// garbage table's prune pass.
func (g *Graph) ReleasePreviousSequence(ids []int32) {
	for _, id := range ids {
		if h, ok := g.nodes[id]; ok {
			h.useCount--
		} else if h, ok := g.garbage[id]; ok {
			h.useCount--
		}
	}
}

// PruneGarbage destroys every garbage-table node whose use-count has
// returned to one (only the garbage table itself references it), called
// after each instruction batch.
func (g *Graph) PruneGarbage() int {
	removed := 0
	for id, h := range g.garbage {
		if h.useCount <= 1 {
			delete(g.garbage, id)
			removed++
		}
	}
	return removed
}

// Reset invokes Reset on every node in the node table).
func (g *Graph) Reset() {
	for _, h := range g.nodes {
		h.n.Reset()
	}
}
