package render

import (
	"sort"

	"github.com/ehrlich-b/elementary/internal/graph"
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/ehrlich-b/elementary/internal/ops"
	"github.com/ehrlich-b/elementary/internal/resource"
)

// named is implemented by any node.Base-embedding type that exposes its
// "name" property, used here to resolve a tap node's shared bus key.
type named interface {
	Name() string
}

// Compile turns the graph's currently active+fading roots into an
// immutable Sequence, following a five-step algorithm: 1. Select active
// roots, then fading roots (active-first ordering). 2. Walk each root's
// subgraph in post-order, sharing one visited set across all roots so a
// node referenced by more than one root is rendered exactly once.
// 3. Allocate one fresh output buffer per newly visited node. 4. Buffers
// are drawn from alloc's pre-reserved chunks. 5. Each op resolves its
// children's buffers from the shared
// id->buffer map at execution time rather than at compile time. Compile
// also binds every tapOut/tapIn node it visits to its shared bus buffer
// in resources, and collects each sub-sequence's tapOut nodes so the
// caller can promote them once per block after Execute.
func Compile(g *graph.Graph, resources *resource.Map, alloc *BufferAllocator, blockSize int) *Sequence {
	seq := &Sequence{Buffers: make(map[int32][]float32)}

	roots := orderedRoots(g)
	visited := make(map[int32]bool)

	for _, rootID := range roots {
		n, ok := g.LiveNode(rootID)
		if !ok {
			continue
		}
		rootOps := make([]Op, 0)
		walk(g, resources, alloc, blockSize, rootID, visited, seq.Buffers, &rootOps)

		sub := SubSequence{RootID: rootID, Ops: rootOps}
		if r, ok := n.(*ops.Root); ok {
			sub.Root = r
			if !r.Active() && !r.StillRunning() {
				g.DropFadingRoot(rootID)
			}
		}
		sub.TapOuts = collectTapOuts(rootOps)
		seq.Sub = append(seq.Sub, sub)
	}

	return seq
}

// orderedRoots returns active root ids first, then fading root ids.
// Each group is sorted for determinism; actual execution order within
// a group doesn't affect correctness since buffers are resolved by id,
// not by position.
func orderedRoots(g *graph.Graph) []int32 {
	active := g.ActiveRoots()
	fading := g.FadingRoots()
	sort.Slice(active, func(i, j int) bool { return active[i] < active[j] })
	sort.Slice(fading, func(i, j int) bool { return fading[i] < fading[j] })
	return append(active, fading...)
}

// walk performs one root's post-order DAG traversal, skipping any node
// already present in visited (shared across all roots in this compile).
// Every node it visits (including ones skipped here because an earlier
// root already rendered them) is still appended as a child reference by
// the caller via edge ids, so the emitted op list, read in order, is a
// valid topological execution order for this root's subgraph.
func walk(g *graph.Graph, resources *resource.Map, alloc *BufferAllocator, blockSize int, id int32, visited map[int32]bool, buffers map[int32][]float32, ops_ *[]Op) {
	if visited[id] {
		return
	}
	visited[id] = true

	children := g.Children(id)
	for _, cid := range children {
		walk(g, resources, alloc, blockSize, cid, visited, buffers, ops_)
	}

	n, ok := g.LiveNode(id)
	if !ok {
		return
	}

	bindTapBuffer(n, resources, blockSize)

	buffers[id] = alloc.Alloc()
	*ops_ = append(*ops_, Op{NodeID: id, Node: n, ChildIDs: children})
}

// bindTapBuffer resolves a tapIn/tapOut node's shared bus buffer by its
// "name" property, binding it once per compile. Other node kinds are
// left untouched.
func bindTapBuffer(n node.GraphNode, resources *resource.Map, blockSize int) {
	switch t := n.(type) {
	case *ops.TapOut:
		if nm, ok := n.(named); ok {
			t.BindBuffer(resources.MutableBuffer(nm.Name(), blockSize))
		}
	case *ops.TapIn:
		if nm, ok := n.(named); ok {
			t.BindBuffer(resources.MutableBuffer(nm.Name(), blockSize))
		}
	}
}

// collectTapOuts scans a sub-sequence's op list for tapOut nodes so the
// scheduler can promote them after the block's outputs are summed.
func collectTapOuts(rootOps []Op) []*ops.TapOut {
	var out []*ops.TapOut
	for _, op := range rootOps {
		if t, ok := op.Node.(*ops.TapOut); ok {
			out = append(out, t)
		}
	}
	return out
}
