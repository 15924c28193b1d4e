package reconcile

import (
	"sync/atomic"
	"testing"

	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/graph"
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/ehrlich-b/elementary/internal/ops"
	"github.com/ehrlich-b/elementary/internal/render"
	"github.com/ehrlich-b/elementary/internal/resource"
	"github.com/ehrlich-b/elementary/internal/spsc"
	"github.com/ehrlich-b/elementary/internal/value"
	"github.com/stretchr/testify/require"
)

const testSR = 48000.0
const testBlock = 8

// newTestReconciler wires a Reconciler to an in-test stand-in for the
// audio thread: adopt() drains whatever sequence is currently queued and
// publishes its Gen as observed, the same way Runtime.Process does.
func newTestReconciler() (r *Reconciler, g *graph.Graph, adopt func()) {
	reg := node.NewRegistry()
	ops.RegisterAll(reg, nil)
	g = graph.New(reg)
	resources := resource.New()
	outbox := spsc.New[*render.Sequence](2)

	setActive := func(id int32, active bool) {
		n, ok := g.Node(id)
		if !ok {
			return
		}
		if r, ok := n.(*ops.Root); ok {
			r.SetActive(active)
		}
	}
	setProp := func(id int32, key string, v interface{}) errcode.Code {
		n, ok := g.Node(id)
		if !ok {
			return errcode.NodeNotFound
		}
		val, ok := v.(value.Value)
		if !ok {
			return errcode.InvalidPropertyType
		}
		return n.SetProperty(key, val)
	}

	var observed atomic.Uint64
	r = New(g, resources, testSR, testBlock, outbox, setActive, setProp, observed.Load)
	adopt = func() {
		if seq, ok := outbox.DrainLatest(); ok {
			observed.Store(seq.Gen)
		}
	}
	return r, g, adopt
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	r, g, _ := newTestReconciler()
	batch := []Instruction{
		{Op: CreateNode, ID: 1, Kind: "const"},
		{Op: CreateNode, ID: 1, Kind: "const"}, // duplicate id fails
		{Op: CreateNode, ID: 2, Kind: "const"},
	}
	code := r.Apply(batch)
	require.Equal(t, errcode.NodeAlreadyExists, code)

	_, ok := g.Node(2)
	require.False(t, ok, "instructions after the failure must not apply")
}

func TestCommitPublishesSequence(t *testing.T) {
	r, g, _ := newTestReconciler()
	batch := []Instruction{
		{Op: CreateNode, ID: 1, Kind: "root"},
		{Op: CreateNode, ID: 2, Kind: "const"},
		{Op: AppendChild, ParentID: 1, ChildID: 2},
		{Op: SetProperty, ID: 2, Key: "value", Value: value.FromFloat(0.25)},
		{Op: ActivateRoots, RootIDs: []int32{1}},
		{Op: CommitUpdates},
	}
	require.Equal(t, errcode.Ok, r.Apply(batch))
	require.ElementsMatch(t, []int32{1}, g.ActiveRoots())
}

func TestDeletedNodeSurvivesUntilPrune(t *testing.T) {
	r, g, adopt := newTestReconciler()
	require.Equal(t, errcode.Ok, r.Apply([]Instruction{
		{Op: CreateNode, ID: 1, Kind: "root"},
		{Op: CreateNode, ID: 2, Kind: "const"},
		{Op: AppendChild, ParentID: 1, ChildID: 2},
		{Op: ActivateRoots, RootIDs: []int32{1}},
		{Op: CommitUpdates},
	}))
	adopt() // simulate the audio thread adopting generation 1

	require.Equal(t, errcode.Ok, r.Apply([]Instruction{
		{Op: DeleteNode, ID: 2},
	}))
	// still referenced by the live sequence, so not yet pruned.
	_, ok := g.Node(2)
	require.True(t, ok)

	require.Equal(t, errcode.Ok, r.Apply([]Instruction{
		{Op: CreateNode, ID: 3, Kind: "const"},
		{Op: AppendChild, ParentID: 1, ChildID: 3},
		{Op: CommitUpdates},
	}))
	// the audio thread has not yet been observed to move off generation
	// 1, so the superseded sequence's nodes are still held back.
	_, ok = g.Node(2)
	require.True(t, ok, "not pruned until the audio thread is confirmed off the old generation")

	adopt() // simulate the audio thread adopting generation 2
	require.Equal(t, errcode.Ok, r.Apply(nil))
	_, ok = g.Node(2)
	require.False(t, ok, "superseding commit releases the old sequence's nodes once confirmed unreachable")
}
