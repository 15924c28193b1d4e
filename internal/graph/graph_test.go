package graph

import (
	"testing"

	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *node.Registry {
	reg := node.NewRegistry()
	reg.Register("const", func(id int32, sr float64, bs int) node.GraphNode {
		return &stubNode{Base: node.NewBase(id, "const", sr, bs)}
	})
	return reg
}

type stubNode struct{ node.Base }

func (s *stubNode) Process(ctx *node.BlockContext)      {}
func (s *stubNode) ProcessEvents(emit func(node.Event)) {}
func (s *stubNode) Reset()                              {}

func TestCreateRejectsDuplicateID(t *testing.T) {
	g := New(newTestRegistry())
	require.Equal(t, errcode.Ok, g.Create(1, "const", 48000, 512))
	require.Equal(t, errcode.NodeAlreadyExists, g.Create(1, "const", 48000, 512))
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	g := New(newTestRegistry())
	require.Equal(t, errcode.UnknownKind, g.Create(1, "nope", 48000, 512))
}

func TestAppendChildRequiresBothIDs(t *testing.T) {
	g := New(newTestRegistry())
	require.Equal(t, errcode.Ok, g.Create(1, "const", 48000, 512))
	require.Equal(t, errcode.NodeNotFound, g.AppendChild(1, 2))
	require.Equal(t, errcode.Ok, g.Create(2, "const", 48000, 512))
	require.Equal(t, errcode.Ok, g.AppendChild(1, 2))
	require.Equal(t, []int32{2}, g.Children(1))
}

func TestDeleteMovesToGarbage(t *testing.T) {
	g := New(newTestRegistry())
	require.Equal(t, errcode.Ok, g.Create(1, "const", 48000, 512))
	require.Equal(t, errcode.Ok, g.Delete(1))
	require.Equal(t, errcode.NodeNotFound, g.Delete(1))
	_, ok := g.Node(1)
	require.True(t, ok, "deleted node must still resolve via garbage table")
}

func TestPruneGarbageDestroysUnreferencedNodes(t *testing.T) {
	g := New(newTestRegistry())
	require.Equal(t, errcode.Ok, g.Create(1, "const", 48000, 512))
	require.Equal(t, errcode.Ok, g.Delete(1))
	require.Equal(t, 1, g.PruneGarbage())
	_, ok := g.Node(1)
	require.False(t, ok)
}

func TestPruneGarbageKeepsReferencedNodes(t *testing.T) {
	g := New(newTestRegistry())
	require.Equal(t, errcode.Ok, g.Create(1, "const", 48000, 512))
	g.RetainForSequence([]int32{1})
	require.Equal(t, errcode.Ok, g.Delete(1))
	require.Equal(t, 0, g.PruneGarbage())
	_, ok := g.Node(1)
	require.True(t, ok)

	g.ReleasePreviousSequence([]int32{1})
	require.Equal(t, 1, g.PruneGarbage())
	_, ok = g.Node(1)
	require.False(t, ok)
}

func TestActivateRootsTracksActiveAndFading(t *testing.T) {
	g := New(newTestRegistry())
	require.Equal(t, errcode.Ok, g.Create(1, "const", 48000, 512))
	require.Equal(t, errcode.Ok, g.Create(2, "const", 48000, 512))

	var activated, deactivated []int32
	setActive := func(id int32, active bool) {
		if active {
			activated = append(activated, id)
		} else {
			deactivated = append(deactivated, id)
		}
	}

	g.ActivateRoots([]int32{1, 2}, setActive)
	require.ElementsMatch(t, []int32{1, 2}, g.ActiveRoots())

	g.ActivateRoots([]int32{1}, setActive)
	require.ElementsMatch(t, []int32{1}, g.ActiveRoots())
	require.ElementsMatch(t, []int32{2}, g.FadingRoots())
	require.Contains(t, deactivated, int32(2))
}
