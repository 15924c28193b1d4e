package render

import (
	"testing"

	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/graph"
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/ehrlich-b/elementary/internal/ops"
	"github.com/ehrlich-b/elementary/internal/resource"
	"github.com/ehrlich-b/elementary/internal/value"
	"github.com/stretchr/testify/require"
)

const testSR = 48000.0
const testBlock = 8

func newTestGraph() *graph.Graph {
	reg := node.NewRegistry()
	ops.RegisterAll(reg, nil)
	return graph.New(reg)
}

func TestBufferAllocatorGrowsAcrossChunks(t *testing.T) {
	a := NewBufferAllocator(testBlock, NewChunkPool(testBlock))
	for i := 0; i < 65; i++ {
		buf := a.Alloc()
		require.Len(t, buf, testBlock)
	}
	require.Equal(t, 65, a.Allocated())
}

func TestBufferAllocatorReleaseReturnsChunksToPool(t *testing.T) {
	p := NewChunkPool(testBlock)
	a := NewBufferAllocator(testBlock, p)
	a.Alloc()
	before := p.Len()

	a.Release()
	b := NewBufferAllocator(testBlock, p)
	b.Alloc()

	require.Equal(t, before, p.Len(), "second allocator should reuse the released chunk rather than growing the pool")
}

func TestCompileSharesBufferForDiamondDependency(t *testing.T) {
	g := newTestGraph()
	require.Equal(t, errcode.Ok, g.Create(1, "root", testSR, testBlock))
	require.Equal(t, errcode.Ok, g.Create(2, "add", testSR, testBlock))
	require.Equal(t, errcode.Ok, g.Create(3, "const", testSR, testBlock))
	require.Equal(t, errcode.Ok, g.Create(4, "const", testSR, testBlock))

	require.Equal(t, errcode.Ok, g.AppendChild(1, 2))
	require.Equal(t, errcode.Ok, g.AppendChild(2, 3))
	require.Equal(t, errcode.Ok, g.AppendChild(2, 4))
	// node 3 appears twice: once as add's first child, once as add's
	// third child too, to exercise the shared-visited-set dedupe.
	require.Equal(t, errcode.Ok, g.AppendChild(2, 3))

	var activated []int32
	g.ActivateRoots([]int32{1}, func(id int32, active bool) {
		if active {
			activated = append(activated, id)
		}
	})
	require.Equal(t, []int32{1}, activated)

	resources := resource.New()
	alloc := NewBufferAllocator(testBlock, NewChunkPool(testBlock))
	seq := Compile(g, resources, alloc, testBlock)

	require.Len(t, seq.Sub, 1)
	require.NotNil(t, seq.Buffers[3])
	// node 3 visited once despite two edges referencing it.
	opCountFor3 := 0
	for _, op := range seq.Sub[0].Ops {
		if op.NodeID == 3 {
			opCountFor3++
		}
	}
	require.Equal(t, 1, opCountFor3)
}

func TestCompileBindsTapBusByName(t *testing.T) {
	g := newTestGraph()
	require.Equal(t, errcode.Ok, g.Create(1, "root", testSR, testBlock))
	require.Equal(t, errcode.Ok, g.Create(2, "tapOut", testSR, testBlock))
	require.Equal(t, errcode.Ok, g.Create(3, "const", testSR, testBlock))

	tapOutNode, _ := g.Node(2)
	require.Equal(t, errcode.Ok, tapOutNode.SetProperty("name", value.FromString("fb")))

	require.Equal(t, errcode.Ok, g.AppendChild(1, 2))
	require.Equal(t, errcode.Ok, g.AppendChild(2, 3))

	g.ActivateRoots([]int32{1}, func(int32, bool) {})

	resources := resource.New()
	alloc := NewBufferAllocator(testBlock, NewChunkPool(testBlock))
	seq := Compile(g, resources, alloc, testBlock)

	require.Len(t, seq.Sub[0].TapOuts, 1)

	out := make([]float32, testBlock)
	ctx := node.BlockContext{SampleRate: testSR, BlockSize: testBlock, Resources: resources, Output: out}
	seq.Execute(ctx, [][]float32{make([]float32, testBlock)}, nil)

	buf := resources.MutableBuffer("fb", testBlock)
	require.NotNil(t, buf)
}

func TestCompileWiresExternalInputChannel(t *testing.T) {
	g := newTestGraph()
	require.Equal(t, errcode.Ok, g.Create(1, "root", testSR, testBlock))
	require.Equal(t, errcode.Ok, g.Create(2, "in", testSR, testBlock))
	n2, ok := g.Node(2)
	require.True(t, ok)
	require.Equal(t, errcode.Ok, n2.SetProperty("channel", value.FromFloat(1)))
	require.Equal(t, errcode.Ok, g.AppendChild(1, 2))
	g.ActivateRoots([]int32{1}, func(int32, bool) {})

	resources := resource.New()
	alloc := NewBufferAllocator(testBlock, NewChunkPool(testBlock))
	seq := Compile(g, resources, alloc, testBlock)

	externalIn := make([][]float32, 2)
	externalIn[0] = make([]float32, testBlock)
	externalIn[1] = make([]float32, testBlock)
	for i := range externalIn[1] {
		externalIn[1][i] = 0.75
	}

	out := make([]float32, testBlock)
	ctx := node.BlockContext{SampleRate: testSR, BlockSize: testBlock, Resources: resources}
	seq.Execute(ctx, [][]float32{out}, externalIn)

	for _, s := range seq.Buffers[2] {
		require.Equal(t, float32(0.75), s)
	}
}
