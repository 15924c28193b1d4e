package ops

import (
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/ehrlich-b/elementary/internal/resource"
)

// TapOut copies its input to its output (feed-through) and to an
// internal one-block delay buffer; the scheduler promotes that delay
// buffer into the shared mutable bus entry for "name" only AFTER every
// sub-sequence has run and outputs have been summed for the block.
// Writing directly into the shared buffer during Process would break the
// read-then-write ordering the round-trip invariant depends on, since a
// tapOut can be visited before its same-named tapIn within one
// sub-sequence's post-order traversal.
type TapOut struct {
	node.Base
	delay []float32
	buf   *resource.MutableBlock
}

func NewTapOut(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &TapOut{Base: node.NewBase(id, "tapOut", sampleRate, blockSize), delay: make([]float32, blockSize)}
}

// BindBuffer attaches the control-thread-resolved mutable block this tap
// promotes into after each block. Called only during render- sequence
// compilation.
func (t *TapOut) BindBuffer(buf *resource.MutableBlock) { t.buf = buf }

func (t *TapOut) Process(ctx *node.BlockContext) {
	in := ctx.Input(0)
	if in == nil {
		ctx.Silence()
		for i := range t.delay {
			t.delay[i] = 0
		}
		return
	}
	copy(ctx.Output, in)
	copy(t.delay, in)
}

// Promote copies this tapOut's internal delay buffer into its bound
// shared mutable buffer, making the current block's contents visible to
// the next block's tapIn. Called once per block, after every
// sub-sequence has run and outputs have been summed.
func (t *TapOut) Promote() {
	if t.buf == nil {
		return
	}
	copy(t.buf.Data, t.delay)
}

func (t *TapOut) ProcessEvents(emit func(node.Event)) {}
func (t *TapOut) Reset() {
	for i := range t.delay {
		t.delay[i] = 0
	}
	if t.buf != nil {
		for i := range t.buf.Data {
			t.buf.Data[i] = 0
		}
	}
}

// TapIn reads the contents a same-named TapOut wrote during the PREVIOUS
// block, yielding the one-block latency that makes cyclic signal paths
// safe to schedule as an ordinary post-order op list.
type TapIn struct {
	node.Base
	buf *resource.MutableBlock
}

func NewTapIn(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &TapIn{Base: node.NewBase(id, "tapIn", sampleRate, blockSize)}
}

func (t *TapIn) BindBuffer(buf *resource.MutableBlock) { t.buf = buf }

func (t *TapIn) Process(ctx *node.BlockContext) {
	if t.buf == nil {
		ctx.Silence()
		return
	}
	n := len(ctx.Output)
	for i := 0; i < n; i++ {
		if i < len(t.buf.Data) {
			ctx.Output[i] = t.buf.Data[i]
		} else {
			ctx.Output[i] = 0
		}
	}
}
func (t *TapIn) ProcessEvents(emit func(node.Event)) {}
func (t *TapIn) Reset()                              {}
