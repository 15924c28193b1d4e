package render

import (
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/ehrlich-b/elementary/internal/ops"
)

// Op is one render operation: a node to process, plus the positional
// child ids (in edge-table order) whose output buffers must be resolved
// from the sequence's id->buffer map at execution time. Child ids are
// resolved lazily rather than pre-bound to buffer pointers so that later
// root ordering (a node visited again from an earlier root) still works.
type Op struct {
	NodeID   int32
	Node     node.GraphNode
	ChildIDs []int32
}

// SubSequence is the ordered op list rooted at one root node, plus the
// tapOut nodes it owns.
type SubSequence struct {
	RootID  int32
	Root    *ops.Root
	Ops     []Op
	TapOuts []*ops.TapOut
}

// Sequence is the compiled, immutable render plan handed to the audio
// thread over an SPSC queue. Once constructed it is never mutated; a
// superseding compile produces an entirely new Sequence. Gen is a
// strictly increasing compile counter the reconciler stamps on every
// sequence it produces, used to tell whether the audio thread has moved
// past an older sequence before its nodes and buffers are recycled.
type Sequence struct {
	Sub     []SubSequence
	Buffers map[int32][]float32
	Gen     uint64
}

// bufferFor resolves a node-id to its compiled output buffer, or nil if
// the id was never visited by this sequence (e.g. referenced only by a
// dangling edge into a node that wasn't reachable from any root).
func (s *Sequence) bufferFor(id int32) []float32 {
	return s.Buffers[id]
}

// NodeIDs returns every node id this sequence references, used by the
// graph's use-count bookkeeping when a sequence is adopted or dropped.
func (s *Sequence) NodeIDs() []int32 {
	ids := make([]int32, 0, len(s.Buffers))
	for id := range s.Buffers {
		ids = append(ids, id)
	}
	return ids
}

// Execute runs every sub-sequence's render ops in order, sums active
// roots into the output channels, and promotes tap buffers. out is one
// slice per output channel, each already zeroed by the caller before the
// first Execute of a block. externalIn is the host-supplied input slice
// passed to Runtime.Process, indexed by an "in" node's "channel"
// property.
func (s *Sequence) Execute(ctx node.BlockContext, out [][]float32, externalIn [][]float32) {
	for _, sub := range s.Sub {
		s.runSubSequence(sub, ctx, externalIn)
		s.mixRoot(sub, out)
	}
	for _, sub := range s.Sub {
		for _, tapOut := range sub.TapOuts {
			tapOut.Promote()
		}
	}
}

func (s *Sequence) runSubSequence(sub SubSequence, ctx node.BlockContext, externalIn [][]float32) {
	for _, op := range sub.Ops {
		var inputs [][]float32
		if in, ok := op.Node.(*ops.In); ok {
			inputs = [][]float32{externalChannel(externalIn, in.Channel())}
		} else {
			inputs = make([][]float32, 0, len(op.ChildIDs))
			for _, cid := range op.ChildIDs {
				inputs = append(inputs, s.bufferFor(cid))
			}
		}
		blockCtx := ctx
		blockCtx.Inputs = inputs
		blockCtx.Output = s.bufferFor(op.NodeID)
		op.Node.Process(&blockCtx)
	}
}

func externalChannel(externalIn [][]float32, ch int32) []float32 {
	if ch < 0 || int(ch) >= len(externalIn) {
		return nil
	}
	return externalIn[ch]
}

func (s *Sequence) mixRoot(sub SubSequence, out [][]float32) {
	if sub.Root == nil {
		return
	}
	ch := sub.Root.Channel()
	if ch < 0 || int(ch) >= len(out) {
		return
	}
	startGain, endGain := sub.Root.Advance(len(out[ch]), sub.Root.SampleRate())
	buf := s.bufferFor(sub.RootID)
	if buf == nil {
		return
	}
	n := len(buf)
	for i := 0; i < n && i < len(out[ch]); i++ {
		g := float32(startGain) + (float32(endGain)-float32(startGain))*float32(i)/float32(n)
		out[ch][i] += buf[i] * g
	}
}
