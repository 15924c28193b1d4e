package ops

import (
	"sync/atomic"

	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/ehrlich-b/elementary/internal/value"
)

// Const emits its "value" property as a constant signal, updated without
// a click by simply writing the new scalar to every sample of the block.
type Const struct {
	node.Base
	val atomic.Uint64
}

func NewConst(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Const{Base: node.NewBase(id, "const", sampleRate, blockSize)}
}

func (c *Const) SetProperty(key string, v value.Value) errcode.Code {
	if key == "value" {
		n, ok := v.AsFloat()
		if !ok {
			return errcode.InvalidPropertyType
		}
		c.val.Store(float64bits(n))
		return errcode.Ok
	}
	return c.Base.SetProperty(key, v)
}

func (c *Const) Process(ctx *node.BlockContext) {
	v := float32(float64frombits(c.val.Load()))
	out := ctx.Output
	for i := range out {
		out[i] = v
	}
}

func (c *Const) ProcessEvents(emit func(node.Event)) {}
func (c *Const) Reset()                              {}

// In reads from a named external input channel. Its "channel" property
// selects which entry of Runtime.Process's host input slice to copy; the
// render sequence special-cases this type at execution time to set
// Inputs[0] to that channel's buffer rather than resolving it from the
// node's (nonexistent) graph children.
type In struct {
	node.Base
	channel atomic.Int32
}

func NewIn(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &In{Base: node.NewBase(id, "in", sampleRate, blockSize)}
}

func (n *In) SetProperty(key string, v value.Value) errcode.Code {
	if key == "channel" {
		f, ok := v.AsFloat()
		if !ok {
			return errcode.InvalidPropertyType
		}
		n.channel.Store(int32(f))
		return errcode.Ok
	}
	return n.Base.SetProperty(key, v)
}

func (n *In) Channel() int32 { return n.channel.Load() }

func (n *In) Process(ctx *node.BlockContext) {
	src := ctx.Input(0)
	if src == nil {
		ctx.Silence()
		return
	}
	copy(ctx.Output, src)
}

func (n *In) ProcessEvents(emit func(node.Event)) {}
func (n *In) Reset()                              {}

// SR emits the runtime's sample rate as a constant signal.
type SR struct{ node.Base }

func NewSR(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &SR{Base: node.NewBase(id, "sr", sampleRate, blockSize)}
}

func (s *SR) Process(ctx *node.BlockContext) {
	v := float32(ctx.SampleRate)
	for i := range ctx.Output {
		ctx.Output[i] = v
	}
}
func (s *SR) ProcessEvents(emit func(node.Event)) {}
func (s *SR) Reset()                              {}

// Time emits a running sample count in seconds, advancing one sample per
// frame regardless of block boundaries.
type Time struct {
	node.Base
	n uint64
}

func NewTime(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Time{Base: node.NewBase(id, "time", sampleRate, blockSize)}
}

func (t *Time) Process(ctx *node.BlockContext) {
	for i := range ctx.Output {
		ctx.Output[i] = float32(float64(t.n) / ctx.SampleRate)
		t.n++
	}
}
func (t *Time) ProcessEvents(emit func(node.Event)) {}
func (t *Time) Reset()                              { t.n = 0 }

// Counter increments by 1 on each rising edge of input 0.
type Counter struct {
	node.Base
	count    float64
	lastIn   float64
	hasLast  bool
}

func NewCounter(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Counter{Base: node.NewBase(id, "counter", sampleRate, blockSize)}
}

func (c *Counter) Process(ctx *node.BlockContext) {
	in := ctx.Input(0)
	out := ctx.Output
	for i := range out {
		var x float64
		if in != nil {
			x = float64(in[i])
		}
		if c.hasLast && x > 0 && c.lastIn <= 0 {
			c.count++
		}
		c.lastIn = x
		c.hasLast = true
		out[i] = float32(c.count)
	}
}
func (c *Counter) ProcessEvents(emit func(node.Event)) {}
func (c *Counter) Reset()                              { c.count, c.lastIn, c.hasLast = 0, 0, false }

// Accum integrates input 0 sample-by-sample, with a rising edge on input
// 1 resetting the accumulator to 0.
type Accum struct {
	node.Base
	sum       float64
	lastReset float64
	hasLast   bool
}

func NewAccum(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Accum{Base: node.NewBase(id, "accum", sampleRate, blockSize)}
}

func (a *Accum) Process(ctx *node.BlockContext) {
	in := ctx.Input(0)
	reset := ctx.Input(1)
	out := ctx.Output
	for i := range out {
		var rv float64
		if reset != nil {
			rv = float64(reset[i])
		}
		if a.hasLast && rv > 0 && a.lastReset <= 0 {
			a.sum = 0
		}
		a.lastReset = rv
		a.hasLast = true
		if in != nil {
			a.sum += float64(in[i])
		}
		out[i] = float32(a.sum)
	}
}
func (a *Accum) ProcessEvents(emit func(node.Event)) {}
func (a *Accum) Reset()                              { a.sum, a.lastReset, a.hasLast = 0, 0, false }
