package ops

import (
	"github.com/ehrlich-b/elementary/internal/node"
)

// Latch samples and holds input 0 at each rising edge of input 1,
// repeating the last sampled value between edges.
type Latch struct {
	node.Base
	held    float64
	lastGate float64
	hasLast  bool
}

func NewLatch(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Latch{Base: node.NewBase(id, "latch", sampleRate, blockSize)}
}

func (l *Latch) Process(ctx *node.BlockContext) {
	in := ctx.Input(0)
	gate := ctx.Input(1)
	out := ctx.Output
	for i := range out {
		var gv float64
		if gate != nil {
			gv = float64(gate[i])
		}
		if l.hasLast && gv > 0 && l.lastGate <= 0 {
			if in != nil {
				l.held = float64(in[i])
			}
		}
		l.lastGate = gv
		l.hasLast = true
		out[i] = float32(l.held)
	}
}
func (l *Latch) ProcessEvents(emit func(node.Event)) {}
func (l *Latch) Reset()                              { l.held, l.lastGate, l.hasLast = 0, 0, false }

// MaxHold tracks the running maximum of input 0's absolute value since
// the last rising edge of input 1, which resets it.
type MaxHold struct {
	node.Base
	max       float64
	lastReset float64
	hasLast   bool
}

func NewMaxHold(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &MaxHold{Base: node.NewBase(id, "maxhold", sampleRate, blockSize)}
}

func (m *MaxHold) Process(ctx *node.BlockContext) {
	in := ctx.Input(0)
	reset := ctx.Input(1)
	out := ctx.Output
	for i := range out {
		var rv float64
		if reset != nil {
			rv = float64(reset[i])
		}
		if m.hasLast && rv > 0 && m.lastReset <= 0 {
			m.max = 0
		}
		m.lastReset = rv
		m.hasLast = true
		if in != nil {
			v := float64(in[i])
			if v < 0 {
				v = -v
			}
			if v > m.max {
				m.max = v
			}
		}
		out[i] = float32(m.max)
	}
}
func (m *MaxHold) ProcessEvents(emit func(node.Event)) {}
func (m *MaxHold) Reset()                              { m.max, m.lastReset, m.hasLast = 0, 0, false }

// Once passes input 0 through unchanged until the first rising edge of
// input 1 is observed, after which it outputs silence forever.
type Once struct {
	node.Base
	fired     bool
	lastGate  float64
	hasLast   bool
}

func NewOnce(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Once{Base: node.NewBase(id, "once", sampleRate, blockSize)}
}

func (o *Once) Process(ctx *node.BlockContext) {
	in := ctx.Input(0)
	gate := ctx.Input(1)
	out := ctx.Output
	for i := range out {
		var gv float64
		if gate != nil {
			gv = float64(gate[i])
		}
		if o.hasLast && gv > 0 && o.lastGate <= 0 {
			o.fired = true
		}
		o.lastGate = gv
		o.hasLast = true
		if o.fired {
			out[i] = 0
		} else if in != nil {
			out[i] = in[i]
		} else {
			out[i] = 0
		}
	}
}
func (o *Once) ProcessEvents(emit func(node.Event)) {}
func (o *Once) Reset()                              { o.fired, o.lastGate, o.hasLast = false, 0, false }
