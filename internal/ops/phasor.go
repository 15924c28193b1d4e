package ops

import (
	"github.com/ehrlich-b/elementary/internal/node"
)

// Phasor produces a ramp from 0 to 1 at the frequency given by input 0,
// wrapping on overflow.
type Phasor struct {
	node.Base
	phase float64
}

func NewPhasor(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Phasor{Base: node.NewBase(id, "phasor", sampleRate, blockSize)}
}

func (p *Phasor) Process(ctx *node.BlockContext) {
	freq := ctx.Input(0)
	out := ctx.Output
	for i := range out {
		out[i] = float32(p.phase)
		var f float64
		if freq != nil {
			f = float64(freq[i])
		}
		p.phase += f / ctx.SampleRate
		if p.phase >= 1 {
			p.phase -= float64(int64(p.phase))
		} else if p.phase < 0 {
			p.phase -= float64(int64(p.phase)) - 1
		}
	}
}
func (p *Phasor) ProcessEvents(emit func(node.Event)) {}
func (p *Phasor) Reset()                              { p.phase = 0 }

// SPhasor is a bipolar phasor ranging over [-1, 1).
type SPhasor struct {
	node.Base
	phase float64
}

func NewSPhasor(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &SPhasor{Base: node.NewBase(id, "sphasor", sampleRate, blockSize)}
}

func (p *SPhasor) Process(ctx *node.BlockContext) {
	freq := ctx.Input(0)
	out := ctx.Output
	for i := range out {
		out[i] = float32(p.phase*2 - 1)
		var f float64
		if freq != nil {
			f = float64(freq[i])
		}
		p.phase += f / ctx.SampleRate
		if p.phase >= 1 {
			p.phase -= float64(int64(p.phase))
		} else if p.phase < 0 {
			p.phase -= float64(int64(p.phase)) - 1
		}
	}
}
func (p *SPhasor) ProcessEvents(emit func(node.Event)) {}
func (p *SPhasor) Reset()                              { p.phase = 0 }

// Z delays its input by exactly one sample, emitting 0 for the very
// first frame.
type Z struct {
	node.Base
	prev float32
}

func NewZ(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Z{Base: node.NewBase(id, "z", sampleRate, blockSize)}
}

func (z *Z) Process(ctx *node.BlockContext) {
	in := ctx.Input(0)
	out := ctx.Output
	for i := range out {
		out[i] = z.prev
		if in != nil {
			z.prev = in[i]
		} else {
			z.prev = 0
		}
	}
}
func (z *Z) ProcessEvents(emit func(node.Event)) {}
func (z *Z) Reset()                              { z.prev = 0 }
