package ops

import (
	"github.com/ehrlich-b/elementary/internal/dsp"
	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/ehrlich-b/elementary/internal/value"
)

// BlepSaw is a band-limited sawtooth driven by input 0's frequency.
type BlepSaw struct {
	node.Base
	phase float64
}

func NewBlepSaw(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &BlepSaw{Base: node.NewBase(id, "blepsaw", sampleRate, blockSize)}
}

func (o *BlepSaw) Process(ctx *node.BlockContext) {
	freq := ctx.Input(0)
	out := ctx.Output
	for i := range out {
		var f float64
		if freq != nil {
			f = float64(freq[i])
		}
		dt := f / ctx.SampleRate
		naive := 2*o.phase - 1
		out[i] = float32(naive - dsp.PolyBLEP(o.phase, dt))
		o.phase += dt
		if o.phase >= 1 {
			o.phase -= 1
		}
	}
}
func (o *BlepSaw) ProcessEvents(emit func(node.Event)) {}
func (o *BlepSaw) Reset()                              { o.phase = 0 }

// BlepSquare is a band-limited square/pulse wave; input 1 sets pulse
// width in [0,1].
type BlepSquare struct {
	node.Base
	phase float64
}

func NewBlepSquare(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &BlepSquare{Base: node.NewBase(id, "blepsquare", sampleRate, blockSize)}
}

func (o *BlepSquare) Process(ctx *node.BlockContext) {
	freq := ctx.Input(0)
	pw := ctx.Input(1)
	out := ctx.Output
	for i := range out {
		var f, width float64
		if freq != nil {
			f = float64(freq[i])
		}
		width = 0.5
		if pw != nil {
			width = float64(pw[i])
		}
		dt := f / ctx.SampleRate
		var naive float64
		if o.phase < width {
			naive = 1
		} else {
			naive = -1
		}
		naive += dsp.PolyBLEP(o.phase, dt)
		shifted := o.phase - width
		if shifted < 0 {
			shifted += 1
		}
		naive -= dsp.PolyBLEP(shifted, dt)
		out[i] = float32(naive)
		o.phase += dt
		if o.phase >= 1 {
			o.phase -= 1
		}
	}
}
func (o *BlepSquare) ProcessEvents(emit func(node.Event)) {}
func (o *BlepSquare) Reset()                              { o.phase = 0 }

// BlepTriangle integrates a band-limited square into a triangle wave,
// leaking slightly toward 0 to avoid DC drift.
type BlepTriangle struct {
	node.Base
	phase float64
	y     float64
}

func NewBlepTriangle(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &BlepTriangle{Base: node.NewBase(id, "bleptriangle", sampleRate, blockSize)}
}

func (o *BlepTriangle) Process(ctx *node.BlockContext) {
	freq := ctx.Input(0)
	out := ctx.Output
	for i := range out {
		var f float64
		if freq != nil {
			f = float64(freq[i])
		}
		dt := f / ctx.SampleRate
		var square float64
		if o.phase < 0.5 {
			square = 1
		} else {
			square = -1
		}
		square += dsp.PolyBLEP(o.phase, dt)
		shifted := o.phase - 0.5
		if shifted < 0 {
			shifted += 1
		}
		square -= dsp.PolyBLEP(shifted, dt)

		o.y = dt*square*4 + (1-dt*4)*o.y
		out[i] = float32(o.y)
		o.phase += dt
		if o.phase >= 1 {
			o.phase -= 1
		}
	}
}
func (o *BlepTriangle) ProcessEvents(emit func(node.Event)) {}
func (o *BlepTriangle) Reset()                              { o.phase, o.y = 0, 0 }

// Rand emits a new pseudo-random value in [-1,1) on each rising edge of
// input 0 and holds it until the next edge.
type Rand struct {
	node.Base
	gen     *dsp.LCG
	held    float64
	lastIn  float64
	hasLast bool
}

func NewRand(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Rand{Base: node.NewBase(id, "rand", sampleRate, blockSize), gen: dsp.NewLCG(1)}
}

func (r *Rand) SetProperty(key string, v value.Value) errcode.Code {
	if key == "seed" {
		n, ok := v.AsFloat()
		if !ok {
			return errcode.InvalidPropertyType
		}
		r.gen.Reseed(uint32(n))
		return errcode.Ok
	}
	return r.Base.SetProperty(key, v)
}

func (r *Rand) Process(ctx *node.BlockContext) {
	trig := ctx.Input(0)
	out := ctx.Output
	for i := range out {
		var tv float64
		if trig != nil {
			tv = float64(trig[i])
		}
		if r.hasLast && tv > 0 && r.lastIn <= 0 {
			r.held = r.gen.Next()
		}
		r.lastIn = tv
		r.hasLast = true
		out[i] = float32(r.held)
	}
}
func (r *Rand) ProcessEvents(emit func(node.Event)) {}
func (r *Rand) Reset()                              { r.held, r.lastIn, r.hasLast = 0, 0, false }
