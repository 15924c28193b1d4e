package ops

import (
	"math"

	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/ehrlich-b/elementary/internal/value"
)

// Pole is a one-pole lowpass: y[n] = (1-|a|)*x[n] + a*y[n-1], with pole
// position driven by input 1 each sample.
type Pole struct {
	node.Base
	y float64
}

func NewPole(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Pole{Base: node.NewBase(id, "pole", sampleRate, blockSize)}
}

func (p *Pole) Process(ctx *node.BlockContext) {
	x := ctx.Input(0)
	a := ctx.Input(1)
	out := ctx.Output
	for i := range out {
		var xv, av float64
		if x != nil {
			xv = float64(x[i])
		}
		if a != nil {
			av = float64(a[i])
		}
		p.y = (1-math.Abs(av))*xv + av*p.y
		out[i] = float32(p.y)
	}
}
func (p *Pole) ProcessEvents(emit func(node.Event)) {}
func (p *Pole) Reset()                              { p.y = 0 }

// Env is an attack/release envelope follower: input 1 selects attack
// time (ms), input 2 release time (ms), both recomputed into one-pole
// coefficients each sample.
type Env struct {
	node.Base
	y float64
}

func NewEnv(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Env{Base: node.NewBase(id, "env", sampleRate, blockSize)}
}

func coeffForMs(ms, sampleRate float64) float64 {
	if ms <= 0 {
		return 0
	}
	return math.Exp(-1.0 / (ms * 0.001 * sampleRate))
}

func (e *Env) Process(ctx *node.BlockContext) {
	x := ctx.Input(0)
	atk := ctx.Input(1)
	rel := ctx.Input(2)
	out := ctx.Output
	for i := range out {
		var xv, atkMs, relMs float64
		if x != nil {
			xv = math.Abs(float64(x[i]))
		}
		if atk != nil {
			atkMs = float64(atk[i])
		}
		if rel != nil {
			relMs = float64(rel[i])
		}
		var coeff float64
		if xv > e.y {
			coeff = coeffForMs(atkMs, ctx.SampleRate)
		} else {
			coeff = coeffForMs(relMs, ctx.SampleRate)
		}
		e.y = xv + coeff*(e.y-xv)
		out[i] = float32(e.y)
	}
}
func (e *Env) ProcessEvents(emit func(node.Event)) {}
func (e *Env) Reset()                              { e.y = 0 }

// Biquad implements a direct-form-II-transposed biquad whose five
// coefficients (b0,b1,b2,a1,a2) are positional inputs 1-5 recomputed
// every sample, matching how the rest of the graph feeds it coefficients
// from other nodes.
type Biquad struct {
	node.Base
	z1, z2 float64
}

func NewBiquad(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Biquad{Base: node.NewBase(id, "biquad", sampleRate, blockSize)}
}

func (b *Biquad) Process(ctx *node.BlockContext) {
	x := ctx.Input(0)
	b0 := ctx.Input(1)
	b1 := ctx.Input(2)
	b2 := ctx.Input(3)
	a1 := ctx.Input(4)
	a2 := ctx.Input(5)
	out := ctx.Output
	readAt := func(buf []float32, i int) float64 {
		if buf == nil {
			return 0
		}
		return float64(buf[i])
	}
	for i := range out {
		xv := readAt(x, i)
		y := b0Default(b0, i)*xv + b.z1
		b.z1 = b1Default(b1, i)*xv - a1Default(a1, i)*y + b.z2
		b.z2 = b2Default(b2, i)*xv - a2Default(a2, i)*y
		out[i] = float32(y)
	}
}

func b0Default(b []float32, i int) float64 {
	if b == nil {
		return 1
	}
	return float64(b[i])
}
func b1Default(b []float32, i int) float64 {
	if b == nil {
		return 0
	}
	return float64(b[i])
}
func b2Default(b []float32, i int) float64 { return b1Default(b, i) }
func a1Default(b []float32, i int) float64 { return b1Default(b, i) }
func a2Default(b []float32, i int) float64 { return b1Default(b, i) }

func (b *Biquad) ProcessEvents(emit func(node.Event)) {}
func (b *Biquad) Reset()                              { b.z1, b.z2 = 0, 0 }

// Prewarp bilinear-transform prewarps a cutoff frequency (input 0, Hz)
// for use feeding a biquad's analog-domain coefficient formulas.
type Prewarp struct{ node.Base }

func NewPrewarp(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Prewarp{Base: node.NewBase(id, "prewarp", sampleRate, blockSize)}
}

func (p *Prewarp) Process(ctx *node.BlockContext) {
	f := ctx.Input(0)
	out := ctx.Output
	for i := range out {
		var fv float64
		if f != nil {
			fv = float64(f[i])
		}
		out[i] = float32(2 * ctx.SampleRate * math.Tan(math.Pi*fv/ctx.SampleRate))
	}
}
func (p *Prewarp) ProcessEvents(emit func(node.Event)) {}
func (p *Prewarp) Reset()                              {}

// MM1P is a one-pole topology-preserving lowpass filter: input 0 is the
// signal and input 1 the cutoff in Hz. It has no mode input or property;
// the output is always the lowpass response.
type MM1P struct {
	node.Base
	z float64
}

func NewMM1P(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &MM1P{Base: node.NewBase(id, "mm1p", sampleRate, blockSize)}
}

func (m *MM1P) Process(ctx *node.BlockContext) {
	x := ctx.Input(0)
	cutoff := ctx.Input(1)
	out := ctx.Output
	for i := range out {
		var xv, fc float64
		if x != nil {
			xv = float64(x[i])
		}
		if cutoff != nil {
			fc = float64(cutoff[i])
		}
		g := math.Tan(math.Pi * fc / ctx.SampleRate)
		a := g / (1 + g)
		lp := a*xv + a*(xv-m.z) + m.z
		m.z = lp
		out[i] = float32(lp)
	}
}
func (m *MM1P) ProcessEvents(emit func(node.Event)) {}
func (m *MM1P) Reset()                              { m.z = 0 }

// SVF is a zero-delay-feedback state-variable filter producing its
// lowpass output; cutoff (input 1) and resonance (input 2) are control
// inputs recomputed each sample.
type SVF struct {
	node.Base
	ic1, ic2 float64
}

func NewSVF(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &SVF{Base: node.NewBase(id, "svf", sampleRate, blockSize)}
}

func (s *SVF) step(x, fc, q, sampleRate float64) (low, band, high float64) {
	g := math.Tan(math.Pi * fc / sampleRate)
	k := 1.0 / q
	a1 := 1.0 / (1 + g*(g+k))
	a2 := g * a1
	a3 := g * a2
	v3 := x - s.ic2
	v1 := a1*s.ic1 + a2*v3
	v2 := s.ic2 + a2*s.ic1 + a3*v3
	s.ic1 = 2*v1 - s.ic1
	s.ic2 = 2*v2 - s.ic2
	return v2, v1, x - k*v1 - v2
}

func (s *SVF) Process(ctx *node.BlockContext) {
	x := ctx.Input(0)
	fc := ctx.Input(1)
	q := ctx.Input(2)
	out := ctx.Output
	for i := range out {
		var xv, fcv, qv float64
		if x != nil {
			xv = float64(x[i])
		}
		if fc != nil {
			fcv = float64(fc[i])
		}
		if q != nil {
			qv = float64(q[i])
		} else {
			qv = 0.707
		}
		if qv <= 0 {
			qv = 0.707
		}
		low, _, _ := s.step(xv, fcv, qv, ctx.SampleRate)
		out[i] = float32(low)
	}
}
func (s *SVF) ProcessEvents(emit func(node.Event)) {}
func (s *SVF) Reset()                              { s.ic1, s.ic2 = 0, 0 }

// SVFShelf is the state-variable filter's high-shelf output variant,
// combining its low and high outputs with a gain property.
type SVFShelf struct {
	SVF
	gain float64
}

func NewSVFShelf(id int32, sampleRate float64, blockSize int) node.GraphNode {
	s := &SVFShelf{SVF: SVF{Base: node.NewBase(id, "svfshelf", sampleRate, blockSize)}, gain: 1}
	return s
}

func (s *SVFShelf) SetProperty(key string, v value.Value) errcode.Code {
	if key == "gain" {
		n, ok := v.AsFloat()
		if !ok {
			return errcode.InvalidPropertyType
		}
		s.gain = n
		return errcode.Ok
	}
	return s.SVF.Base.SetProperty(key, v)
}

func (s *SVFShelf) Process(ctx *node.BlockContext) {
	x := ctx.Input(0)
	fc := ctx.Input(1)
	q := ctx.Input(2)
	out := ctx.Output
	for i := range out {
		var xv, fcv, qv float64
		if x != nil {
			xv = float64(x[i])
		}
		if fc != nil {
			fcv = float64(fc[i])
		}
		if q != nil {
			qv = float64(q[i])
		} else {
			qv = 0.707
		}
		if qv <= 0 {
			qv = 0.707
		}
		low, _, high := s.step(xv, fcv, qv, ctx.SampleRate)
		out[i] = float32(low + s.gain*high)
	}
}

// Delay is a fixed-maximum-length delay line: input 0 is the signal and
// input 1 the delay time in samples, which may vary but never exceeds
// its "size" property. There is no feedback path; the output is the
// delayed input only.
type Delay struct {
	node.Base
	buf  []float32
	pos  int
	size int
}

func NewDelay(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Delay{Base: node.NewBase(id, "delay", sampleRate, blockSize), size: int(sampleRate)}
}

func (d *Delay) SetProperty(key string, v value.Value) errcode.Code {
	if key == "size" {
		n, ok := v.AsFloat()
		if !ok {
			return errcode.InvalidPropertyType
		}
		d.size = int(n)
		if d.size < 1 {
			d.size = 1
		}
		d.buf = nil
		return errcode.Ok
	}
	return d.Base.SetProperty(key, v)
}

func (d *Delay) ensureBuf() {
	if d.buf == nil {
		d.buf = make([]float32, d.size)
	}
}

func (d *Delay) Process(ctx *node.BlockContext) {
	d.ensureBuf()
	x := ctx.Input(0)
	delaySamples := ctx.Input(1)
	out := ctx.Output
	n := len(d.buf)
	for i := range out {
		dt := 1
		if delaySamples != nil {
			dt = int(delaySamples[i])
		}
		if dt < 0 {
			dt = 0
		}
		if dt >= n {
			dt = n - 1
		}
		readPos := d.pos - dt
		for readPos < 0 {
			readPos += n
		}
		out[i] = d.buf[readPos]
		var xv float32
		if x != nil {
			xv = x[i]
		}
		d.buf[d.pos] = xv
		d.pos++
		if d.pos >= n {
			d.pos = 0
		}
	}
}
func (d *Delay) ProcessEvents(emit func(node.Event)) {}
func (d *Delay) Reset() {
	for i := range d.buf {
		d.buf[i] = 0
	}
	d.pos = 0
}

// SDelay is a sample-accurate single-sample write/read delay used for
// short modulation delays; like Delay its maximum length comes from the
// "size" property, and unlike Delay it reads using linear interpolation
// for fractional delay times.
type SDelay struct {
	Delay
}

func NewSDelay(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &SDelay{Delay: Delay{Base: node.NewBase(id, "sdelay", sampleRate, blockSize), size: int(sampleRate)}}
}

func (d *SDelay) Process(ctx *node.BlockContext) {
	d.ensureBuf()
	x := ctx.Input(0)
	delaySamples := ctx.Input(1)
	out := ctx.Output
	n := len(d.buf)
	for i := range out {
		dt := 1.0
		if delaySamples != nil {
			dt = float64(delaySamples[i])
		}
		if dt < 0 {
			dt = 0
		}
		if dt >= float64(n-1) {
			dt = float64(n - 1)
		}
		base := int(dt)
		frac := dt - float64(base)
		p0 := d.pos - base
		for p0 < 0 {
			p0 += n
		}
		p1 := p0 - 1
		for p1 < 0 {
			p1 += n
		}
		out[i] = float32((1-frac)*float64(d.buf[p0]) + frac*float64(d.buf[p1]))
		var xv float32
		if x != nil {
			xv = x[i]
		}
		d.buf[d.pos] = xv
		d.pos++
		if d.pos >= n {
			d.pos = 0
		}
	}
}
