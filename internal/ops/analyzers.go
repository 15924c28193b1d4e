package ops

import (
	"math"

	"github.com/ehrlich-b/elementary/internal/constants"
	"github.com/ehrlich-b/elementary/internal/dsp"
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/ehrlich-b/elementary/internal/ring"
	"github.com/ehrlich-b/elementary/internal/spsc"
	"github.com/ehrlich-b/elementary/internal/value"
)

// analyzerBase is embedded by every node kind that publishes readout
// events to the host. Process (audio thread) pushes onto a lock-free
// queue; ProcessEvents (control thread, called once per render tick)
// drains it and invokes emit. A full queue silently drops the oldest
// pending event rather than blocking, since readout is advisory and must
// never threaten the audio thread's timing.
type analyzerBase struct {
	node.Base
	queue *spsc.Queue[node.Event]
}

func newAnalyzerBase(id int32, kind string, sampleRate float64, blockSize, depth int) analyzerBase {
	return analyzerBase{
		Base:  node.NewBase(id, kind, sampleRate, blockSize),
		queue: spsc.New[node.Event](depth),
	}
}

func (a *analyzerBase) publish(ev node.Event) {
	if !a.queue.Push(ev) {
		a.queue.Pop()
		a.queue.Push(ev)
	}
}

func (a *analyzerBase) ProcessEvents(emit func(node.Event)) {
	for {
		ev, ok := a.queue.Pop()
		if !ok {
			return
		}
		emit(ev)
	}
}

// Meter reports the peak absolute sample value seen in the most recent
// block as a "meter" event.
type Meter struct{ analyzerBase }

func NewMeter(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Meter{analyzerBase: newAnalyzerBase(id, "meter", sampleRate, blockSize, 8)}
}

func (m *Meter) Process(ctx *node.BlockContext) {
	in := ctx.Input(0)
	if in == nil {
		ctx.Silence()
		return
	}
	copy(ctx.Output, in)
	peak := float32(0)
	for _, s := range in {
		v := s
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	m.publish(node.Event{Type: "meter", Source: m.Name(), Data: value.FromFloat(float64(peak))})
}
func (m *Meter) Reset() {}

// Snapshot is a dual-purpose sample-and-hold/analyzer node: it holds
// input 1's value at each rising edge of input 0 AND emits a
// "snapshot" event carrying the sampled value at that same instant.
type Snapshot struct {
	analyzerBase
	held     float64
	lastGate float64
	hasLast  bool
}

func NewSnapshot(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Snapshot{analyzerBase: newAnalyzerBase(id, "snapshot", sampleRate, blockSize, 8)}
}

func (s *Snapshot) Process(ctx *node.BlockContext) {
	gate := ctx.Input(0)
	in := ctx.Input(1)
	out := ctx.Output
	for i := range out {
		var gv float64
		if gate != nil {
			gv = float64(gate[i])
		}
		if s.hasLast && gv > 0 && s.lastGate <= 0 {
			if in != nil {
				s.held = float64(in[i])
			}
			s.publish(node.Event{Type: "snapshot", Source: s.Name(), Data: value.FromFloat(s.held)})
		}
		s.lastGate = gv
		s.hasLast = true
		out[i] = float32(s.held)
	}
}
func (s *Snapshot) Reset() { s.held, s.lastGate, s.hasLast = 0, 0, false }

// Scope accumulates a fixed-size ring of recent samples and, once full,
// emits a "scope" event carrying the whole window as a FloatArray value.
type Scope struct {
	analyzerBase
	buf  []float32
	fill int
}

func NewScope(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Scope{
		analyzerBase: newAnalyzerBase(id, "scope", sampleRate, blockSize, 4),
		buf:          make([]float32, constants.CaptureScratchSize),
	}
}

func (s *Scope) Process(ctx *node.BlockContext) {
	in := ctx.Input(0)
	if in == nil {
		ctx.Silence()
		return
	}
	copy(ctx.Output, in)
	for _, x := range in {
		s.buf[s.fill] = x
		s.fill++
		if s.fill == len(s.buf) {
			snapshot := append([]float32(nil), s.buf...)
			s.publish(node.Event{Type: "scope", Source: s.Name(), Data: value.FromFloatArray(snapshot)})
			s.fill = 0
		}
	}
}
func (s *Scope) Reset() { s.fill = 0 }

// FFT accumulates CaptureScratchSize samples, computes their magnitude
// spectrum via internal/dsp.FFT, and emits it as an "fft" event.
type FFT struct {
	analyzerBase
	buf  []dsp.Complex
	fill int
}

func NewFFT(id int32, sampleRate float64, blockSize int) node.GraphNode {
	n := dsp.NextPow2(constants.CaptureScratchSize)
	return &FFT{
		analyzerBase: newAnalyzerBase(id, "fft", sampleRate, blockSize, 4),
		buf:          make([]dsp.Complex, n),
	}
}

func (f *FFT) Process(ctx *node.BlockContext) {
	in := ctx.Input(0)
	if in == nil {
		ctx.Silence()
		return
	}
	copy(ctx.Output, in)
	for _, x := range in {
		f.buf[f.fill] = dsp.Complex{Re: float64(x)}
		f.fill++
		if f.fill == len(f.buf) {
			work := append([]dsp.Complex(nil), f.buf...)
			dsp.FFT(work, false)
			mags := make([]float32, len(work)/2)
			for i := range mags {
				mags[i] = float32(math.Hypot(work[i].Re, work[i].Im))
			}
			f.publish(node.Event{Type: "fft", Source: f.Name(), Data: value.FromFloatArray(mags)})
			f.fill = 0
		}
	}
}
func (f *FFT) Reset() { f.fill = 0 }

// Capture is a gated recorder. While input0 is high it writes input1
// into a fixed scratch buffer; on the scratch filling or on input0's
// falling edge it flushes the scratch into a ring sized to hold one
// second of audio. The falling edge also arms a "relay ready" flag that
// causes the next ProcessEvents call to drain the ring into a single
// "capture" event.
type Capture struct {
	analyzerBase
	ring        *ringBuf
	scratch     []float32
	scratchFill int
	relayReady  bool
	lastGate    float64
	hasLast     bool
	frame       []float32
}

func NewCapture(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Capture{
		analyzerBase: newAnalyzerBase(id, "capture", sampleRate, blockSize, 2),
		ring:         newRingBuf(int(sampleRate)),
		scratch:      make([]float32, constants.CaptureScratchSize),
		frame:        make([]float32, 1),
	}
}

func (c *Capture) flushScratch() {
	for i := 0; i < c.scratchFill; i++ {
		c.frame[0] = c.scratch[i]
		c.ring.write(c.frame)
	}
	c.scratchFill = 0
}

func (c *Capture) Process(ctx *node.BlockContext) {
	gate := ctx.Input(0)
	in := ctx.Input(1)
	out := ctx.Output
	for i := range out {
		var gv float64
		if gate != nil {
			gv = float64(gate[i])
		}
		high := gv > 0
		if high {
			var xv float32
			if in != nil {
				xv = in[i]
			}
			c.scratch[c.scratchFill] = xv
			c.scratchFill++
			if c.scratchFill == len(c.scratch) {
				c.flushScratch()
			}
		}
		if c.hasLast && !high && c.lastGate > 0 {
			c.flushScratch()
			c.relayReady = true
		}
		c.lastGate, c.hasLast = gv, true
		var xv float32
		if in != nil {
			xv = in[i]
		}
		out[i] = xv
	}
}

func (c *Capture) ProcessEvents(emit func(node.Event)) {
	c.analyzerBase.ProcessEvents(emit)
	if !c.relayReady {
		return
	}
	c.relayReady = false
	frames, ok := c.ring.drainAll()
	if !ok {
		return
	}
	emit(node.Event{Type: "capture", Source: c.Name(), Data: value.FromFloatArray(frames)})
}

func (c *Capture) Reset() {
	c.scratchFill = 0
	c.relayReady = false
	c.lastGate, c.hasLast = 0, false
	c.ring.reset()
}

// ringBuf is a single-channel wrapper over ring.Buffer[float32] sized to
// hold Capture's flushed recording.
type ringBuf struct {
	buf *ring.Buffer[float32]
}

func newRingBuf(capacity int) *ringBuf {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuf{buf: ring.New[float32](1, capacity)}
}

func (r *ringBuf) write(frame []float32) { r.buf.Write(frame) }
func (r *ringBuf) reset()                { r.buf.Reset() }

func (r *ringBuf) drainAll() ([]float32, bool) {
	n := r.buf.Len()
	if n == 0 {
		return nil, false
	}
	frames, ok := r.buf.Drain(n)
	if !ok {
		return nil, false
	}
	return frames[0], true
}
