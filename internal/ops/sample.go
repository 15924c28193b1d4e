package ops

import (
	"github.com/ehrlich-b/elementary/internal/dsp"
	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/ehrlich-b/elementary/internal/resource"
	"github.com/ehrlich-b/elementary/internal/value"
)

// sampleMode selects Sample's retrigger behavior.
type sampleMode int

const (
	modeTrigger sampleMode = iota
	modeGate
	modeLoop
)

func parseSampleMode(s string) sampleMode {
	switch s {
	case "gate":
		return modeGate
	case "loop":
		return modeLoop
	default:
		return modeTrigger
	}
}

// sampleVoice is one playback reader: a fractional read position into
// the shared buffer plus a gain smoother used to crossfade it in and out
// so overlapping triggers never click.
type sampleVoice struct {
	active bool
	pos    float64
	gain   *dsp.OnePoleSmoother
}

func newSampleVoice(sampleRate float64) *sampleVoice {
	return &sampleVoice{gain: dsp.NewOnePoleSmoother(10, sampleRate)}
}

// Sample is triggered playback of a named shared immutable buffer with
// two alternating reader voices so retriggers never click.
type Sample struct {
	node.Base
	path        string
	mode        sampleMode
	startOffset float64
	rate        float64

	buf     *resource.ImmutableBuffer
	bufName string

	voices  [2]*sampleVoice
	current int

	lastGate float64
	hasLast  bool
}

func NewSample(id int32, sampleRate float64, blockSize int) node.GraphNode {
	s := &Sample{
		Base: node.NewBase(id, "sample", sampleRate, blockSize),
		rate: 1,
	}
	s.voices[0] = newSampleVoice(sampleRate)
	s.voices[1] = newSampleVoice(sampleRate)
	return s
}

func (s *Sample) SetProperty(key string, v value.Value) errcode.Code {
	switch key {
	case "path":
		str, ok := v.AsString()
		if !ok {
			return errcode.InvalidPropertyType
		}
		s.path = str
		return errcode.Ok
	case "mode":
		str, ok := v.AsString()
		if !ok {
			return errcode.InvalidPropertyType
		}
		s.mode = parseSampleMode(str)
		return errcode.Ok
	case "startOffset":
		n, ok := v.AsFloat()
		if !ok {
			return errcode.InvalidPropertyType
		}
		s.startOffset = n
		return errcode.Ok
	default:
		return s.Base.SetProperty(key, v)
	}
}

// BindResources resolves s.path against the shared resource map. It is a
// control-thread-only step, performed by the runtime right after each
// successful SET_PROPERTY, since resource.Map.Get takes a lock.
func (s *Sample) BindResources(resources *resource.Map) {
	if resources == nil || s.path == "" {
		return
	}
	if buf, ok := resources.Get(s.path); ok {
		s.buf = buf
		s.bufName = s.path
	}
}

func (s *Sample) trigger() {
	next := 1 - s.current
	s.voices[next].active = true
	s.voices[next].pos = s.startOffset
	s.voices[next].gain.SetImmediate(0)
	s.voices[next].gain.SetTarget(1)
	s.voices[s.current].gain.SetTarget(0)
	s.current = next
}

func (s *Sample) Process(ctx *node.BlockContext) {
	gate := ctx.Input(0)
	rateIn := ctx.Input(1)
	out := ctx.Output

	if s.buf == nil {
		ctx.Silence()
		return
	}
	data := s.buf.Data
	n := len(data)
	if n == 0 {
		ctx.Silence()
		return
	}

	for i := range out {
		var gv float64
		if gate != nil {
			gv = float64(gate[i])
		}
		rate := s.rate
		if rateIn != nil {
			rate = float64(rateIn[i])
		}
		rising := s.hasLast && gv > 0 && s.lastGate <= 0
		falling := s.hasLast && gv <= 0 && s.lastGate > 0

		if rising {
			s.trigger()
		}
		if falling && s.mode == modeGate {
			s.voices[s.current].gain.SetTarget(0)
		}
		s.lastGate, s.hasLast = gv, true

		var mix float32
		for _, voice := range s.voices {
			if !voice.active {
				continue
			}
			base := int(voice.pos)
			frac := voice.pos - float64(base)
			var s0, s1 float32
			if base >= 0 && base < n {
				s0 = data[base]
			}
			if base+1 >= 0 && base+1 < n {
				s1 = data[base+1]
			}
			sample := s0 + float32(frac)*(s1-s0)
			g := voice.gain.Next()
			mix += sample * float32(g)

			voice.pos += rate
			if voice.pos >= float64(n) {
				if s.mode == modeLoop {
					voice.pos -= float64(n)
				} else {
					voice.active = false
				}
			}
			if voice.gain.Current() < 1e-5 && voice.gain.AtTarget(1e-6) {
				voice.active = false
			}
		}
		out[i] = mix
	}
}

func (s *Sample) ProcessEvents(emit func(node.Event)) {}
func (s *Sample) Reset() {
	for _, v := range s.voices {
		v.active = false
		v.pos = 0
		v.gain.SetImmediate(0)
	}
	s.lastGate, s.hasLast = 0, false
}

// Table is a lookup-table oscillator: input 0 is a phase in [0,1)
// indexing into a named shared immutable buffer with linear
// interpolation.
type Table struct {
	node.Base
	path string
	buf  *resource.ImmutableBuffer
}

func NewTable(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Table{Base: node.NewBase(id, "table", sampleRate, blockSize)}
}

func (t *Table) SetProperty(key string, v value.Value) errcode.Code {
	if key == "path" {
		str, ok := v.AsString()
		if !ok {
			return errcode.InvalidPropertyType
		}
		t.path = str
		return errcode.Ok
	}
	return t.Base.SetProperty(key, v)
}

func (t *Table) BindResources(resources *resource.Map) {
	if resources == nil || t.path == "" {
		return
	}
	if buf, ok := resources.Get(t.path); ok {
		t.buf = buf
	}
}

func (t *Table) Process(ctx *node.BlockContext) {
	phase := ctx.Input(0)
	out := ctx.Output
	if t.buf == nil || len(t.buf.Data) == 0 {
		ctx.Silence()
		return
	}
	data := t.buf.Data
	n := len(data)
	for i := range out {
		var p float64
		if phase != nil {
			p = float64(phase[i])
		}
		p -= float64(int64(p))
		if p < 0 {
			p += 1
		}
		pos := p * float64(n)
		base := int(pos) % n
		frac := pos - float64(int(pos))
		next := (base + 1) % n
		out[i] = data[base] + float32(frac)*(data[next]-data[base])
	}
}
func (t *Table) ProcessEvents(emit func(node.Event)) {}
func (t *Table) Reset()                              {}
