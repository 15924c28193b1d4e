package ops

import (
	"sort"

	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/ehrlich-b/elementary/internal/resource"
	"github.com/ehrlich-b/elementary/internal/spsc"
	"github.com/ehrlich-b/elementary/internal/value"
)

// seqEvent is one time-driven onset/offset entry: Value 1 starts
// playback at Offset within the referenced buffer, Value 0 ends it.
type seqEvent struct {
	Time   float64
	Value  float64
	Offset float64
}

func decodeSeqEvents(v value.Value) ([]seqEvent, bool) {
	arr, ok := v.AsArray()
	if !ok {
		return nil, false
	}
	out := make([]seqEvent, 0, len(arr))
	for _, item := range arr {
		m, ok := item.AsMap()
		if !ok {
			return nil, false
		}
		t, tok := m["time"]
		val, vok := m["value"]
		if !tok || !vok {
			return nil, false
		}
		tf, _ := t.AsFloat()
		vf, _ := val.AsFloat()
		var off float64
		if o, ok := m["offset"]; ok {
			off, _ = o.AsFloat()
		}
		out = append(out, seqEvent{Time: tf, Value: vf, Offset: off})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, true
}

// SampleSeq is time-driven sample playback: input0 is a time signal in
// the sequence's own units; the node engages or disengages its two
// reader voices so that onset events (value==1) begin playback from the
// event's offset and offset events (value==0) end it. A large jump
// between the expected next block-start sample and the actual one
// triggers a bounds re-resolution via binary search rather than
// incremental scanning.
type SampleSeq struct {
	node.Base
	pending *spsc.Queue[[]seqEvent]

	events []seqEvent
	path   string
	buf    *resource.ImmutableBuffer

	voices  [2]*sampleVoice
	current int

	activeIdx      int
	hasActive      bool
	expectedTime   float64
	hasExpected    bool
}

func NewSampleSeq(id int32, sampleRate float64, blockSize int) node.GraphNode {
	s := &SampleSeq{
		Base:    node.NewBase(id, "sampleseq", sampleRate, blockSize),
		pending: spsc.New[[]seqEvent](4),
	}
	s.voices[0] = newSampleVoice(sampleRate)
	s.voices[1] = newSampleVoice(sampleRate)
	return s
}

func (s *SampleSeq) SetProperty(key string, v value.Value) errcode.Code {
	switch key {
	case "seq":
		evs, ok := decodeSeqEvents(v)
		if !ok {
			return errcode.InvalidPropertyType
		}
		s.pending.Push(evs)
		return errcode.Ok
	case "path":
		str, ok := v.AsString()
		if !ok {
			return errcode.InvalidPropertyType
		}
		s.path = str
		return errcode.Ok
	default:
		return s.Base.SetProperty(key, v)
	}
}

func (s *SampleSeq) BindResources(resources *resource.Map) {
	if resources == nil || s.path == "" {
		return
	}
	if buf, ok := resources.Get(s.path); ok {
		s.buf = buf
	}
}

func (s *SampleSeq) eventIndexFor(t float64) int {
	idx := sort.Search(len(s.events), func(i int) bool { return s.events[i].Time > t }) - 1
	return idx
}

func (s *SampleSeq) trigger(offset float64) {
	next := 1 - s.current
	s.voices[next].active = true
	s.voices[next].pos = offset
	s.voices[next].gain.SetImmediate(0)
	s.voices[next].gain.SetTarget(1)
	s.voices[s.current].gain.SetTarget(0)
	s.current = next
}

func (s *SampleSeq) release() {
	s.voices[s.current].gain.SetTarget(0)
}

func (s *SampleSeq) resolveBounds(t float64) {
	idx := s.eventIndexFor(t)
	if idx < 0 || idx >= len(s.events) {
		s.hasActive = false
		return
	}
	ev := s.events[idx]
	if ev.Value == 1 {
		if !s.hasActive || s.activeIdx != idx {
			s.trigger(ev.Offset + (t - ev.Time))
		}
	} else {
		s.release()
	}
	s.activeIdx = idx
	s.hasActive = true
}

func (s *SampleSeq) Process(ctx *node.BlockContext) {
	if next, ok := s.pending.Pop(); ok {
		s.events = next
		s.hasActive = false
	}
	timeIn := ctx.Input(0)
	out := ctx.Output

	if timeIn != nil && len(timeIn) > 0 {
		actualStart := float64(timeIn[0])
		if s.hasExpected {
			jump := actualStart - s.expectedTime
			if jump < 0 {
				jump = -jump
			}
			if jump > 1.0 {
				s.resolveBounds(actualStart)
			}
		}
	}

	if s.buf == nil || len(s.buf.Data) == 0 {
		ctx.Silence()
		s.advanceExpected(timeIn, len(out), ctx.SampleRate)
		return
	}
	data := s.buf.Data
	n := len(data)

	for i := range out {
		if timeIn != nil {
			t := float64(timeIn[i])
			idx := s.eventIndexFor(t)
			if idx >= 0 && idx < len(s.events) && (!s.hasActive || idx != s.activeIdx) {
				ev := s.events[idx]
				if ev.Value == 1 {
					s.trigger(ev.Offset)
				} else {
					s.release()
				}
				s.activeIdx, s.hasActive = idx, true
			}
		}

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
			voice.pos++
			if voice.pos >= float64(n) {
				voice.active = false
			}
			if voice.gain.Current() < 1e-5 && voice.gain.AtTarget(1e-6) {
				voice.active = false
			}
		}
		out[i] = mix
	}
	s.advanceExpected(timeIn, len(out), ctx.SampleRate)
}

func (s *SampleSeq) advanceExpected(timeIn []float32, blockSize int, sampleRate float64) {
	if timeIn != nil && len(timeIn) > 0 {
		s.expectedTime = float64(timeIn[len(timeIn)-1]) + 1.0/sampleRate
		s.hasExpected = true
	}
}

func (s *SampleSeq) ProcessEvents(emit func(node.Event)) {}
func (s *SampleSeq) Reset() {
	for _, v := range s.voices {
		v.active = false
		v.pos = 0
		v.gain.SetImmediate(0)
	}
	s.hasActive, s.hasExpected = false, false
}

// SampleSeq2 additionally runs the phase-vocoder pitch/time shifter
// (internal/vocoder) on its playback signal; the shifting itself is
// implemented by an injected Shifter so this type stays a thin
// composition of SampleSeq's scheduling with a post-processing stage.
type Shifter interface {
	Process(in []float32, outCount int) []float32
}

type SampleSeq2 struct {
	SampleSeq
	shifter Shifter
}

func NewSampleSeq2(id int32, sampleRate float64, blockSize int) node.GraphNode {
	inner := &SampleSeq{
		Base:    node.NewBase(id, "sampleseq2", sampleRate, blockSize),
		pending: spsc.New[[]seqEvent](4),
	}
	inner.voices[0] = newSampleVoice(sampleRate)
	inner.voices[1] = newSampleVoice(sampleRate)
	return &SampleSeq2{SampleSeq: *inner}
}

// SetShifter attaches the phase-vocoder shifter. Called once at
// construction by the node registry's sampleseq2 factory.
func (s *SampleSeq2) SetShifter(sh Shifter) { s.shifter = sh }

// pitchSettable is implemented by shifters that accept a frequency
// multiplier (internal/vocoder.Vocoder); kept as a narrow optional
// interface so this package still never imports internal/vocoder.
type pitchSettable interface {
	SetPitchRatio(ratio float64)
}

func (s *SampleSeq2) SetProperty(key string, v value.Value) errcode.Code {
	if key == "pitch" {
		n, ok := v.AsFloat()
		if !ok {
			return errcode.InvalidPropertyType
		}
		if ps, ok := s.shifter.(pitchSettable); ok {
			ps.SetPitchRatio(n)
		}
		return errcode.Ok
	}
	return s.SampleSeq.SetProperty(key, v)
}

func (s *SampleSeq2) Process(ctx *node.BlockContext) {
	s.SampleSeq.Process(ctx)
	if s.shifter == nil {
		return
	}
	shifted := s.shifter.Process(ctx.Output, len(ctx.Output))
	copy(ctx.Output, shifted)
}
