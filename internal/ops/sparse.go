package ops

import (
	"sort"

	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/ehrlich-b/elementary/internal/spsc"
	"github.com/ehrlich-b/elementary/internal/value"
)

// sparseEvent is one (time, value) entry of a sparseq/sparseq2 sequence.
type sparseEvent struct {
	Time  float64
	Value float64
}

func decodeSparseEvents(v value.Value) ([]sparseEvent, bool) {
	arr, ok := v.AsArray()
	if !ok {
		return nil, false
	}
	out := make([]sparseEvent, 0, len(arr))
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
		tf, tfok := t.AsFloat()
		vf, vfok := val.AsFloat()
		if !tfok || !vfok {
			return nil, false
		}
		out = append(out, sparseEvent{Time: tf, Value: vf})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, true
}

// SparSeq resolves the currently active entry in a sparse (time, value)
// sequence by upper-bound lookup on input 0's running value, supporting
// optional looping and linear interpolation between events.
type SparSeq struct {
	node.Base
	pending *spsc.Queue[[]sparseEvent]

	events       []sparseEvent
	loop         bool
	follow       bool
	interp       bool
	tickInterval float64

	loopStart, loopEnd float64
	hasLoop            bool
}

func NewSparSeq(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &SparSeq{Base: node.NewBase(id, "sparseq", sampleRate, blockSize), pending: spsc.New[[]sparseEvent](4)}
}

func (s *SparSeq) SetProperty(key string, v value.Value) errcode.Code {
	switch key {
	case "seq":
		evs, ok := decodeSparseEvents(v)
		if !ok {
			return errcode.InvalidPropertyType
		}
		s.pending.Push(evs)
		return errcode.Ok
	case "loop":
		b, ok := v.AsBool()
		if !ok {
			return errcode.InvalidPropertyType
		}
		s.loop = b
		return errcode.Ok
	case "follow":
		b, ok := v.AsBool()
		if !ok {
			return errcode.InvalidPropertyType
		}
		s.follow = b
		return errcode.Ok
	case "interpolate":
		b, ok := v.AsBool()
		if !ok {
			return errcode.InvalidPropertyType
		}
		s.interp = b
		return errcode.Ok
	case "tickInterval":
		f, ok := v.AsFloat()
		if !ok {
			return errcode.InvalidPropertyType
		}
		s.tickInterval = f
		return errcode.Ok
	default:
		return s.Base.SetProperty(key, v)
	}
}

// resolve returns the value for time t via upper-bound lookup, linearly
// interpolating between the bracketing events when interp is enabled.
func (s *SparSeq) resolve(t float64) float64 {
	if len(s.events) == 0 {
		return 0
	}
	if s.loop && s.hasLoop && s.loopEnd > s.loopStart {
		span := s.loopEnd - s.loopStart
		if t >= s.loopEnd {
			t = s.loopStart + mod(t-s.loopStart, span)
		}
	}
	idx := sort.Search(len(s.events), func(i int) bool { return s.events[i].Time > t }) - 1
	if idx < 0 {
		return s.events[0].Value
	}
	if !s.interp || idx+1 >= len(s.events) {
		return s.events[idx].Value
	}
	a, b := s.events[idx], s.events[idx+1]
	span := b.Time - a.Time
	if span <= 0 {
		return a.Value
	}
	frac := (t - a.Time) / span
	return a.Value + (b.Value-a.Value)*frac
}

func mod(a, m float64) float64 {
	r := a
	for r < 0 {
		r += m
	}
	for r >= m {
		r -= m
	}
	return r
}

func (s *SparSeq) Process(ctx *node.BlockContext) {
	if next, ok := s.pending.Pop(); ok {
		s.events = next
		if len(s.events) > 0 {
			s.loopStart = s.events[0].Time
			s.loopEnd = s.events[len(s.events)-1].Time
			s.hasLoop = true
		}
	}
	in := ctx.Input(0)
	out := ctx.Output
	for i := range out {
		var t float64
		if in != nil {
			t = float64(in[i])
		}
		out[i] = float32(s.resolve(t))
	}
}
func (s *SparSeq) ProcessEvents(emit func(node.Event)) {}
func (s *SparSeq) Reset()                              {}

// SparSeq2 is sparseq registered under the kind "sparseq2": input 0 is
// the time signal, output 0 is the resolved value, with the same
// upper-bound/interpolation machinery as SparSeq and no extra output.
type SparSeq2 struct {
	SparSeq
}

func NewSparSeq2(id int32, sampleRate float64, blockSize int) node.GraphNode {
	s := &SparSeq2{SparSeq: SparSeq{Base: node.NewBase(id, "sparseq2", sampleRate, blockSize), pending: spsc.New[[]sparseEvent](4)}}
	return s
}
