package ops

import (
	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/ehrlich-b/elementary/internal/spsc"
	"github.com/ehrlich-b/elementary/internal/value"
)

// Seq steps through a float array property at each rising edge of input
// 0, with an optional reset train on input 1. New sequences arrive over
// an SPSC queue so the audio thread never touches a slice the control
// thread is still mutating; on arrival the current step index wraps
// modulo the new length.
type Seq struct {
	node.Base
	pending *spsc.Queue[[]float64]

	values []float64
	hold   bool
	loop   bool

	idx       int
	lastIn    float64
	lastReset float64
	hasLast   bool
}

func NewSeq(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Seq{
		Base:    node.NewBase(id, "seq", sampleRate, blockSize),
		pending: spsc.New[[]float64](4),
		loop:    true,
	}
}

func (s *Seq) SetProperty(key string, v value.Value) errcode.Code {
	switch key {
	case "seq":
		arr, ok := v.AsFloatArray()
		if !ok {
			return errcode.InvalidPropertyType
		}
		cp := make([]float64, len(arr))
		for i, f := range arr {
			cp[i] = float64(f)
		}
		s.pending.Push(cp)
		return errcode.Ok
	case "hold":
		b, ok := v.AsBool()
		if !ok {
			return errcode.InvalidPropertyType
		}
		s.hold = b
		return errcode.Ok
	case "loop":
		b, ok := v.AsBool()
		if !ok {
			return errcode.InvalidPropertyType
		}
		s.loop = b
		return errcode.Ok
	default:
		return s.Base.SetProperty(key, v)
	}
}

func (s *Seq) currentOrHeld(low bool) float64 {
	if len(s.values) == 0 {
		return 0
	}
	if s.idx >= len(s.values) {
		if s.loop {
			s.idx %= len(s.values)
		} else {
			return 0
		}
	}
	if low && !s.hold {
		return 0
	}
	return s.values[s.idx]
}

func (s *Seq) Process(ctx *node.BlockContext) {
	if next, ok := s.pending.Pop(); ok {
		s.values = next
		if len(s.values) > 0 {
			s.idx %= len(s.values)
		} else {
			s.idx = 0
		}
	}
	step := ctx.Input(0)
	reset := ctx.Input(1)
	out := ctx.Output
	for i := range out {
		var sv, rv float64
		if step != nil {
			sv = float64(step[i])
		}
		if reset != nil {
			rv = float64(reset[i])
		}
		if s.hasLast && rv > 0 && s.lastReset <= 0 {
			s.idx = 0
		}
		rising := s.hasLast && sv > 0 && s.lastIn <= 0
		if rising {
			s.idx++
			if len(s.values) > 0 && s.idx >= len(s.values) {
				if s.loop {
					s.idx = 0
				} else {
					s.idx = len(s.values) - 1
				}
			}
		}
		s.lastIn, s.lastReset, s.hasLast = sv, rv, true
		out[i] = float32(s.currentOrHeld(sv <= 0))
	}
}
func (s *Seq) ProcessEvents(emit func(node.Event)) {}
func (s *Seq) Reset()                              { s.idx, s.lastIn, s.lastReset, s.hasLast = 0, 0, 0, false }

// Seq2 reads values[(offset+edgeCount) mod len] every sample, where
// edgeCount increments on each rising edge of input0; offset/hold/loop
// property changes take effect at the next sample rather than being
// queued like Seq's array replacement.
type Seq2 struct {
	node.Base
	pending *spsc.Queue[[]float64]

	values    []float64
	offset    int
	hold      bool
	loop      bool
	edgeCount int

	lastIn  float64
	hasLast bool
}

func NewSeq2(id int32, sampleRate float64, blockSize int) node.GraphNode {
	return &Seq2{
		Base:    node.NewBase(id, "seq2", sampleRate, blockSize),
		pending: spsc.New[[]float64](4),
		loop:    true,
	}
}

func (s *Seq2) SetProperty(key string, v value.Value) errcode.Code {
	switch key {
	case "seq":
		arr, ok := v.AsFloatArray()
		if !ok {
			return errcode.InvalidPropertyType
		}
		cp := make([]float64, len(arr))
		for i, f := range arr {
			cp[i] = float64(f)
		}
		s.pending.Push(cp)
		return errcode.Ok
	case "offset":
		n, ok := v.AsFloat()
		if !ok {
			return errcode.InvalidPropertyType
		}
		s.offset = int(n)
		return errcode.Ok
	case "hold":
		b, ok := v.AsBool()
		if !ok {
			return errcode.InvalidPropertyType
		}
		s.hold = b
		return errcode.Ok
	case "loop":
		b, ok := v.AsBool()
		if !ok {
			return errcode.InvalidPropertyType
		}
		s.loop = b
		return errcode.Ok
	default:
		return s.Base.SetProperty(key, v)
	}
}

func (s *Seq2) Process(ctx *node.BlockContext) {
	if next, ok := s.pending.Pop(); ok {
		s.values = next
	}
	step := ctx.Input(0)
	out := ctx.Output
	for i := range out {
		var sv float64
		if step != nil {
			sv = float64(step[i])
		}
		if s.hasLast && sv > 0 && s.lastIn <= 0 {
			s.edgeCount++
		}
		s.lastIn, s.hasLast = sv, true

		if len(s.values) == 0 {
			out[i] = 0
			continue
		}
		j := s.offset + s.edgeCount
		if s.loop {
			j = ((j % len(s.values)) + len(s.values)) % len(s.values)
			out[i] = float32(s.values[j])
		} else if j >= 0 && j < len(s.values) {
			out[i] = float32(s.values[j])
		} else if s.hold && j >= len(s.values) {
			out[i] = float32(s.values[len(s.values)-1])
		} else {
			out[i] = 0
		}
	}
}
func (s *Seq2) ProcessEvents(emit func(node.Event)) {}
func (s *Seq2) Reset()                              { s.edgeCount, s.lastIn, s.hasLast = 0, 0, false }
