// Package ops implements the concrete operator set. Each file groups a
// family of related kinds; every type embeds node.Base for
// id/kind/property bookkeeping and implements the node.GraphNode
// contract.
package ops

import (
	"math"
	"sync/atomic"

	"github.com/ehrlich-b/elementary/internal/constants"
	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/ehrlich-b/elementary/internal/value"
)

// Root is a gain-faded output sink. Its Process method is a pass-through
// (the runtime itself performs channel mixing during sequence
// execution); Root's job is to expose the atomically updated
// active/target/current gain state the scheduler reads each block.
type Root struct {
	node.Base

	active     atomic.Bool
	targetGain atomic.Uint64 // float64 bits
	curGain    atomic.Uint64 // float64 bits
	channel    atomic.Int32
}

// NewRoot constructs a root node with channel 0, inactive, zero gain.
func NewRoot(id int32, sampleRate float64, blockSize int) node.GraphNode {
	r := &Root{Base: node.NewBase(id, "root", sampleRate, blockSize)}
	r.curGain.Store(float64bits(0))
	r.targetGain.Store(float64bits(0))
	r.channel.Store(0)
	return r
}

func float64bits(f float64) uint64       { return math.Float64bits(f) }
func float64frombits(b uint64) float64   { return math.Float64frombits(b) }

// SetProperty handles "channel" (number), "active" is driven by
// ActivateRoots rather than SetProperty.
func (r *Root) SetProperty(key string, v value.Value) errcode.Code {
	switch key {
	case "channel":
		n, ok := v.AsFloat()
		if !ok {
			return errcode.InvalidPropertyType
		}
		r.channel.Store(int32(n))
		return errcode.Ok
	default:
		return r.Base.SetProperty(key, v)
	}
}

// SetActive marks the root active/inactive, driving its target gain to 1
// or 0.
func (r *Root) SetActive(active bool) {
	r.active.Store(active)
	if active {
		r.targetGain.Store(float64bits(1))
	} else {
		r.targetGain.Store(float64bits(0))
	}
}

// Active reports whether the root is currently marked active.
func (r *Root) Active() bool { return r.active.Load() }

// Channel returns the root's output channel assignment.
func (r *Root) Channel() int32 { return r.channel.Load() }

// CurrentGain returns the root's current (slewed) gain.
func (r *Root) CurrentGain() float64 { return float64frombits(r.curGain.Load()) }

// StillRunning reports whether the root is active or still fading
// (|current - target| > epsilon).
func (r *Root) StillRunning() bool {
	cur := float64frombits(r.curGain.Load())
	target := float64frombits(r.targetGain.Load())
	d := cur - target
	if d < 0 {
		d = -d
	}
	return r.active.Load() || d > constants.RootFadeEpsilon
}

// Advance slews the current gain toward the target gain by one block's
// worth of time at constants.RootFadePerSecond gain-units/second, and
// returns the gain to apply to this block's output (the value at the
// START of the block, per the "Fade in/out" testable scenario in spec
// section 8, which specifies sample n's gain as min(1, n*rate/sr) — the
// ramp is evaluated per-sample by the scheduler; Advance here updates
// the block-boundary bookkeeping that the scheduler's per-sample ramp is
// anchored to).
func (r *Root) Advance(blockSize int, sampleRate float64) (startGain, endGain float64) {
	cur := float64frombits(r.curGain.Load())
	target := float64frombits(r.targetGain.Load())
	startGain = cur

	step := constants.RootFadePerSecond / sampleRate
	for i := 0; i < blockSize; i++ {
		if cur < target {
			cur += step
			if cur > target {
				cur = target
			}
		} else if cur > target {
			cur -= step
			if cur < target {
				cur = target
			}
		}
	}
	endGain = cur
	r.curGain.Store(float64bits(cur))
	return startGain, endGain
}

func (r *Root) Process(ctx *node.BlockContext) {
	in := ctx.Input(0)
	if in == nil {
		ctx.Silence()
		return
	}
	copy(ctx.Output, in)
}

func (r *Root) ProcessEvents(emit func(node.Event)) {}

func (r *Root) Reset() {
	r.active.Store(false)
	r.curGain.Store(float64bits(0))
	r.targetGain.Store(float64bits(0))
}
