// Package elementary implements a functional, declarative audio engine
// runtime: a control thread that reconciles a node/edge graph from
// batched instructions and compiles it into immutable render sequences,
// handed off lock-free to a realtime audio thread that executes them
// with no allocation, locking, or syscalls.
package elementary

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/elementary/internal/affinity"
	"github.com/ehrlich-b/elementary/internal/constants"
	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/graph"
	"github.com/ehrlich-b/elementary/internal/interfaces"
	"github.com/ehrlich-b/elementary/internal/logging"
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/ehrlich-b/elementary/internal/ops"
	"github.com/ehrlich-b/elementary/internal/reconcile"
	"github.com/ehrlich-b/elementary/internal/render"
	"github.com/ehrlich-b/elementary/internal/resource"
	"github.com/ehrlich-b/elementary/internal/spsc"
	"github.com/ehrlich-b/elementary/internal/value"
	"github.com/ehrlich-b/elementary/internal/vocoder"
)

// Config configures a new Runtime. Zero values fall back to
// internal/constants defaults, so every field is optional.
type Config struct {
	SampleRate float64
	BlockSize  int
	Logger     interfaces.Logger
	Observer   Observer

	// AudioThreadCPU, if > 0, is the CPU core PinAudioThread binds the
	// calling goroutine's OS thread to. Zero (the default) or a negative
	// value leaves the audio thread unpinned, so core 0 cannot be
	// selected.
	AudioThreadCPU int
}

// Runtime is the top-level engine: the control-thread graph, reconciler,
// and compiler, plus the realtime process loop that executes whatever
// sequence was most recently published.
type Runtime struct {
	sampleRate float64
	blockSize  int

	registry *node.Registry
	graph    *graph.Graph
	resources *resource.Map
	recon    *reconcile.Reconciler

	sequences *spsc.Queue[*render.Sequence]
	current   *render.Sequence

	// observedGen is the Gen of the sequence Process most recently
	// adopted. The reconciler reads it to know when it is safe to
	// recycle an older sequence's nodes and buffer chunks.
	observedGen atomic.Uint64

	logger   interfaces.Logger
	observer Observer
	metrics  *Metrics

	audioThreadCPU int

	// mu guards registerNodeType, which must not race Create calls made
	// from applyInstructions.
	mu sync.Mutex
}

// New constructs a Runtime with the built-in operator set registered
// and a sampleseq2 shifter factory backed by internal/vocoder.
func New(cfg Config) *Runtime {
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = constants.DefaultSampleRate
	}
	blockSize := cfg.BlockSize
	if blockSize <= 0 {
		blockSize = constants.DefaultBlockSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger(logging.DefaultConfig())
	}
	metrics := NewMetrics()
	observer := cfg.Observer
	if observer == nil {
		observer = NewMetricsObserver(metrics)
	}

	reg := node.NewRegistry()
	shifterFactory := func(sr float64, bs int) ops.Shifter {
		return vocoder.New(sr, bs)
	}
	ops.RegisterAll(reg, shifterFactory)

	g := graph.New(reg)
	resources := resource.New()
	sequences := spsc.New[*render.Sequence](constants.SequenceQueueDepth)

	audioThreadCPU := cfg.AudioThreadCPU
	if audioThreadCPU == 0 {
		audioThreadCPU = -1
	}

	rt := &Runtime{
		sampleRate:     sampleRate,
		blockSize:      blockSize,
		registry:       reg,
		graph:          g,
		resources:      resources,
		sequences:      sequences,
		logger:         logger,
		observer:       observer,
		metrics:        metrics,
		audioThreadCPU: audioThreadCPU,
	}

	setActive := func(id int32, active bool) {
		n, ok := g.Node(id)
		if !ok {
			return
		}
		if r, ok := n.(*ops.Root); ok {
			r.SetActive(active)
		}
	}
	setProp := func(id int32, key string, v interface{}) errcode.Code {
		n, ok := g.Node(id)
		if !ok {
			return errcode.NodeNotFound
		}
		val, ok := v.(value.Value)
		if !ok {
			return errcode.InvalidPropertyType
		}
		code := n.SetProperty(key, val)
		if code != errcode.Ok {
			return code
		}
		bindControlThreadResources(n, resources)
		return errcode.Ok
	}
	rt.recon = reconcile.New(g, resources, sampleRate, blockSize, sequences, setActive, setProp, rt.observedGen.Load)

	return rt
}

// bindControlThreadResources gives sample-reading nodes a chance to
// resolve their "path" property against the shared resource map
// immediately after a successful SET_PROPERTY, on the control thread.
func bindControlThreadResources(n node.GraphNode, resources *resource.Map) {
	type resourceBinder interface {
		BindResources(resources *resource.Map)
	}
	if rb, ok := n.(resourceBinder); ok {
		rb.BindResources(resources)
	}
}

// ApplyInstructions decodes and applies one wire-format instruction
// batch, returning the error code of the first failing instruction, or
// Ok.
func (rt *Runtime) ApplyInstructions(batch value.Value) errcode.Code {
	instructions, code := decodeBatch(batch)
	if code != errcode.Ok {
		return code
	}
	t0 := time.Now()
	code = rt.recon.Apply(instructions)
	for _, ins := range instructions {
		if ins.Op == reconcile.CommitUpdates {
			rt.observer.ObserveCompile(len(rt.graph.NodeIDs()), uint64(time.Since(t0).Nanoseconds()))
		}
	}
	if code != errcode.Ok {
		rt.logger.Warnf("applyInstructions: batch of %d rejected with %s", len(instructions), code)
	}
	return code
}

// PinAudioThread locks the calling goroutine to its OS thread and, if
// Config.AudioThreadCPU was set to a positive core, restricts that
// thread to it. Callers that dedicate a goroutine to Process (the
// common real-time audio setup) call this once before their first
// Process call; it is a no-op if no CPU was configured.
func (rt *Runtime) PinAudioThread() error {
	if rt.audioThreadCPU < 0 {
		return nil
	}
	return affinity.Pin(rt.audioThreadCPU)
}

// UnpinAudioThread releases the OS thread lock taken by PinAudioThread.
func (rt *Runtime) UnpinAudioThread() {
	if rt.audioThreadCPU < 0 {
		return
	}
	affinity.Unpin()
}

// Process is the realtime entry point. inputs and outputs are one
// slice per channel, each nSamples long.
// Process adopts the newest compiled sequence (if any landed since the
// last call), executes it, and sums roots into outputs. No allocation,
// locking, or syscall occurs here.
func (rt *Runtime) Process(inputs [][]float32, outputs [][]float32, nSamples int) {
	t0 := time.Now()

	if seq, ok := rt.sequences.DrainLatest(); ok {
		rt.current = seq
		rt.observedGen.Store(seq.Gen)
	}

	for _, ch := range outputs {
		n := nSamples
		if n > len(ch) {
			n = len(ch)
		}
		for i := 0; i < n; i++ {
			ch[i] = 0
		}
	}

	if rt.current == nil || nSamples != rt.blockSize {
		rt.observer.ObserveXrun()
		return
	}

	ctx := node.BlockContext{
		SampleRate: rt.sampleRate,
		BlockSize:  rt.blockSize,
		Resources:  rt.resources,
	}

	rt.current.Execute(ctx, outputs, inputs)

	visited := 0
	for _, sub := range rt.current.Sub {
		visited += len(sub.Ops)
	}
	rt.metrics.SamplesRendered.Add(uint64(nSamples))
	rt.observer.ObserveBlock(visited, uint64(time.Since(t0).Nanoseconds()))
}

// ProcessEvents drains every analyzer readout queued since the last
// call and invokes emit for each.
func (rt *Runtime) ProcessEvents(emit func(kind string, source string, data value.Value)) {
	if rt.current == nil {
		return
	}
	for _, sub := range rt.current.Sub {
		for _, op := range sub.Ops {
			op.Node.ProcessEvents(func(ev node.Event) {
				rt.metrics.EventsEmitted.Add(1)
				emit(ev.Type, ev.Source, ev.Data)
			})
		}
	}
}

// Reset invokes Reset on every node in the node table, stopping sample
// readers and clearing transient state.
func (rt *Runtime) Reset() {
	rt.graph.Reset()
}

// UpdateSharedResourceMap inserts an immutable named buffer. It is
// append-only: re-inserting an existing name fails.
func (rt *Runtime) UpdateSharedResourceMap(name string, data []float32) bool {
	return rt.resources.Update(name, data)
}

// PruneSharedResourceMap removes immutable buffers no longer referenced
// by any node.
func (rt *Runtime) PruneSharedResourceMap() int {
	return rt.resources.Prune()
}

// GetSharedResourceMapKeys returns every currently inserted immutable
// buffer name.
func (rt *Runtime) GetSharedResourceMapKeys() []string {
	return rt.resources.Keys()
}

// RegisterNodeType extends the operator set with a custom kind.
func (rt *Runtime) RegisterNodeType(kind string, factory node.Factory) errcode.Code {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.registry.Register(kind, factory)
}

// Snapshot returns a diagnostic map of every live node's id (as a
// hex-prefixed string key) to its property map.
func (rt *Runtime) Snapshot() map[string]map[string]value.Value {
	out := make(map[string]map[string]value.Value)
	for _, id := range rt.graph.NodeIDs() {
		n, ok := rt.graph.LiveNode(id)
		if !ok {
			continue
		}
		out[idKey(id)] = n.Properties()
	}
	return out
}

// Metrics returns the runtime's live metrics counters.
func (rt *Runtime) Metrics() *Metrics { return rt.metrics }

func idKey(id int32) string {
	const hexDigits = "0123456789abcdef"
	if id == 0 {
		return "0x0"
	}
	u := uint32(id)
	buf := make([]byte, 0, 10)
	for u > 0 {
		buf = append([]byte{hexDigits[u&0xf]}, buf...)
		u >>= 4
	}
	return "0x" + string(buf)
}
