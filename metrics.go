package elementary

import (
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/elementary/internal/interfaces"
)

// Metrics tracks control-plane and audio-thread statistics for one
// Runtime: atomic counters safe to update from the audio thread
// without locking.
type Metrics struct {
	BlocksProcessed atomic.Uint64
	SamplesRendered atomic.Uint64
	NodesVisited    atomic.Uint64
	Xruns           atomic.Uint64
	Compiles        atomic.Uint64
	CompileErrors   atomic.Uint64
	GarbageCollected atomic.Uint64
	EventsEmitted   atomic.Uint64
	EventsDropped   atomic.Uint64

	TotalBlockLatencyNs atomic.Uint64
	TotalCompileLatencyNs atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics creates a metrics instance stamped with the current time.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

func (m *Metrics) recordBlock(nodesVisited int, durationNs uint64) {
	m.BlocksProcessed.Add(1)
	m.NodesVisited.Add(uint64(nodesVisited))
	m.TotalBlockLatencyNs.Add(durationNs)
}

func (m *Metrics) recordCompile(nodeCount int, durationNs uint64) {
	m.Compiles.Add(1)
	m.TotalCompileLatencyNs.Add(durationNs)
}

func (m *Metrics) recordXrun() { m.Xruns.Add(1) }

func (m *Metrics) recordGarbageCollected(n int) {
	m.GarbageCollected.Add(uint64(n))
}

// MetricsSnapshot is a point-in-time, non-atomic copy of Metrics safe to
// hand to callers outside the audio thread.
type MetricsSnapshot struct {
	BlocksProcessed  uint64
	SamplesRendered  uint64
	NodesVisited     uint64
	Xruns            uint64
	Compiles         uint64
	CompileErrors    uint64
	GarbageCollected uint64
	EventsEmitted    uint64
	EventsDropped    uint64

	AvgBlockLatencyNs   uint64
	AvgCompileLatencyNs uint64
	UptimeNs            uint64
}

// Snapshot computes a consistent-enough snapshot of the running counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		BlocksProcessed:  m.BlocksProcessed.Load(),
		SamplesRendered:  m.SamplesRendered.Load(),
		NodesVisited:     m.NodesVisited.Load(),
		Xruns:            m.Xruns.Load(),
		Compiles:         m.Compiles.Load(),
		CompileErrors:    m.CompileErrors.Load(),
		GarbageCollected: m.GarbageCollected.Load(),
		EventsEmitted:    m.EventsEmitted.Load(),
		EventsDropped:    m.EventsDropped.Load(),
		UptimeNs:         uint64(time.Now().UnixNano() - m.StartTime.Load()),
	}
	if snap.BlocksProcessed > 0 {
		snap.AvgBlockLatencyNs = m.TotalBlockLatencyNs.Load() / snap.BlocksProcessed
	}
	if snap.Compiles > 0 {
		snap.AvgCompileLatencyNs = m.TotalCompileLatencyNs.Load() / snap.Compiles
	}
	return snap
}

// Reset zeroes every counter, restamping StartTime. Intended for tests.
func (m *Metrics) Reset() {
	m.BlocksProcessed.Store(0)
	m.SamplesRendered.Store(0)
	m.NodesVisited.Store(0)
	m.Xruns.Store(0)
	m.Compiles.Store(0)
	m.CompileErrors.Store(0)
	m.GarbageCollected.Store(0)
	m.EventsEmitted.Store(0)
	m.EventsDropped.Store(0)
	m.TotalBlockLatencyNs.Store(0)
	m.TotalCompileLatencyNs.Store(0)
	m.StartTime.Store(time.Now().UnixNano())
}

// Observer receives block-rate and control-plane instrumentation.
// Implementations must be safe to call from both the control thread and
// the audio thread; methods invoked from the audio thread (ObserveBlock,
// ObserveXrun) must not allocate, lock, or block.
// Defined in internal/interfaces so internal packages can accept an
// Observer without importing this package.
type Observer = interfaces.Observer

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveBlock(int, uint64)         {}
func (NoOpObserver) ObserveCompile(int, uint64)       {}
func (NoOpObserver) ObserveXrun()                     {}
func (NoOpObserver) ObserveGarbageCollected(int)      {}

// MetricsObserver implements Observer by recording into a Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer backed by m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveBlock(nodesVisited int, durationNs uint64) {
	o.metrics.recordBlock(nodesVisited, durationNs)
}

func (o *MetricsObserver) ObserveCompile(nodeCount int, durationNs uint64) {
	o.metrics.recordCompile(nodeCount, durationNs)
}

func (o *MetricsObserver) ObserveXrun() { o.metrics.recordXrun() }

func (o *MetricsObserver) ObserveGarbageCollected(n int) {
	o.metrics.recordGarbageCollected(n)
}

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = NoOpObserver{}
