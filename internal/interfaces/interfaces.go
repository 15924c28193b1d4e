// Package interfaces defines the boundary interfaces shared between the
// root elementary package and internal packages, kept separate to avoid
// an import cycle between the public package and the rest of the tree.
package interfaces

// Logger is the minimal logging surface the runtime needs from the
// control thread. Never called from the audio thread.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Observer receives block-rate and control-plane instrumentation.
// Implementations must be safe to call from both the control thread
// and the audio thread; methods called from the audio thread must not
// allocate, lock, or block.
type Observer interface {
	ObserveBlock(nodesVisited int, durationNs uint64)
	ObserveCompile(nodeCount int, durationNs uint64)
	ObserveXrun()
	ObserveGarbageCollected(n int)
}
