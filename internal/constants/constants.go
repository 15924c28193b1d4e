// Package constants holds tuning constants for the Elementary runtime.
package constants

// DefaultSampleRate is used when a Runtime is constructed without an
// explicit sample rate.
const DefaultSampleRate = 44100.0

// DefaultBlockSize is the number of frames processed per Process call
// when a Runtime is constructed without an explicit block size.
const DefaultBlockSize = 512

// SequenceQueueDepth is the default capacity of the SPSC queue carrying
// compiled render sequences from the control thread to the audio thread.
// Two slots let a compile land while the audio thread is still holding
// the previous sequence.
const SequenceQueueDepth = 2

// BufferChunkSize is the number of block-sized float buffers reserved
// per allocator chunk.
const BufferChunkSize = 32

// PoolInitialCapacity is the number of slots a RefCountedPool starts
// with before it needs to grow.
const PoolInitialCapacity = 64

// RootFadePerSecond is the gain-units-per-second slew rate applied to a
// root node's current gain as it chases its target gain.
const RootFadePerSecond = 20.0

// RootFadeEpsilon is the distance from the target gain below which a
// fading root is considered to have finished and is dropped.
const RootFadeEpsilon = 1e-6

// VoiceGainSmoothMs is the time constant, in milliseconds, of the gain
// smoother applied to sample-reader voice crossfades.
const VoiceGainSmoothMs = 10.0

// DefaultEdgeEpsilon is the default threshold above which a signal
// transitioning from <= this value to above it is considered a rising
// edge.
const DefaultEdgeEpsilon = 0.5

// CaptureScratchSize is the size, in samples, of the gated recorder's
// write-through scratch buffer before it is flushed into the capture
// ring.
const CaptureScratchSize = 128
