package ops

import "github.com/ehrlich-b/elementary/internal/node"

// ShifterFactory constructs a fresh phase-vocoder Shifter for one
// sampleseq2 node instance. The runtime supplies this at startup (wired
// to internal/vocoder) so this package never imports the vocoder package
// directly, keeping the operator set's dependency graph one-directional.
type ShifterFactory func(sampleRate float64, blockSize int) Shifter

// RegisterAll registers every node kind this package implements into
// reg. shifterFactory may be nil, in which case sampleseq2 behaves
// exactly like sampleseq (no pitch/time shifting is applied).
func RegisterAll(reg *node.Registry, shifterFactory ShifterFactory) {
	RegisterMathOps(reg)

	reg.Register("root", NewRoot)
	reg.Register("const", NewConst)
	reg.Register("in", NewIn)
	reg.Register("sr", NewSR)
	reg.Register("time", NewTime)
	reg.Register("counter", NewCounter)
	reg.Register("accum", NewAccum)
	reg.Register("phasor", NewPhasor)
	reg.Register("sphasor", NewSPhasor)
	reg.Register("z", NewZ)

	reg.Register("latch", NewLatch)
	reg.Register("maxhold", NewMaxHold)
	reg.Register("once", NewOnce)
	reg.Register("rand", NewRand)

	reg.Register("seq", NewSeq)
	reg.Register("seq2", NewSeq2)
	reg.Register("sparseq", NewSparSeq)
	reg.Register("sparseq2", NewSparSeq2)
	reg.Register("sample", NewSample)
	reg.Register("table", NewTable)
	reg.Register("sampleseq", NewSampleSeq)
	reg.Register("sampleseq2", func(id int32, sampleRate float64, blockSize int) node.GraphNode {
		n := NewSampleSeq2(id, sampleRate, blockSize)
		if shifterFactory != nil {
			n.(*SampleSeq2).SetShifter(shifterFactory(sampleRate, blockSize))
		}
		return n
	})

	reg.Register("pole", NewPole)
	reg.Register("env", NewEnv)
	reg.Register("biquad", NewBiquad)
	reg.Register("prewarp", NewPrewarp)
	reg.Register("mm1p", NewMM1P)
	reg.Register("svf", NewSVF)
	reg.Register("svfshelf", NewSVFShelf)
	reg.Register("delay", NewDelay)
	reg.Register("sdelay", NewSDelay)

	reg.Register("tapIn", NewTapIn)
	reg.Register("tapOut", NewTapOut)

	reg.Register("meter", NewMeter)
	reg.Register("snapshot", NewSnapshot)
	reg.Register("scope", NewScope)
	reg.Register("fft", NewFFT)
	reg.Register("capture", NewCapture)

	reg.Register("blepsaw", NewBlepSaw)
	reg.Register("blepsquare", NewBlepSquare)
	reg.Register("bleptriangle", NewBlepTriangle)
}
