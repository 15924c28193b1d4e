package ops

import (
	"testing"

	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/node"
	"github.com/ehrlich-b/elementary/internal/resource"
	"github.com/ehrlich-b/elementary/internal/value"
	"github.com/stretchr/testify/require"
)

const testSR = 48000.0
const testBlock = 8

func newCtx(inputs [][]float32, output []float32) *node.BlockContext {
	return &node.BlockContext{
		Inputs:     inputs,
		Output:     output,
		SampleRate: testSR,
		BlockSize:  testBlock,
		Resources:  resource.New(),
	}
}

func TestRegisterAllCoversEveryBuiltinKind(t *testing.T) {
	reg := node.NewRegistry()
	RegisterAll(reg, nil)

	kinds := []string{
		"root", "const", "in", "sr", "time", "counter", "accum", "phasor", "sphasor",
		"latch", "maxhold", "once", "rand", "seq", "seq2", "sparseq", "sparseq2",
		"sampleseq", "sampleseq2", "sample", "table", "pole", "env", "biquad",
		"prewarp", "mm1p", "svf", "svfshelf", "z", "delay", "sdelay", "tapIn",
		"tapOut", "meter", "snapshot", "scope", "fft", "capture",
		"blepsaw", "blepsquare", "bleptriangle",
		"add", "sub", "mul", "div", "mod", "min", "max", "pow",
		"eq", "le", "leq", "ge", "geq", "and", "or",
		"sin", "cos", "tan", "tanh", "asinh", "ln", "log", "log2",
		"ceil", "floor", "round", "sqrt", "exp", "abs",
	}
	for _, k := range kinds {
		require.Truef(t, reg.Has(k), "missing kind %q", k)
	}
}

func TestConstEmitsPropertyValue(t *testing.T) {
	n := NewConst(1, testSR, testBlock)
	require.Equal(t, errcode.Ok, n.SetProperty("value", value.FromFloat(0.5)))
	out := make([]float32, testBlock)
	n.Process(newCtx(nil, out))
	for _, s := range out {
		require.Equal(t, float32(0.5), s)
	}
}

func TestCounterCountsRisingEdges(t *testing.T) {
	n := NewCounter(1, testSR, testBlock)
	in := []float32{0, 1, 0, 1, 0, 1, 0, 0}
	out := make([]float32, testBlock)
	n.Process(newCtx([][]float32{in}, out))
	require.Equal(t, float32(3), out[len(out)-1])
}

func TestPhasorWrapsAtOne(t *testing.T) {
	n := NewPhasor(1, 8, testBlock)
	freq := make([]float32, testBlock)
	for i := range freq {
		freq[i] = 8
	}
	out := make([]float32, testBlock)
	n.Process(newCtx([][]float32{freq}, out))
	require.Equal(t, float32(0), out[0])
	for _, s := range out {
		require.True(t, s >= 0 && s < 1)
	}
}

func TestSeqStepsOnRisingEdge(t *testing.T) {
	n := NewSeq(1, testSR, testBlock).(*Seq)
	require.Equal(t, errcode.Ok, n.SetProperty("seq", value.FromFloatArray([]float32{1, 2, 3, 4})))
	require.Equal(t, errcode.Ok, n.SetProperty("loop", value.FromBool(true)))
	require.Equal(t, errcode.Ok, n.SetProperty("hold", value.FromBool(true)))

	step := []float32{0, 1, 0, 1, 0, 1, 0, 1}
	out := make([]float32, testBlock)
	n.Process(newCtx([][]float32{step}, nil))
	_ = out

	out2 := make([]float32, testBlock)
	ctx := newCtx([][]float32{step}, out2)
	n.Process(ctx)
	require.Equal(t, float32(1), out2[0])
	require.Equal(t, float32(2), out2[1])
	require.Equal(t, float32(2), out2[2])
	require.Equal(t, float32(3), out2[3])
}

func TestTapRoundTripOneBlockLatency(t *testing.T) {
	resources := resource.New()
	block := resources.MutableBuffer("x", testBlock)

	out1 := NewTapOut(1, testSR, testBlock).(*TapOut)
	out1.BindBuffer(block)
	in1 := NewTapIn(2, testSR, testBlock).(*TapIn)
	in1.BindBuffer(block)

	inData := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	tapOutOutput := make([]float32, testBlock)
	out1.Process(newCtx([][]float32{inData}, tapOutOutput))

	// Block k's tapIn must still see silence (the shared buffer has not
	// been promoted yet); only after Promote() does block k+1's tapIn
	// observe block k's tapOut input.
	tapInBefore := make([]float32, testBlock)
	in1.Process(newCtx(nil, tapInBefore))
	require.Equal(t, make([]float32, testBlock), tapInBefore)

	out1.Promote()

	tapInAfter := make([]float32, testBlock)
	in1.Process(newCtx(nil, tapInAfter))
	require.Equal(t, inData, tapInAfter)
}

func TestRootFadesInLinearly(t *testing.T) {
	r := NewRoot(1, 48000, 512).(*Root)
	r.SetActive(true)
	start, end := r.Advance(512, 48000)
	require.Equal(t, 0.0, start)
	require.InDelta(t, float64(512)*20.0/48000, end, 1e-9)
	require.True(t, r.StillRunning())
}

func TestSampleLinearlyInterpolatesAndLoops(t *testing.T) {
	n := NewSample(1, testSR, testBlock).(*Sample)
	resources := resource.New()
	resources.Update("ramp", []float32{0, 1, 2, 3})
	require.Equal(t, errcode.Ok, n.SetProperty("path", value.FromString("ramp")))
	require.Equal(t, errcode.Ok, n.SetProperty("mode", value.FromString("loop")))
	n.BindResources(resources)

	gate := make([]float32, testBlock)
	gate[1] = 1
	out := make([]float32, testBlock)
	n.Process(newCtx([][]float32{gate}, out))
	require.Greater(t, out[testBlock-1], float32(0))
}

type fakeShifter struct {
	ratio float64
}

func (f *fakeShifter) SetPitchRatio(ratio float64) { f.ratio = ratio }
func (f *fakeShifter) Process(in []float32, outCount int) []float32 {
	out := make([]float32, outCount)
	copy(out, in)
	return out
}

func TestSampleSeq2PitchPropertyReachesShifter(t *testing.T) {
	n := NewSampleSeq2(1, testSR, testBlock).(*SampleSeq2)
	sh := &fakeShifter{}
	n.SetShifter(sh)

	require.Equal(t, errcode.Ok, n.SetProperty("pitch", value.FromFloat(1.5)))
	require.Equal(t, 1.5, sh.ratio)

	require.Equal(t, errcode.InvalidPropertyType, n.SetProperty("pitch", value.FromString("nope")))
}

func TestSampleSeq2OtherPropertiesFallThroughToSampleSeq(t *testing.T) {
	n := NewSampleSeq2(1, testSR, testBlock).(*SampleSeq2)
	require.Equal(t, errcode.Ok, n.SetProperty("path", value.FromString("voice")))
}
