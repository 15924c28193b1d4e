// Package vocoder implements the real-time phase-vocoder pitch/time
// shifter used by the sampleseq2 operator: an STFT analysis/resynthesis
// loop built on internal/dsp's FFT and Kaiser window, with per-bin phase
// accumulation and a peak-preserving frequency map so pitch shifting
// moves spectral content coherently instead of smearing it across
// neighboring bins.
package vocoder

import (
	"math"

	"github.com/ehrlich-b/elementary/internal/dsp"
)

const (
	windowSize  = 1024
	overlap     = 4
	hopSize     = windowSize / overlap
	silenceEps  = 1e-8
	kaiserBeta  = 8.0
)

// Vocoder holds one sampleseq2 instance's STFT state. It is owned and
// driven entirely by the audio thread; construction (which allocates)
// happens once on the control thread when the node is created.
type Vocoder struct {
	sampleRate float64
	fftSize    int

	window []float64

	// inRing is the sliding analysis buffer; writePos is the next sample
	// slot to fill.
	inRing   []float32
	writePos int
	filled   int

	// outRing accumulates overlap-added synthesis output ahead of the block
	// boundary; readPos/writePosOut track how much has been consumed vs
	// produced.
	outRing     []float64
	outWritePos int
	outReadPos  int
	outFilled   int

	frame    []dsp.Complex
	prevPhase []float64
	sumPhase  []float64

	pitchRatio float64
	hasPrev    bool
}

// New creates a vocoder for sampleseq2 running at sampleRate, sized so
// one Process call handling blockSize frames never starves the output
// ring (a conservative multiple of the STFT hop).
func New(sampleRate float64, blockSize int) *Vocoder {
	fftSize := dsp.NextPow2(windowSize)
	v := &Vocoder{
		sampleRate: sampleRate,
		fftSize:    fftSize,
		window:     make([]float64, windowSize),
		inRing:     make([]float32, windowSize*2),
		outRing:    make([]float64, blockSize*4+fftSize),
		frame:      make([]dsp.Complex, fftSize),
		prevPhase:  make([]float64, fftSize/2+1),
		sumPhase:   make([]float64, fftSize/2+1),
		pitchRatio: 1.0,
	}
	dsp.KaiserWindow(v.window, kaiserBeta)
	return v
}

// SetPitchRatio sets the frequency multiplier applied to the spectrum
// (1.0 is unmodified; 2.0 is up one octave). Control-thread only.
func (v *Vocoder) SetPitchRatio(ratio float64) {
	if ratio <= 0 {
		ratio = 1.0
	}
	v.pitchRatio = ratio
}

// Process consumes in (this block's unshifted playback signal),
// accumulates it into the analysis ring, runs as many STFT frames as
// have become available, and returns outCount samples of shifted output.
// The returned slice is newly allocated on each call and is not shared
// with v's internal rings.
func (v *Vocoder) Process(in []float32, outCount int) []float32 {
	if v.pitchRatio == 1.0 && isSilent(in) && v.outFilled == 0 {
		return zeroSlice(outCount)
	}

	for _, s := range in {
		v.inRing[v.writePos] = s
		v.writePos = (v.writePos + 1) % len(v.inRing)
		v.filled++
		if v.filled >= windowSize && (v.filled-windowSize)%hopSize == 0 {
			v.runFrame()
		}
	}

	out := make([]float32, outCount)
	for i := 0; i < outCount; i++ {
		if v.outFilled == 0 {
			break
		}
		out[i] = float32(v.outRing[v.outReadPos])
		v.outRing[v.outReadPos] = 0
		v.outReadPos = (v.outReadPos + 1) % len(v.outRing)
		v.outFilled--
	}
	return out
}

// runFrame performs one analysis/pitch-map/resynthesis cycle on the most
// recent windowSize samples and overlap-adds the result into outRing at
// the same hop the analysis advanced by, so the shifted signal keeps the
// original's duration.
func (v *Vocoder) runFrame() {
	n := v.fftSize
	for i := 0; i < n; i++ {
		if i < windowSize {
			idx := (v.writePos - windowSize + i + len(v.inRing)) % len(v.inRing)
			v.frame[i] = dsp.Complex{Re: float64(v.inRing[idx]) * v.window[i]}
		} else {
			v.frame[i] = dsp.Complex{}
		}
	}

	dsp.FFT(v.frame, false)

	bins := n/2 + 1
	mags := make([]float64, bins)
	phases := make([]float64, bins)
	for k := 0; k < bins; k++ {
		re, im := v.frame[k].Re, v.frame[k].Im
		mags[k] = math.Hypot(re, im)
		phases[k] = math.Atan2(im, re)
	}

	expectedAdvance := make([]float64, bins)
	trueFreq := make([]float64, bins)
	for k := 0; k < bins; k++ {
		expectedAdvance[k] = 2 * math.Pi * float64(k) * float64(hopSize) / float64(n)
		if v.hasPrev {
			delta := phases[k] - v.prevPhase[k] - expectedAdvance[k]
			delta = wrapPhase(delta)
			trueFreq[k] = (expectedAdvance[k] + delta) / float64(hopSize)
		} else {
			trueFreq[k] = 2 * math.Pi * float64(k) / float64(n)
		}
		v.prevPhase[k] = phases[k]
	}
	v.hasPrev = true

	// Peak-preserving frequency map: redistribute each source bin's
	// magnitude to the bin its frequency maps to under the pitch ratio,
	// keeping the louder contribution on collision.
	shiftedMag := make([]float64, bins)
	shiftedFreq := make([]float64, bins)
	for k := 0; k < bins; k++ {
		dest := int(math.Round(float64(k) * v.pitchRatio))
		if dest < 0 || dest >= bins {
			continue
		}
		if mags[k] > shiftedMag[dest] {
			shiftedMag[dest] = mags[k]
			shiftedFreq[dest] = trueFreq[k] * v.pitchRatio
		}
	}

	for k := 0; k < bins; k++ {
		v.sumPhase[k] += shiftedFreq[k] * float64(hopSize)
		re := shiftedMag[k] * math.Cos(v.sumPhase[k])
		im := shiftedMag[k] * math.Sin(v.sumPhase[k])
		v.frame[k] = dsp.Complex{Re: re, Im: im}
		if k > 0 && k < n-bins+1 {
			v.frame[n-k] = dsp.Complex{Re: re, Im: -im}
		}
	}

	dsp.FFT(v.frame, true)

	for i := 0; i < windowSize; i++ {
		sample := v.frame[i].Re / float64(n) * v.window[i] / float64(overlap) * 2
		idx := (v.outWritePos + i) % len(v.outRing)
		v.outRing[idx] += sample
	}
	v.outWritePos = (v.outWritePos + hopSize) % len(v.outRing)
	if v.outFilled+hopSize <= len(v.outRing) {
		v.outFilled += hopSize
	} else {
		v.outFilled = len(v.outRing)
	}
}

func wrapPhase(p float64) float64 {
	for p > math.Pi {
		p -= 2 * math.Pi
	}
	for p < -math.Pi {
		p += 2 * math.Pi
	}
	return p
}

func isSilent(in []float32) bool {
	for _, s := range in {
		if s > silenceEps || s < -silenceEps {
			return false
		}
	}
	return true
}

func zeroSlice(n int) []float32 { return make([]float32, n) }
