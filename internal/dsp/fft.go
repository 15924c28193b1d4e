package dsp

import "math"

// Complex is a minimal float64 complex pair, kept separate from the
// builtin complex128 so the phase-vocoder package can operate on plain
// float slices without conversions at its hot-path boundary.
type Complex struct {
	Re, Im float64
}

// FFT computes the radix-2 Cooley-Tukey FFT of data in place. len(data)
// must be a power of two. inverse selects the inverse transform; the
// inverse transform is NOT normalized by 1/N (callers divide by N
// themselves), matching the convention most phase-vocoder literature
// uses for keeping forward/inverse symmetric in magnitude.
func FFT(data []Complex, inverse bool) {
	n := len(data)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			data[i], data[j] = data[j], data[i]
		}
	}

	sign := -1.0
	if inverse {
		sign = 1.0
	}

	for length := 2; length <= n; length <<= 1 {
		ang := sign * 2 * math.Pi / float64(length)
		wr, wi := math.Cos(ang), math.Sin(ang)
		for i := 0; i < n; i += length {
			curR, curI := 1.0, 0.0
			half := length / 2
			for j := 0; j < half; j++ {
				uR, uI := data[i+j].Re, data[i+j].Im
				vR := data[i+j+half].Re*curR - data[i+j+half].Im*curI
				vI := data[i+j+half].Re*curI + data[i+j+half].Im*curR

				data[i+j] = Complex{uR + vR, uI + vI}
				data[i+j+half] = Complex{uR - vR, uI - vI}

				nextR := curR*wr - curI*wi
				nextI := curR*wi + curI*wr
				curR, curI = nextR, nextI
			}
		}
	}
}

// NextPow2 returns the smallest power of two >= n.
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// KaiserWindow fills w with a Kaiser window of beta shape parameter,
// used by the phase vocoder for its perfect-reconstruction analysis
// window.
func KaiserWindow(w []float64, beta float64) {
	n := len(w)
	if n == 0 {
		return
	}
	denom := besselI0(beta)
	m := float64(n - 1)
	for i := 0; i < n; i++ {
		r := (2*float64(i) - m) / m
		w[i] = besselI0(beta*math.Sqrt(1-r*r)) / denom
	}
}

// besselI0 approximates the zeroth-order modified Bessel function of the
// first kind via its power series, sufficient precision for window
// generation.
func besselI0(x float64) float64 {
	sum := 1.0
	term := 1.0
	halfX := x / 2
	for k := 1; k < 25; k++ {
		term *= (halfX * halfX) / (float64(k) * float64(k))
		sum += term
		if term < 1e-12*sum {
			break
		}
	}
	return sum
}
