package analysis

import (
	"math"

	algofft "github.com/cwbudde/algo-fft"
	"gonum.org/v1/gonum/floats"
)

// Lag searches whose direct cost (lags × overlap) stays below this bound are
// evaluated exhaustively; larger ones go through the FFT.
const directCorrelationLimit = 1 << 18

// FFT values within this fraction of the largest correlation magnitude are
// re-scored exactly before the tie-break is applied.
const fftTieTolerance = 1e-9

const maxTieRescore = 64

// dotAtLag returns sum_n cand[n+lag]*ref[n] over the overlapping range.
func dotAtLag(ref []float64, cand []float64, lag int) float64 {
	start := max(0, -lag)
	end := min(len(ref), len(cand)-lag)
	if end <= start {
		return 0
	}
	return floats.Dot(ref[start:end], cand[start+lag:end+lag])
}

// estimateLag returns the lag in [lo, hi] that maximises the
// cross-correlation of cand against ref. Ties resolve to the smallest lag.
func estimateLag(ref []float64, cand []float64, lo int, hi int) int {
	if lo > hi || len(ref) == 0 || len(cand) == 0 {
		return 0
	}
	bound := math.Sqrt(floats.Dot(ref, ref) * floats.Dot(cand, cand))
	if bound == 0 {
		// Every lag correlates to exactly zero.
		return lo
	}
	overlap := min(len(ref), len(cand))
	if (hi-lo+1)*overlap <= directCorrelationLimit {
		return estimateLagExhaustive(ref, cand, lo, hi)
	}
	corr, err := crossCorrelateFFT(ref, cand)
	if err != nil {
		return estimateLagExhaustive(ref, cand, lo, hi)
	}
	return pickPeak(ref, cand, corr, lo, hi)
}

func estimateLagExhaustive(ref []float64, cand []float64, lo int, hi int) int {
	bestLag := lo
	best := math.Inf(-1)
	for lag := lo; lag <= hi; lag++ {
		s := dotAtLag(ref, cand, lag)
		if s > best {
			best = s
			bestLag = lag
		}
	}
	return bestLag
}

// pickPeak scans the FFT correlation (indexed by lag+len(ref)-1) for its
// maximum, then settles near-ties with exact dot products.
func pickPeak(ref []float64, cand []float64, corr []float64, lo int, hi int) int {
	off := len(ref) - 1
	peak := math.Inf(-1)
	for lag := lo; lag <= hi; lag++ {
		if v := corr[lag+off]; v > peak {
			peak = v
		}
	}

	// The FFT output may carry an unknown uniform scale; express the
	// tolerance relative to the largest magnitude seen.
	scale := 0.0
	for lag := lo; lag <= hi; lag++ {
		scale = math.Max(scale, math.Abs(corr[lag+off]))
	}
	tol := fftTieTolerance * scale

	bestLag := lo
	best := math.Inf(-1)
	rescored := 0
	for lag := lo; lag <= hi && rescored < maxTieRescore; lag++ {
		if corr[lag+off] < peak-tol {
			continue
		}
		rescored++
		if s := dotAtLag(ref, cand, lag); s > best {
			best = s
			bestLag = lag
		}
	}
	return bestLag
}

// crossCorrelateFFT returns the full cross-correlation of cand against ref,
// out[lag+len(ref)-1] for lag in [-(len(ref)-1), len(cand)-1].
func crossCorrelateFFT(ref []float64, cand []float64) ([]float64, error) {
	full := len(ref) + len(cand) - 1
	n := nextPow2(full)

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, err
	}

	a := make([]complex128, n)
	for i, v := range cand {
		a[i] = complex(v, 0)
	}
	b := make([]complex128, n)
	for i, v := range ref {
		b[i] = complex(v, 0)
	}
	specA := make([]complex128, n)
	specB := make([]complex128, n)
	if err := plan.Forward(specA, a); err != nil {
		return nil, err
	}
	if err := plan.Forward(specB, b); err != nil {
		return nil, err
	}
	for i := range specA {
		br := specB[i]
		specA[i] *= complex(real(br), -imag(br))
	}
	circ := make([]complex128, n)
	if err := plan.Inverse(circ, specA); err != nil {
		return nil, err
	}

	off := len(ref) - 1
	out := make([]float64, full)
	for lag := -off; lag < len(cand); lag++ {
		out[lag+off] = real(circ[(lag+n)%n])
	}
	return out, nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
