package analysis

import (
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// Metrics contains alignment and distortion measurements for one
// reference/candidate pair.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int     `json:"reference_frames"`
	CandidateFrames int     `json:"candidate_frames"`
	AlignedFrames   int     `json:"aligned_frames"`
	LagSamples      int     `json:"lag_samples"`
	LagMs           float64 `json:"lag_ms"`
	MaxShiftSamples int     `json:"max_shift_samples"`

	SNR   Metric `json:"snr_db"`
	SISNR Metric `json:"si_snr_db"`

	TimeRMSE       float64 `json:"time_rmse"`
	EnvelopeRMSEDB float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB float64 `json:"spectral_rmse_db"`
}

// CompareOptions configures Compare.
type CompareOptions struct {
	Window Window
}

// Compare aligns candidate to reference and measures the aligned pair.
func Compare(reference []float64, candidate []float64, sampleRate int, opts CompareOptions) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
	}

	a := opts.Window.Align(reference, candidate, sampleRate)
	m.LagSamples = a.Lag
	m.MaxShiftSamples = a.MaxShift
	if sampleRate > 0 {
		m.LagMs = 1000.0 * float64(a.Lag) / float64(sampleRate)
	}

	refA, candA := a.Reference, a.Candidate
	n := a.Frames()
	refA, candA = refA[:n], candA[:n]
	m.AlignedFrames = n

	m.SNR = SNR(refA, candA)
	m.SISNR = SISNR(refA, candA)
	m.TimeRMSE = rmse(refA, candA)

	refEnv := rmsEnvelope(refA, 256, 128)
	candEnv := rmsEnvelope(candA, 256, 128)
	envN := min(len(refEnv), len(candEnv))
	if envN > 0 {
		envDiff := make([]float64, envN)
		for i := 0; i < envN; i++ {
			envDiff[i] = linToDB(refEnv[i]) - linToDB(candEnv[i])
		}
		m.EnvelopeRMSEDB = rms1(envDiff)
	}

	m.SpectralRMSEDB = spectralRMSEDB(refA, candA)
	return m
}

func rmse(a []float64, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

func rms1(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func rmsEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = rms1(x[start : start+frame])
	}
	return out
}

// spectralRMSEDB compares Hann-windowed log-magnitude spectra of the leading
// block of both signals. The block is the largest power of two up to 4096.
func spectralRMSEDB(a []float64, b []float64) float64 {
	aw, bw, bins := spectralWindowedInputs(a, b)
	if bins < 2 {
		return 0
	}
	plan, err := algofft.NewPlanReal64(len(aw))
	if err != nil {
		return spectralRMSEDBNaiveWindowed(aw, bw, bins)
	}
	specA := make([]complex128, len(aw)/2+1)
	specB := make([]complex128, len(bw)/2+1)
	plan.Forward(specA, aw)
	plan.Forward(specB, bw)

	var sum float64
	for k := 1; k < bins; k++ {
		d := linToDB(cmplx.Abs(specA[k])) - linToDB(cmplx.Abs(specB[k]))
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

func spectralWindowedInputs(a []float64, b []float64) ([]float64, []float64, int) {
	n := min(len(a), len(b))
	if n < 512 {
		return nil, nil, 0
	}
	size := 512
	for size*2 <= n && size < 4096 {
		size *= 2
	}
	aw := make([]float64, size)
	bw := make([]float64, size)
	for i := 0; i < size; i++ {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size-1))
		aw[i] = a[i] * w
		bw[i] = b[i] * w
	}
	return aw, bw, size / 2
}

func spectralRMSEDBNaiveWindowed(aw []float64, bw []float64, bins int) float64 {
	var sum float64
	for k := 1; k < bins; k++ {
		d := linToDB(dftBinMag(aw, k)) - linToDB(dftBinMag(bw, k))
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

func dftBinMag(x []float64, bin int) float64 {
	n := len(x)
	var re, im float64
	for i := 0; i < n; i++ {
		phi := -2.0 * math.Pi * float64(bin*i) / float64(n)
		re += x[i] * math.Cos(phi)
		im += x[i] * math.Sin(phi)
	}
	return math.Hypot(re, im)
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}
