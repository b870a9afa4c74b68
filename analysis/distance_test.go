package analysis

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"
)

func TestCompareIdenticalSignals(t *testing.T) {
	sr := 16000
	x := makeDecaySine(sr, 440.0, 1.5, 0.7)
	m := Compare(x, x, sr, CompareOptions{Window: Window{MaxShiftSeconds: 0.25}})
	if m.LagSamples != 0 {
		t.Fatalf("lag = %d, want 0", m.LagSamples)
	}
	if !m.SNR.IsInfinite() {
		t.Fatalf("SNR = %v, want infinite", m.SNR)
	}
	if !m.SISNR.IsFinite() {
		t.Fatalf("SI-SNR = %v, want finite", m.SISNR)
	}
	if m.TimeRMSE != 0 || m.EnvelopeRMSEDB != 0 || m.SpectralRMSEDB > 1e-9 {
		t.Fatalf("expected zero distances, got %+v", m)
	}
	if m.AlignedFrames != len(x) || m.MaxShiftSamples != 4000 {
		t.Fatalf("unexpected frame bookkeeping: %+v", m)
	}
}

func TestCompareDelayedNoisyCandidate(t *testing.T) {
	sr := 16000
	const shift = 160
	ref := makeDecaySine(sr, 261.63, 1.0, 0.8)
	noise := randomSignal(len(ref), 41)
	cand := make([]float64, len(ref))
	for i := shift; i < len(ref); i++ {
		cand[i] = ref[i-shift] + 0.01*noise[i]
	}

	m := Compare(ref, cand, sr, CompareOptions{Window: Window{MaxShiftSeconds: 0.25}})
	if m.LagSamples != shift {
		t.Fatalf("lag = %d, want %d", m.LagSamples, shift)
	}
	if math.Abs(m.LagMs-10) > 1e-9 {
		t.Fatalf("lag ms = %f, want 10", m.LagMs)
	}
	db, ok := m.SNR.DB()
	if !ok || db < 20 {
		t.Fatalf("SNR = %v, want > 20 dB", m.SNR)
	}
	si, ok := m.SISNR.DB()
	if !ok || si < 20 {
		t.Fatalf("SI-SNR = %v, want > 20 dB", m.SISNR)
	}
}

func TestCompareEmptyInputs(t *testing.T) {
	m := Compare(nil, []float64{1, 2, 3}, 16000, CompareOptions{})
	if m.AlignedFrames != 0 || !m.SNR.IsUndefined() || !m.SISNR.IsUndefined() {
		t.Fatalf("unexpected metrics for empty reference: %+v", m)
	}
}

func TestCompareMetricsJSON(t *testing.T) {
	x := randomSignal(1024, 2)
	m := Compare(x, x, 16000, CompareOptions{})
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["snr_db"] != "inf" {
		t.Fatalf("snr_db = %v, want \"inf\"", back["snr_db"])
	}
}

func TestSpectralRMSEDBFFTMatchesNaive(t *testing.T) {
	a := randomSignal(4096, 51)
	c := randomSignal(4096, 52)
	aw, cw, bins := spectralWindowedInputs(a, c)
	got := spectralRMSEDB(a, c)
	want := spectralRMSEDBNaiveWindowed(aw, cw, bins)
	if math.Abs(got-want) > 1e-6*math.Max(1, want) {
		t.Fatalf("spectralRMSEDB() = %f, naive = %f", got, want)
	}
}

func TestSpectralWindowedInputsSizes(t *testing.T) {
	for n, want := range map[int]int{100: 0, 512: 512, 1000: 512, 3000: 2048, 100000: 4096} {
		x := make([]float64, n)
		aw, _, _ := spectralWindowedInputs(x, x)
		if len(aw) != want {
			t.Fatalf("n=%d: window = %d, want %d", n, len(aw), want)
		}
	}
}

func makeDecaySine(sr int, freq float64, durationSec float64, decaySec float64) []float64 {
	n := int(float64(sr) * durationSec)
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sr)
		env := math.Exp(-t / decaySec)
		out[i] = env * math.Sin(2*math.Pi*freq*t)
	}
	return out
}

func randomSignal(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}
