package analysis

// MinSearchWindow is the shortest leading window used by a bounded lag search.
const MinSearchWindow = 4096

// Window bounds the temporal offset searched when aligning two signals.
// A zero MaxShiftSeconds means the search is unbounded. A negative bound
// admits no lag at all, so the candidate is kept in place.
type Window struct {
	MaxShiftSeconds float64
}

// MaxShiftSamples converts the bound to samples, truncating toward zero.
// Zero means unbounded; a negative result is an empty lag window.
func (w Window) MaxShiftSamples(sampleRate int) int {
	if w.MaxShiftSeconds == 0 || sampleRate == 0 {
		return 0
	}
	return int(w.MaxShiftSeconds * float64(sampleRate))
}

// Alignment is a reference/candidate pair trimmed to equal length after the
// candidate was shifted by Lag samples. Positive Lag means the candidate was
// delayed against the reference and was trimmed at its start; negative Lag
// means it was ahead and was left-padded with zeros.
//
// The slices may share backing arrays with the inputs to Align.
type Alignment struct {
	Reference []float64
	Candidate []float64
	Lag       int
	// MaxShift is the bound used for the search in samples, 0 if unbounded.
	MaxShift int
}

// Bounded reports whether the lag search was restricted to a window.
func (a Alignment) Bounded() bool { return a.MaxShift != 0 }

// Frames is the common length of the aligned pair.
func (a Alignment) Frames() int { return min(len(a.Reference), len(a.Candidate)) }

// Align finds the lag maximising the cross-correlation of candidate against
// reference and returns the shifted, equal-length pair. Empty inputs are
// returned unchanged with lag 0.
func Align(reference, candidate []float64, sampleRate int, maxShiftSeconds float64) Alignment {
	return Window{MaxShiftSeconds: maxShiftSeconds}.Align(reference, candidate, sampleRate)
}

// Align applies the window to one pair. See the package-level Align.
func (w Window) Align(reference, candidate []float64, sampleRate int) Alignment {
	if len(reference) == 0 || len(candidate) == 0 {
		return Alignment{Reference: reference, Candidate: candidate}
	}
	maxShift := w.MaxShiftSamples(sampleRate)
	lag := w.findLag(reference, candidate, maxShift)
	ref, cand := alignByLag(reference, candidate, lag)
	return Alignment{
		Reference: ref,
		Candidate: cand,
		Lag:       lag,
		MaxShift:  maxShift,
	}
}

func (w Window) findLag(ref []float64, cand []float64, maxShift int) int {
	if maxShift == 0 {
		return estimateLag(ref, cand, -(len(ref) - 1), len(cand)-1)
	}

	n := min(len(ref), len(cand), max(MinSearchWindow, 4*maxShift))
	refW := ref[:n]
	candW := cand[:n]

	lo := max(-(n - 1), -maxShift)
	hi := min(n-1, maxShift)
	if lo > hi {
		return 0
	}
	return estimateLag(refW, candW, lo, hi)
}

// alignByLag shifts cand by lag and truncates both to the shared length.
func alignByLag(ref []float64, cand []float64, lag int) ([]float64, []float64) {
	switch {
	case lag > 0:
		if lag >= len(cand) {
			return ref[:0], cand[:0]
		}
		cand = cand[lag:]
	case lag < 0:
		padded := make([]float64, len(cand)-lag)
		copy(padded[-lag:], cand)
		cand = padded
	}
	n := min(len(ref), len(cand))
	return ref[:n], cand[:n]
}
