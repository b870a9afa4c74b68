package analysis

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Epsilon is the energy floor below which a sum of squares is treated as
// negligible.
const Epsilon = 1e-12

// MetricKind tags the state of a Metric.
type MetricKind uint8

const (
	// MetricUndefined means the ratio has no meaning (too few samples or a
	// silent reference).
	MetricUndefined MetricKind = iota
	// MetricFinite is an ordinary decibel value.
	MetricFinite
	// MetricInfinite means the residual energy is negligible.
	MetricInfinite
)

func (k MetricKind) String() string {
	switch k {
	case MetricFinite:
		return "finite"
	case MetricUndefined:
		return "undefined"
	case MetricInfinite:
		return "infinite"
	default:
		return fmt.Sprintf("MetricKind(%d)", uint8(k))
	}
}

// Metric is a decibel measurement or one of the two sentinel states.
// The zero value is Undefined, so an unscored metric never reads as 0 dB.
type Metric struct {
	kind MetricKind
	db   float64
}

// Finite returns a finite metric. NaN maps to Undefined and +Inf to Infinite.
func Finite(db float64) Metric {
	switch {
	case math.IsNaN(db):
		return Undefined()
	case math.IsInf(db, 1):
		return Infinite()
	}
	return Metric{kind: MetricFinite, db: db}
}

// Undefined returns the "not a number" sentinel.
func Undefined() Metric { return Metric{kind: MetricUndefined} }

// Infinite returns the "no measurable distortion" sentinel.
func Infinite() Metric { return Metric{kind: MetricInfinite} }

func (m Metric) Kind() MetricKind  { return m.kind }
func (m Metric) IsFinite() bool    { return m.kind == MetricFinite }
func (m Metric) IsUndefined() bool { return m.kind == MetricUndefined }
func (m Metric) IsInfinite() bool  { return m.kind == MetricInfinite }

// DB returns the decibel value and true for finite metrics, (0, false)
// otherwise.
func (m Metric) DB() (float64, bool) {
	if m.kind != MetricFinite {
		return 0, false
	}
	return m.db, true
}

// Float converts to the IEEE encoding: NaN for undefined, +Inf for infinite.
func (m Metric) Float() float64 {
	switch m.kind {
	case MetricUndefined:
		return math.NaN()
	case MetricInfinite:
		return math.Inf(1)
	}
	return m.db
}

func (m Metric) String() string {
	switch m.kind {
	case MetricUndefined:
		return "NA"
	case MetricInfinite:
		return "inf dB"
	}
	return fmt.Sprintf("%.2f dB", m.db)
}

// MarshalJSON encodes undefined as null and infinite as the string "inf".
func (m Metric) MarshalJSON() ([]byte, error) {
	switch m.kind {
	case MetricUndefined:
		return []byte("null"), nil
	case MetricInfinite:
		return []byte(`"inf"`), nil
	}
	return json.Marshal(m.db)
}

func (m *Metric) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "null":
		*m = Undefined()
		return nil
	case `"inf"`:
		*m = Infinite()
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("metric: %w", err)
	}
	*m = Finite(v)
	return nil
}

// SNR returns 10*log10(sum(ref²)/sum((ref-test)²)). It is sensitive to gain
// mismatch and not symmetric in its arguments. Inputs of unequal length are
// compared over their shared prefix.
func SNR(reference, test []float64) Metric {
	if len(reference) < 2 || len(test) < 2 {
		return Undefined()
	}
	n := min(len(reference), len(test))
	ref := reference[:n]

	noise := make([]float64, n)
	floats.SubTo(noise, ref, test[:n])

	num := floats.Dot(ref, ref)
	den := floats.Dot(noise, noise)
	if den <= Epsilon {
		return Infinite()
	}
	if num <= Epsilon {
		return Undefined()
	}
	return Finite(10.0 * math.Log10(num/den))
}

// SISNR returns the scale-invariant SNR: both inputs are made zero-mean, the
// test signal is projected onto the reference and the projection energy is
// compared to the residual energy. The Epsilon terms keep the result finite
// for any input of at least two samples.
func SISNR(reference, test []float64) Metric {
	if len(reference) < 2 || len(test) < 2 {
		return Undefined()
	}
	n := min(len(reference), len(test))
	s := centered(reference[:n])
	sh := centered(test[:n])

	scale := floats.Dot(sh, s) / (floats.Dot(s, s) + Epsilon)
	proj := make([]float64, n)
	floats.ScaleTo(proj, scale, s)
	resid := make([]float64, n)
	floats.SubTo(resid, sh, proj)

	num := floats.Dot(proj, proj) + Epsilon
	den := floats.Dot(resid, resid) + Epsilon
	return Finite(10.0 * math.Log10(num/den))
}

func centered(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	floats.AddConst(-stat.Mean(x, nil), out)
	return out
}
