package report

import (
	"encoding/json"
	"io"

	"github.com/cwbudde/enhance-eval/analysis"
	"github.com/cwbudde/enhance-eval/internal/evaluate"
)

// Document is the JSON form of a report.
type Document struct {
	Title      string      `json:"title"`
	Recordings []Recording `json:"recordings"`
}

// Recording is the JSON form of one evaluate.Result.
type Recording struct {
	Name       string     `json:"name"`
	Clean      string     `json:"clean"`
	SampleRate int        `json:"sample_rate,omitempty"`
	Frames     int        `json:"frames,omitempty"`
	Error      string     `json:"error,omitempty"`
	Noisy      *Variant   `json:"noisy"`
	Enhanced   []*Variant `json:"enhanced"`
}

// Variant is the JSON form of one scored file. Missing variants encode as
// null.
type Variant struct {
	Path       string          `json:"path"`
	LagSamples int             `json:"lag_samples"`
	LagMs      float64         `json:"lag_ms"`
	Frames     int             `json:"frames"`
	Bounded    bool            `json:"bounded"`
	SNR        analysis.Metric `json:"snr_db"`
	SISNR      analysis.Metric `json:"si_snr_db"`
	Error      string          `json:"error,omitempty"`
}

// Build converts results into a Document with paths relative to opts.Root.
func Build(results []evaluate.Result, opts Options) Document {
	doc := Document{Title: opts.title(), Recordings: make([]Recording, 0, len(results))}
	for _, res := range results {
		rec := Recording{
			Name:       res.Recording.Name,
			Clean:      RelPath(res.Recording.Clean, opts.Root),
			SampleRate: res.SampleRate,
			Frames:     res.Frames,
			Enhanced:   make([]*Variant, len(res.Enhanced)),
		}
		failed := res.Err != nil
		if failed {
			rec.Error = res.Err.Error()
		}
		rec.Noisy = buildVariant(res.Noisy, res.SampleRate, opts.Root, failed)
		for i, v := range res.Enhanced {
			rec.Enhanced[i] = buildVariant(v, res.SampleRate, opts.Root, failed)
		}
		doc.Recordings = append(doc.Recordings, rec)
	}
	return doc
}

// buildVariant keeps the path of an unscored variant so the listing stays
// complete; its metrics are reported as undefined.
func buildVariant(v evaluate.Variant, sampleRate int, root string, unscored bool) *Variant {
	if v.Missing() {
		return nil
	}
	out := &Variant{
		Path:       RelPath(v.Path, root),
		LagSamples: v.Lag,
		Frames:     v.Frames,
		Bounded:    v.Bounded,
		SNR:        v.SNR,
		SISNR:      v.SISNR,
	}
	if sampleRate > 0 {
		out.LagMs = 1000 * float64(v.Lag) / float64(sampleRate)
	}
	if v.Err != nil {
		out.Error = v.Err.Error()
	}
	if v.Err != nil || unscored {
		out.SNR = analysis.Undefined()
		out.SISNR = analysis.Undefined()
	}
	return out
}

// JSON writes the results as an indented Document.
func JSON(w io.Writer, results []evaluate.Result, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Build(results, opts))
}
