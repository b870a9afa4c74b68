// Package report renders evaluation results as a Markdown listening page or
// as JSON.
package report

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cwbudde/enhance-eval/analysis"
	"github.com/cwbudde/enhance-eval/internal/audioio"
	"github.com/cwbudde/enhance-eval/internal/evaluate"
)

// DefaultTitle heads the Markdown report.
const DefaultTitle = "Audio comparison with SNR"

// Options controls report rendering.
type Options struct {
	// Root is the directory audio links are made relative to, usually the
	// directory of the report file. Empty means the working directory.
	Root  string
	Title string
	// SISNR adds an SI-SNR row below the SNR row.
	SISNR bool
	// Columns is the number of enhanced columns. 0 uses the widest recording.
	Columns int
}

func (o Options) title() string {
	if o.Title == "" {
		return DefaultTitle
	}
	return o.Title
}

func (o Options) columns(results []evaluate.Result) int {
	if o.Columns > 0 {
		return o.Columns
	}
	n := 0
	for _, r := range results {
		n = max(n, len(r.Recording.Enhanced))
	}
	return n
}

// Markdown writes one section per recording with audio players and metric
// rows.
func Markdown(w io.Writer, results []evaluate.Result, opts Options) error {
	bw := bufio.NewWriter(w)
	cols := opts.columns(results)

	lines := []string{"## " + opts.title() + "\n"}
	for _, res := range results {
		lines = append(lines, "### "+res.Recording.Name+"\n")

		header := []string{"Reference (Clean)", "Noisy"}
		for k := 0; k < cols; k++ {
			if cols == 1 {
				header = append(header, "Enhanced")
			} else {
				header = append(header, fmt.Sprintf("Enhanced #%d", k+1))
			}
		}
		lines = append(lines, row(header))
		lines = append(lines, "|"+strings.Repeat("---|", len(header)))

		players := []string{
			AudioTag(RelPath(res.Recording.Clean, opts.Root)),
			AudioTag(RelPath(res.Recording.Noisy, opts.Root)),
		}
		snr := []string{metricCell("SNR", analysis.Infinite()), variantCell("SNR", res, res.Noisy, variantSNR)}
		sisnr := []string{metricCell("SI-SNR", analysis.Infinite()), variantCell("SI-SNR", res, res.Noisy, variantSISNR)}
		for k := 0; k < cols; k++ {
			var v evaluate.Variant
			if k < len(res.Enhanced) {
				v = res.Enhanced[k]
			}
			if v.Missing() {
				players = append(players, "—")
				snr = append(snr, "")
				sisnr = append(sisnr, "")
				continue
			}
			players = append(players, AudioTag(RelPath(v.Path, opts.Root)))
			snr = append(snr, variantCell("SNR", res, v, variantSNR))
			sisnr = append(sisnr, variantCell("SI-SNR", res, v, variantSISNR))
		}

		lines = append(lines, row(players), row(snr))
		if opts.SISNR {
			lines = append(lines, row(sisnr))
		}
		lines = append(lines, "")
	}

	if _, err := bw.WriteString(strings.Join(lines, "\n")); err != nil {
		return err
	}
	return bw.Flush()
}

// FormatMetric renders a metric for a Markdown cell.
func FormatMetric(m analysis.Metric) string {
	switch m.Kind() {
	case analysis.MetricUndefined:
		return "NA"
	case analysis.MetricInfinite:
		return "&infin; dB"
	}
	db, _ := m.DB()
	return fmt.Sprintf("%.2f dB", db)
}

// AudioTag returns an HTML player for a relative path.
func AudioTag(rel string) string {
	mime := audioio.MIMEType(filepath.Ext(rel))
	return fmt.Sprintf(`<audio controls preload="none"><source src="%s" type="%s"></audio>`, rel, mime)
}

// RelPath returns path relative to root with forward slashes. Paths that
// cannot be made relative are returned as is.
func RelPath(path string, root string) string {
	if root == "" {
		root = "."
	}
	absRoot, err1 := filepath.Abs(root)
	absPath, err2 := filepath.Abs(path)
	if err1 != nil || err2 != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func variantSNR(v evaluate.Variant) analysis.Metric   { return v.SNR }
func variantSISNR(v evaluate.Variant) analysis.Metric { return v.SISNR }

func variantCell(label string, res evaluate.Result, v evaluate.Variant, pick func(evaluate.Variant) analysis.Metric) string {
	if res.Err != nil || v.Err != nil {
		return metricCell(label, analysis.Undefined())
	}
	return metricCell(label, pick(v))
}

func metricCell(label string, m analysis.Metric) string {
	return "**" + label + " : " + FormatMetric(m) + "**"
}

func row(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}
