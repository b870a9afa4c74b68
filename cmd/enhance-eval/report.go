package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/spf13/cobra"

	"github.com/cwbudde/enhance-eval/internal/config"
	"github.com/cwbudde/enhance-eval/internal/corpus"
	"github.com/cwbudde/enhance-eval/internal/evaluate"
	"github.com/cwbudde/enhance-eval/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Evaluate every recording and write a Markdown or JSON report",
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.String("clean-dir", "audio/clean", "directory of clean references")
	f.String("noisy-dir", "audio/noisy", "directory of noisy recordings")
	f.StringSlice("enhanced-dirs", []string{"audio/enhanced"}, "directories of enhanced recordings, one per system")
	f.StringSlice("extensions", []string{".wav", ".mp3", ".ogg", ".flac"}, "accepted file extensions")
	f.Int("target-sample-rate", 16000, "analysis sample rate in Hz (0 keeps the clean file's rate)")
	f.Float64("max-align-seconds", 0.25, "lag search bound in seconds (0 searches every lag)")
	f.String("mode", string(corpus.ModeIntersect), "name matching: intersect or reference")
	f.StringP("output", "o", "README.md", "report path ('-' for stdout)")
	f.String("format", config.FormatMarkdown, "report format: markdown or json")
	f.Bool("si-snr", true, "add an SI-SNR row")
	f.String("workers", "auto", "parallel recordings (integer or 'auto')")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	recs, warnings, err := corpus.Plan(cfg.Layout(), corpus.Mode(cfg.Mode))
	for _, w := range warnings {
		logger.Warn(w)
	}
	if err != nil {
		return err
	}
	logger.Info("Recordings planned", logging.Fields{
		"recordings": len(recs),
		"mode":       cfg.Mode,
		"systems":    len(cfg.EnhancedDirs),
	})

	ev := evaluate.New(evaluate.Options{
		TargetSampleRate: cfg.TargetSampleRate,
		Window:           cfg.Window(),
		Workers:          cfg.WorkerCount(),
		Logger:           logger,
	})
	results, err := ev.Run(cmd.Context(), recs)
	if err != nil {
		return err
	}

	opts := report.Options{
		SISNR:   cfg.SISNR,
		Columns: len(cfg.EnhancedDirs),
	}
	if cfg.Output == "-" {
		return writeReport(cmd.OutOrStdout(), cfg.Format, results, opts)
	}

	opts.Root = filepath.Dir(cfg.Output)
	if err := os.MkdirAll(opts.Root, 0o755); err != nil {
		return err
	}
	out, err := os.Create(cfg.Output)
	if err != nil {
		return err
	}
	if err := writeReport(out, cfg.Format, results, opts); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	abs, _ := filepath.Abs(cfg.Output)
	fmt.Fprintf(cmd.OutOrStdout(), "report written: %s (%d recordings, %d failed)\n", abs, len(results), failed)
	return nil
}

func writeReport(w io.Writer, format string, results []evaluate.Result, opts report.Options) error {
	if format == config.FormatJSON {
		return report.JSON(w, results, opts)
	}
	return report.Markdown(w, results, opts)
}
