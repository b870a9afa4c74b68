// Package evaluate aligns every noisy and enhanced variant of a recording
// against its clean reference and scores it.
package evaluate

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/enhance-eval/analysis"
	"github.com/cwbudde/enhance-eval/internal/audioio"
	"github.com/cwbudde/enhance-eval/internal/corpus"
)

// LoadFunc decodes a file to mono at the given rate (0 keeps the native rate).
type LoadFunc func(path string, sampleRate int) (audioio.Signal, error)

// Options configures an Evaluator.
type Options struct {
	// TargetSampleRate is the rate the clean file is loaded at; 0 keeps its
	// native rate. Variants are always loaded at the clean rate.
	TargetSampleRate int
	Window           analysis.Window
	// Workers bounds concurrent recordings; 0 means GOMAXPROCS.
	Workers int
	Logger  logging.Logger
	Load    LoadFunc
}

// Variant is the score of one noisy or enhanced file.
type Variant struct {
	Path    string
	Lag     int
	Frames  int
	Bounded bool
	SNR     analysis.Metric
	SISNR   analysis.Metric
	Err     error
}

// Missing reports whether the variant has no file.
func (v Variant) Missing() bool { return v.Path == "" }

// Result holds the scores of one recording. Enhanced is indexed like the
// recording's enhanced dirs.
type Result struct {
	Recording  corpus.Recording
	SampleRate int
	Frames     int
	Noisy      Variant
	Enhanced   []Variant
	// Err is set when the clean reference could not be loaded.
	Err error
}

// Evaluator scores recordings on a bounded worker pool.
type Evaluator struct {
	opts   Options
	logger logging.Logger
	load   LoadFunc
}

// New creates an Evaluator.
func New(opts Options) *Evaluator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	load := opts.Load
	if load == nil {
		load = audioio.Load
	}
	return &Evaluator{
		opts:   opts,
		logger: logger.WithFields(logging.Fields{"component": "evaluate"}),
		load:   load,
	}
}

// Run evaluates recordings concurrently and returns results in input order.
// Per-file failures are stored on the results; only cancellation of ctx
// makes Run fail.
func (e *Evaluator) Run(ctx context.Context, recordings []corpus.Recording) ([]Result, error) {
	results := make([]Result, len(recordings))
	if len(recordings) == 0 {
		return results, nil
	}

	workers := resolveWorkers(e.opts.Workers, len(recordings))
	e.logger.Debug("Starting evaluation", logging.Fields{
		"recordings":       len(recordings),
		"workers":          workers,
		"max_shift_sec":    e.opts.Window.MaxShiftSeconds,
		"target_sample_hz": e.opts.TargetSampleRate,
	})
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rec := range recordings {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.Evaluate(rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.logger.Info("Evaluation completed", logging.Fields{
		"recordings": len(recordings),
		"elapsed":    time.Since(start).String(),
	})
	return results, nil
}

// Evaluate scores a single recording.
func (e *Evaluator) Evaluate(rec corpus.Recording) Result {
	log := e.logger.WithFields(logging.Fields{"recording": rec.Name})
	res := Result{
		Recording: rec,
		Noisy:     Variant{Path: rec.Noisy},
		Enhanced:  make([]Variant, len(rec.Enhanced)),
	}
	for i, path := range rec.Enhanced {
		res.Enhanced[i] = Variant{Path: path}
	}

	clean, err := e.load(rec.Clean, e.opts.TargetSampleRate)
	if err != nil {
		res.Err = fmt.Errorf("load clean: %w", err)
		log.Error(err, "Failed to load clean reference")
		return res
	}
	res.SampleRate = clean.SampleRate
	res.Frames = len(clean.Samples)

	res.Noisy = e.score(log, clean, rec.Noisy)
	for i, path := range rec.Enhanced {
		if path == "" {
			continue
		}
		res.Enhanced[i] = e.score(log, clean, path)
	}

	log.Debug("Recording evaluated", logging.Fields{
		"sample_rate": res.SampleRate,
		"noisy_snr":   res.Noisy.SNR.String(),
		"noisy_lag":   res.Noisy.Lag,
		"variants":    rec.Variants(),
	})
	return res
}

func (e *Evaluator) score(log logging.Logger, clean audioio.Signal, path string) Variant {
	v := Variant{Path: path}
	sig, err := e.load(path, clean.SampleRate)
	if err != nil {
		v.Err = err
		v.SNR = analysis.Undefined()
		v.SISNR = analysis.Undefined()
		log.WithFields(logging.Fields{"path": path}).Error(err, "Failed to load variant")
		return v
	}

	al := e.opts.Window.Align(clean.Samples, sig.Samples, clean.SampleRate)
	v.Lag = al.Lag
	v.Frames = al.Frames()
	v.Bounded = al.Bounded()
	v.SNR = analysis.SNR(al.Reference, al.Candidate)
	v.SISNR = analysis.SISNR(al.Reference, al.Candidate)
	return v
}
