package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/enhance-eval/analysis"
	"github.com/cwbudde/enhance-eval/internal/audioio"
)

var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "Write the candidate shifted onto the reference timeline",
	RunE:  runAlign,
}

func init() {
	f := alignCmd.Flags()
	f.String("reference", "", "reference audio path")
	f.String("candidate", "", "candidate audio path")
	f.String("out", "", "aligned candidate WAV path")
	f.Int("target-sample-rate", 16000, "output sample rate in Hz (0 keeps the reference rate)")
	f.Float64("max-align-seconds", 0.25, "lag search bound in seconds (0 searches every lag)")
	_ = alignCmd.MarkFlagRequired("reference")
	_ = alignCmd.MarkFlagRequired("candidate")
	_ = alignCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(alignCmd)
}

func runAlign(cmd *cobra.Command, args []string) error {
	ref, cand, err := loadPair(v.GetString("reference"), v.GetString("candidate"), v.GetInt("target_sample_rate"))
	if err != nil {
		return err
	}

	w := analysis.Window{MaxShiftSeconds: v.GetFloat64("max_align_seconds")}
	al := w.Align(ref.Samples, cand.Samples, ref.SampleRate)

	out := v.GetString("out")
	if err := audioio.WriteMonoWAV(out, al.Candidate, ref.SampleRate); err != nil {
		return fmt.Errorf("failed to write aligned wav: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "lag: %d samples (%.3f ms), %d frames written to %s\n",
		al.Lag, 1000*float64(al.Lag)/float64(ref.SampleRate), al.Frames(), out)
	return nil
}
