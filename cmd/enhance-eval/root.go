package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cwbudde/enhance-eval/internal/config"
)

var (
	configFile string
	v          = config.New()
)

var rootCmd = &cobra.Command{
	Use:   "enhance-eval",
	Short: "Score speech enhancement output against clean references",
	Long: `enhance-eval aligns noisy and enhanced recordings to their clean
reference by bounded cross-correlation and reports SNR and SI-SNR.

Configuration is read from defaults, an optional YAML/JSON file (--config),
ENHANCE_EVAL_* environment variables and flags, in increasing priority.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ReadFile(v, configFile); err != nil {
			return err
		}
		return bindFlags(cmd, v)
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (YAML or JSON)")
	rootCmd.PersistentFlags().String("log-level", "info",
		"log level (debug, info, warn, error)")
}

// bindFlags binds every flag to the viper key of the same name with dashes
// replaced by underscores.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "help" {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := v.BindPFlag(key, f); err != nil {
			lastErr = err
		}
	})
	return lastErr
}

func newLogger(level string) logging.Logger {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		logging.SetLevel(logging.DebugLevel)
	case "warn", "warning":
		logging.SetLevel(logging.WarnLevel)
	case "error":
		logging.SetLevel(logging.ErrorLevel)
	default:
		logging.SetLevel(logging.InfoLevel)
	}
	return logging.NewDefaultLogger().WithFields(logging.Fields{"app": "enhance-eval"})
}
