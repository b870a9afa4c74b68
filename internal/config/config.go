// Package config loads the evaluation settings from defaults, a config
// file, the environment and command-line flags.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/enhance-eval/analysis"
	"github.com/cwbudde/enhance-eval/internal/audioio"
	"github.com/cwbudde/enhance-eval/internal/corpus"
	"github.com/cwbudde/enhance-eval/internal/evaluate"
)

// EnvPrefix prefixes environment overrides, e.g. ENHANCE_EVAL_CLEAN_DIR.
const EnvPrefix = "ENHANCE_EVAL"

// Report formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Config is the effective evaluation configuration.
type Config struct {
	CleanDir         string   `mapstructure:"clean_dir" yaml:"clean_dir"`
	NoisyDir         string   `mapstructure:"noisy_dir" yaml:"noisy_dir"`
	EnhancedDirs     []string `mapstructure:"enhanced_dirs" yaml:"enhanced_dirs"`
	Extensions       []string `mapstructure:"extensions" yaml:"extensions"`
	TargetSampleRate int      `mapstructure:"target_sample_rate" yaml:"target_sample_rate"`
	MaxAlignSeconds  float64  `mapstructure:"max_align_seconds" yaml:"max_align_seconds"`
	Mode             string   `mapstructure:"mode" yaml:"mode"`
	Output           string   `mapstructure:"output" yaml:"output"`
	Format           string   `mapstructure:"format" yaml:"format"`
	SISNR            bool     `mapstructure:"si_snr" yaml:"si_snr"`
	Workers          string   `mapstructure:"workers" yaml:"workers"`
	LogLevel         string   `mapstructure:"log_level" yaml:"log_level"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("clean_dir", "audio/clean")
	v.SetDefault("noisy_dir", "audio/noisy")
	v.SetDefault("enhanced_dirs", []string{"audio/enhanced"})
	v.SetDefault("extensions", []string{".wav", ".mp3", ".ogg", ".flac"})
	v.SetDefault("target_sample_rate", 16000)
	v.SetDefault("max_align_seconds", 0.25)
	v.SetDefault("mode", string(corpus.ModeIntersect))
	v.SetDefault("output", "README.md")
	v.SetDefault("format", FormatMarkdown)
	v.SetDefault("si_snr", true)
	v.SetDefault("workers", "auto")
	v.SetDefault("log_level", "info")
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges a YAML or JSON config file into v. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.EnhancedDirs = splitList(c.EnhancedDirs)
	exts := splitList(c.Extensions)
	for i, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[i] = e
	}
	c.Extensions = exts
}

// splitList flattens comma-separated entries and drops blanks.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CleanDir) == "" {
		return fmt.Errorf("clean_dir must not be empty")
	}
	if strings.TrimSpace(c.NoisyDir) == "" {
		return fmt.Errorf("noisy_dir must not be empty")
	}
	if c.TargetSampleRate < 0 {
		return fmt.Errorf("target_sample_rate must be >= 0")
	}
	if c.MaxAlignSeconds < 0 {
		return fmt.Errorf("max_align_seconds must be >= 0")
	}
	if _, err := corpus.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	if c.Mode == string(corpus.ModeIntersect) && len(c.EnhancedDirs) == 0 {
		return fmt.Errorf("enhanced_dirs must not be empty in %s mode", corpus.ModeIntersect)
	}
	switch c.Format {
	case FormatMarkdown, FormatJSON:
	default:
		return fmt.Errorf("format must be %q or %q, got %q", FormatMarkdown, FormatJSON, c.Format)
	}
	if strings.TrimSpace(c.Output) == "" {
		return fmt.Errorf("output must not be empty")
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions must not be empty")
	}
	for _, e := range c.Extensions {
		if !audioio.IsSupportedExt(e) {
			return fmt.Errorf("extension %q is not supported", e)
		}
	}
	if _, err := evaluate.ParseWorkers(c.Workers); err != nil {
		return fmt.Errorf("workers: %w", err)
	}
	return nil
}

// Layout returns the directory layout to scan.
func (c *Config) Layout() corpus.Layout {
	return corpus.Layout{
		CleanDir:     c.CleanDir,
		NoisyDir:     c.NoisyDir,
		EnhancedDirs: c.EnhancedDirs,
		Extensions:   c.Extensions,
	}
}

// Window returns the lag search window.
func (c *Config) Window() analysis.Window {
	return analysis.Window{MaxShiftSeconds: c.MaxAlignSeconds}
}

// WorkerCount returns the pool size; 0 means automatic.
func (c *Config) WorkerCount() int {
	n, _ := evaluate.ParseWorkers(c.Workers)
	return n
}

// Dump writes c as YAML.
func Dump(w io.Writer, c *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
