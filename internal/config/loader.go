package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Model.Path == "" {
		errs = append(errs, errors.New("model.path is required"))
	}
	if cfg.Model.UseFastAttention && !cfg.Model.UseAccelerator {
		slog.Warn("model.use_fast_attention has no effect without model.use_accelerator")
	}

	if lang := cfg.Transcribe.Language; lang != "" && lang != "auto" {
		// Full language validation happens against the loaded model; here we
		// only catch obviously malformed codes.
		if len(lang) != 2 || strings.ToLower(lang) != lang {
			errs = append(errs, fmt.Errorf("transcribe.language %q is not a two-letter ISO 639-1 code or \"auto\"", lang))
		}
	}
	if cfg.Transcribe.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("transcribe.max_tokens %d must not be negative", cfg.Transcribe.MaxTokens))
	}
	if cfg.Transcribe.Threads < 0 {
		errs = append(errs, fmt.Errorf("transcribe.threads %d must not be negative", cfg.Transcribe.Threads))
	}

	if cfg.Stream.SamplesPerChunk < 0 {
		errs = append(errs, fmt.Errorf("stream.samples_per_chunk %d must not be negative", cfg.Stream.SamplesPerChunk))
	}
	if cfg.Stream.AudioContext < 0 {
		errs = append(errs, fmt.Errorf("stream.audio_context %d must not be negative", cfg.Stream.AudioContext))
	}
	if cfg.Stream.AudioContext > 1500 {
		errs = append(errs, fmt.Errorf("stream.audio_context %d exceeds the encoder maximum of 1500", cfg.Stream.AudioContext))
	}

	return errors.Join(errs...)
}
