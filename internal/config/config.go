// Package config provides the configuration schema, loader, and file watcher
// for the whisperbridge server.
package config

import "log/slog"

// LogLevel controls log verbosity for the whisperbridge server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog maps l to the corresponding slog level. Unset or unknown levels map
// to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the root configuration structure for whisperbridge.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Model      ModelConfig      `yaml:"model"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Stream     StreamConfig     `yaml:"stream"`
}

// ServerConfig holds network and logging settings for the bridge server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ModelConfig describes the recognition model and the hardware features to
// request when loading it.
type ModelConfig struct {
	// Path is the filesystem path of the model weights (e.g.,
	// "models/ggml-base.bin").
	Path string `yaml:"path"`

	// UseAccelerator requests GPU-backed inference when the engine build
	// supports it. The engine silently falls back to CPU otherwise.
	UseAccelerator bool `yaml:"use_accelerator"`

	// UseFastAttention enables the engine's flash-attention kernels.
	// Only meaningful together with UseAccelerator.
	UseFastAttention bool `yaml:"use_fast_attention"`
}

// TranscribeConfig holds the server-wide defaults for single-shot
// transcription requests. Individual requests may override any of these.
type TranscribeConfig struct {
	// Language is an ISO 639-1 code, or "auto" (or empty) for detection.
	Language string `yaml:"language"`

	// Translate requests translation to English instead of transcription.
	Translate bool `yaml:"translate"`

	// MaxTokens caps tokens per segment. 0 means no limit.
	MaxTokens int `yaml:"max_tokens"`

	// SuppressBlank suppresses blank outputs at the start of sampling.
	SuppressBlank bool `yaml:"suppress_blank"`

	// SuppressNonSpeech suppresses non-speech tokens such as "(applause)".
	SuppressNonSpeech bool `yaml:"suppress_non_speech"`

	// Threads is the decoder thread count. 0 selects the engine default.
	Threads int `yaml:"threads"`
}

// StreamConfig holds the defaults applied to chunked streaming sessions on
// top of [TranscribeConfig].
type StreamConfig struct {
	// SamplesPerChunk is the expected chunk size announced to websocket
	// clients. Chunks of other sizes are still accepted.
	SamplesPerChunk int `yaml:"samples_per_chunk"`

	// AudioContext shrinks the encoder's audio context to speed up
	// short-chunk decoding. 0 keeps the engine default (full context).
	AudioContext int `yaml:"audio_context"`

	// SingleSegment forces one segment per chunk.
	SingleSegment bool `yaml:"single_segment"`

	// NoContext drops recognition history between chunks. Leave false to
	// carry context across chunk boundaries.
	NoContext bool `yaml:"no_context"`

	// VoiceActivity enables the engine's voice activity detection.
	VoiceActivity bool `yaml:"voice_activity"`
}
