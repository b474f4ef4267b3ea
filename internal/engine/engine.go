// Package engine defines the call surface of the speech-recognition
// inference engine consumed by the session layer.
//
// The engine itself (model loading, spectrogram computation, decoding search)
// is a black box. The session layer only ever talks to it through [Loader],
// [Context], and [State]; the production implementation in the whispercpp
// subpackage marshals these calls onto whisper.cpp, and the enginetest
// subpackage provides a scripted fake for tests.
package engine

import "fmt"

// ContextConfig carries the load-time hardware preferences for a model
// context.
type ContextConfig struct {
	// UseAccelerator enables GPU offload when the engine build supports it.
	UseAccelerator bool

	// UseFastAttention enables the flash-attention kernel path.
	UseFastAttention bool
}

// Params is the resolved invocation parameter set for one inference run.
// It is consumed once per run; the engine does not retain it.
type Params struct {
	// Language is the ISO 639-1 language tag, or "auto" to let the engine's
	// internal heuristic pick one.
	Language string

	// Translate requests translation to English instead of transcription.
	Translate bool

	// MaxTokens caps tokens per segment. 0 means unlimited.
	MaxTokens int

	// SuppressBlank suppresses blank outputs at the start of sampling.
	SuppressBlank bool

	// SuppressNonSpeech suppresses non-speech tokens (music, noise tags).
	SuppressNonSpeech bool

	// Threads is the number of compute threads for this run.
	Threads int

	// SingleSegment forces the whole run into one segment. Used by streaming
	// callers that want exactly one span per chunk.
	SingleSegment bool

	// NoContext resets the decoder context between runs. Streaming sessions
	// leave this false so recognition history carries across chunks.
	NoContext bool

	// AudioContext overrides the encoder window size. 0 keeps the engine
	// default (full 30 s window).
	AudioContext int

	// VoiceActivity enables the engine's built-in voice-activity gating.
	VoiceActivity bool

	// TokenTimestamps enables per-token timestamp computation.
	TokenTimestamps bool
}

// Segment is one engine-reported text span. T0 and T1 are start and end
// timestamps in engine-native centiseconds.
type Segment struct {
	Text string
	T0   int64
	T1   int64
}

// StatusError is a nonzero status code returned by an engine call. The code
// is surfaced verbatim; it is never interpreted or retried by the session
// layer.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine: %s returned status %d", e.Op, e.Code)
}

// Loader opens model contexts. Implementations must be safe for concurrent
// use.
type Loader interface {
	// Load reads model weights from path and returns a live [Context].
	// Ownership of the context transfers to the caller, which must call
	// Close exactly once.
	Load(path string, cfg ContextConfig) (Context, error)
}

// Context is one loaded model: immutable weights plus load-time
// configuration. The model data is read-only and may be shared by multiple
// states, but Close must not be called while any derived [State] is alive.
type Context interface {
	// NewState allocates per-session mutable working memory derived from
	// this context. The caller owns the state and must call Free exactly
	// once.
	NewState() (State, error)

	// Process runs one full inference pass and returns the reported segments
	// in index order. A nil state runs against the context's own transient
	// state (single-shot path); a non-nil state advances that state in place
	// (streaming path).
	Process(st State, samples []float32, p Params) ([]Segment, error)

	// PCMToMel converts samples into the spectral representation held by st.
	// Required before DetectLanguage.
	PCMToMel(st State, samples []float32, threads int) error

	// DetectLanguage classifies the spectral content held by st and returns
	// the winning language id together with its probability in [0, 1].
	DetectLanguage(st State, threads int) (id int, confidence float32, err error)

	// LangID resolves an ISO 639-1 tag to the engine's language id.
	// ok is false for tags outside the supported-language table.
	LangID(code string) (id int, ok bool)

	// LangCode resolves a language id back to its ISO 639-1 tag.
	// ok is false for ids outside the known table.
	LangCode(id int) (code string, ok bool)

	// LangName returns the human-readable language name for id, or "" when
	// the engine has no full name for it.
	LangName(id int) string

	// Close releases the loaded model. Must be called exactly once, after
	// every derived state has been freed. The session layer guards this.
	Close()
}

// State is opaque per-session working memory. It is used by at most one
// logical stream at a time and must not outlive its parent [Context].
type State interface {
	// Free releases the state. Must be called exactly once; the session
	// layer guards this with its own consumed flags.
	Free()
}
