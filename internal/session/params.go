package session

import (
	"fmt"

	"github.com/MrWong99/whisperbridge/internal/engine"
)

// DefaultThreads is the compute thread count used when the caller does not
// set one.
const DefaultThreads = 4

// LanguageAuto is the sentinel tag meaning "let the engine detect the
// language". An empty tag resolves to it.
const LanguageAuto = "auto"

// Options is the caller-facing configuration surface for transcription and
// streaming. The zero value is valid: auto language detection, no
// translation, unlimited tokens, default threads, context carry enabled.
type Options struct {
	// Language is an ISO 639-1 tag, or "auto"/"" for detection.
	Language string

	// Translate requests translation to English.
	Translate bool

	// MaxTokens caps tokens per segment. Values <= 0 mean unlimited.
	MaxTokens int

	// SuppressBlank suppresses blank outputs at sampling start.
	SuppressBlank bool

	// SuppressNonSpeech suppresses non-speech tokens.
	SuppressNonSpeech bool

	// Threads is the compute thread count. Values <= 0 resolve to
	// DefaultThreads.
	Threads int

	// SingleSegment forces one segment per run; streaming callers use it
	// for per-chunk UI updates.
	SingleSegment bool

	// NoContext disables carrying recognition history across chunk
	// boundaries. Leave false for coherent streaming transcripts.
	NoContext bool

	// AudioContext reduces the encoder window (e.g. 512 ≈ 10 s of audio
	// instead of 30 s). Values <= 0 keep the engine default.
	AudioContext int

	// VoiceActivity enables the engine's voice-activity gating.
	VoiceActivity bool
}

// resolveParams maps caller Options onto the engine's invocation parameter
// structure, applying defaults and clamping numeric fields. The language tag
// is validated against the engine's supported table; "auto" defers detection
// to the engine. Must be called with the context validity lock held.
func (c *Context) resolveParams(o Options) (engine.Params, error) {
	lang := o.Language
	if lang == "" {
		lang = LanguageAuto
	}
	if lang != LanguageAuto {
		if _, ok := c.eng.LangID(lang); !ok {
			return engine.Params{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
		}
	}

	threads := o.Threads
	if threads <= 0 {
		threads = DefaultThreads
	}
	maxTokens := o.MaxTokens
	if maxTokens < 0 {
		maxTokens = 0
	}
	audioCtx := o.AudioContext
	if audioCtx < 0 {
		audioCtx = 0
	}

	return engine.Params{
		Language:          lang,
		Translate:         o.Translate,
		MaxTokens:         maxTokens,
		SuppressBlank:     o.SuppressBlank,
		SuppressNonSpeech: o.SuppressNonSpeech,
		Threads:           threads,
		SingleSegment:     o.SingleSegment,
		NoContext:         o.NoContext,
		AudioContext:      audioCtx,
		VoiceActivity:     o.VoiceActivity,
		TokenTimestamps:   true,
	}, nil
}
