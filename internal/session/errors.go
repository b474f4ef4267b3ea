package session

import "errors"

// Error taxonomy of the session layer. Every failure surfaced across the
// bridge boundary wraps exactly one of these sentinels (or one of the
// audio package's decode errors), so host code can branch with errors.Is.
var (
	// ErrModelLoadFailed reports that the engine rejected the model file or
	// the path was unreadable.
	ErrModelLoadFailed = errors.New("session: model load failed")

	// ErrInvalidHandle reports an operation on a context that has already
	// been closed. This is a programming error in the caller; it fails fast
	// and is never recovered from.
	ErrInvalidHandle = errors.New("session: context handle is closed")

	// ErrUnsupportedLanguage reports a language tag outside the engine's
	// supported-language table. There is no silent fallback.
	ErrUnsupportedLanguage = errors.New("session: unsupported language")

	// ErrTranscriptionFailed reports a nonzero engine status from a
	// transcription run. The engine's code travels alongside as an
	// *engine.StatusError.
	ErrTranscriptionFailed = errors.New("session: transcription failed")

	// ErrStateInitFailed reports that the engine could not allocate
	// per-session state.
	ErrStateInitFailed = errors.New("session: engine state init failed")

	// ErrDetectionFailed reports a failure in either step of language
	// detection (spectral conversion or classification).
	ErrDetectionFailed = errors.New("session: language detection failed")

	// ErrUnknownLanguage reports a detected language id outside the
	// engine's known table.
	ErrUnknownLanguage = errors.New("session: unknown language id")

	// ErrSessionClosed reports a chunk submission to a stream session that
	// has already been closed.
	ErrSessionClosed = errors.New("session: stream session is closed")
)
