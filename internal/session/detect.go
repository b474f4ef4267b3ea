package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrWong99/whisperbridge/pkg/audio"
)

// LanguageDetection is the outcome of language detection: an ISO 639-1
// code, the engine's human-readable name for it, and the probability the
// engine assigned to the winning language.
type LanguageDetection struct {
	Language     string  `json:"language"`
	LanguageName string  `json:"languageName"`
	Confidence   float32 `json:"confidence"`
}

// DetectLanguage classifies the spoken language of samples. It allocates a
// dedicated engine state (never shared with an active stream), converts the
// audio to the engine's spectral representation through that state, then
// classifies. The state is released before returning on every path.
func (c *Context) DetectLanguage(ctx context.Context, samples []float32, threads int) (*LanguageDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, audio.ErrEmptyAudio
	}
	if threads <= 0 {
		threads = DefaultThreads
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrInvalidHandle
	}

	st, err := c.eng.NewState()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStateInitFailed, err)
	}
	defer st.Free()

	if err := c.eng.PCMToMel(st, samples, threads); err != nil {
		return nil, fmt.Errorf("%w: spectral conversion: %w", ErrDetectionFailed, err)
	}

	id, confidence, err := c.eng.DetectLanguage(st, threads)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectionFailed, err)
	}

	code, ok := c.eng.LangCode(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownLanguage, id)
	}
	name := c.eng.LangName(id)
	if name == "" {
		name = code
	}

	slog.Debug("language detected", "language", code, "confidence", confidence, "samples", len(samples))
	return &LanguageDetection{Language: code, LanguageName: name, Confidence: confidence}, nil
}
