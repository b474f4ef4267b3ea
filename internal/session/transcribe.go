package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/whisperbridge/pkg/audio"
)

// Transcribe runs one synchronous inference pass over samples and returns
// the assembled result. The engine allocates its own transient state for the
// run; no session state is created.
//
// Validation failures (empty audio, unsupported language, closed handle) are
// reported before the engine is invoked. A nonzero engine status surfaces as
// [ErrTranscriptionFailed] with the engine's code attached; no partial
// result is returned. ctx is only consulted before the run — an in-flight
// engine invocation cannot be cancelled.
func (c *Context) Transcribe(ctx context.Context, samples []float32, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, audio.ErrEmptyAudio
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrInvalidHandle
	}

	p, err := c.resolveParams(opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	segs, err := c.eng.Process(nil, samples, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}

	res := assembleResult(segs)
	slog.Debug("transcription complete",
		"samples", len(samples),
		"segments", len(res.Segments),
		"language", p.Language,
		"elapsed", time.Since(start),
	)
	return res, nil
}
