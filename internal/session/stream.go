package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/whisperbridge/internal/engine"
	"github.com/MrWong99/whisperbridge/pkg/audio"
)

// Stream is one chunked streaming session. It owns a dedicated engine state
// that is advanced in place by each chunk, carrying recognition history
// across chunk boundaries (unless Options.NoContext was set), and a
// monotonically increasing chunk counter.
//
// Chunks must be submitted in strict temporal order; the stream never
// reorders or buffers. A Stream has a single owner: concurrent SubmitChunk
// calls are a caller bug — the internal mutex only protects the close flag,
// it does not make interleaved submissions meaningful.
type Stream struct {
	ctx    *Context
	params engine.Params

	mu     sync.Mutex
	st     engine.State
	chunks uint64
	closed bool
}

// StartStream resolves opts and allocates the engine state for a new
// streaming session. The caller must Close the stream when done; states are
// also torn down by Context.Close.
func (c *Context) StartStream(opts Options) (*Stream, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrInvalidHandle
	}

	p, err := c.resolveParams(opts)
	if err != nil {
		return nil, err
	}

	st, err := c.eng.NewState()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStateInitFailed, err)
	}

	s := &Stream{ctx: c, params: p, st: st}
	c.register(s)
	slog.Info("stream session started",
		"language", p.Language,
		"single_segment", p.SingleSegment,
		"no_context", p.NoContext,
		"audio_context", p.AudioContext,
	)
	return s, nil
}

// SubmitChunk advances the session state with the next audio chunk and
// returns that chunk's result. Equivalent to Transcribe but run against the
// session's own state, so decoding context carries over from earlier chunks.
func (s *Stream) SubmitChunk(ctx context.Context, samples []float32) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if len(samples) == 0 {
		return nil, audio.ErrEmptyAudio
	}

	c := s.ctx
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrInvalidHandle
	}

	segs, err := c.eng.Process(s.st, samples, s.params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}
	s.chunks++

	res := assembleResult(segs)
	slog.Debug("chunk processed", "chunk", s.chunks, "samples", len(samples), "segments", len(res.Segments))
	return res, nil
}

// Chunks returns how many chunks have been processed so far.
func (s *Stream) Chunks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks
}

// Close frees the session's engine state. The underlying free happens
// exactly once; repeat calls are no-ops — the session layer absorbs the
// would-be double-free because the engine does not. Chunk submissions after
// Close fail with [ErrSessionClosed].
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.st.Free()
	s.st = nil
	s.ctx.unregister(s)
	slog.Info("stream session closed", "chunks", s.chunks)
	return nil
}
