// Package session owns the lifecycle of inference-engine handles and drives
// transcription against them: single-shot runs, chunked streaming sessions
// with state continuity, and language detection.
//
// The central invariants are resource ones. A [Context] wraps one loaded
// model and is freed exactly once; every [Stream] and every detection run
// owns one engine state that is freed exactly once, on success and failure
// paths alike, and never after its parent context. Operating on a closed
// handle fails fast with [ErrInvalidHandle] — it is a programming error, not
// a recoverable condition.
//
// All engine invocations are synchronous and blocking; there is no
// preemption point inside an in-flight run, so callers on latency-sensitive
// goroutines must invoke from a background one.
package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/whisperbridge/internal/engine"
)

// Context owns one loaded engine context: model weights plus load-time
// configuration. The model is read-only, so independent streams and
// detection runs may use one Context concurrently — each against its own
// engine state. All methods are safe for concurrent use.
type Context struct {
	// mu guards the closed flag. Engine invocations hold the read side for
	// their whole duration so Close cannot free the model mid-call.
	mu     sync.RWMutex
	eng    engine.Context
	closed bool

	// streamMu guards the open-stream registry, which Close drains so no
	// state outlives the context.
	streamMu sync.Mutex
	streams  map[*Stream]struct{}

	modelPath string
}

// Open loads model weights from modelPath with the given hardware
// preferences and returns an owning handle. The caller is exclusively
// responsible for calling Close exactly once.
func Open(ld engine.Loader, modelPath string, cfg engine.ContextConfig) (*Context, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("%w: model path is empty", ErrModelLoadFailed)
	}
	eng, err := ld.Load(modelPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoadFailed, err)
	}
	slog.Info("session context opened", "model", modelPath,
		"use_accelerator", cfg.UseAccelerator, "use_fast_attention", cfg.UseFastAttention)
	return &Context{
		eng:       eng,
		streams:   make(map[*Stream]struct{}),
		modelPath: modelPath,
	}, nil
}

// ModelPath returns the path the model was loaded from.
func (c *Context) ModelPath() string { return c.modelPath }

// Ready reports whether the context is open. Used by readiness probes.
func (c *Context) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// Close tears down any still-open streams, then frees the engine context.
// The underlying free happens exactly once; calling Close again is a no-op.
// Every other operation on a closed Context fails with [ErrInvalidHandle].
func (c *Context) Close() error {
	// Drain the stream registry first so every derived state is freed
	// before the context is. Stream.Close unregisters itself, which is a
	// no-op once the registry entry is gone.
	c.streamMu.Lock()
	open := make([]*Stream, 0, len(c.streams))
	for s := range c.streams {
		open = append(open, s)
	}
	clear(c.streams)
	c.streamMu.Unlock()

	for _, s := range open {
		_ = s.Close()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.eng.Close()
	slog.Info("session context closed", "model", c.modelPath, "streams_drained", len(open))
	return nil
}

// register adds a live stream to the teardown registry.
func (c *Context) register(s *Stream) {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	c.streams[s] = struct{}{}
}

// unregister removes a stream from the teardown registry.
func (c *Context) unregister(s *Stream) {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	delete(c.streams, s)
}
