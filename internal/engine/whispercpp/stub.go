//go:build !whispercpp

// Package whispercpp adapts the whisper.cpp C API to the engine call
// surface. Without the whispercpp build tag only this stub is compiled, so
// the rest of the module builds and tests without a native toolchain.
package whispercpp

import (
	"errors"

	"github.com/MrWong99/whisperbridge/internal/engine"
)

// ErrUnavailable indicates the binary was built without the whispercpp tag.
var ErrUnavailable = errors.New("whispercpp: native backend not compiled in (build with -tags whispercpp)")

// Available reports whether the native whisper.cpp backend is compiled in.
func Available() bool { return false }

// Loader implements engine.Loader. In this build flavor Load always fails
// with [ErrUnavailable].
type Loader struct{}

var _ engine.Loader = Loader{}

func (Loader) Load(path string, cfg engine.ContextConfig) (engine.Context, error) {
	return nil, ErrUnavailable
}
