// Package enginetest provides a scripted in-memory engine implementation for
// tests. It records every call so tests can assert on resolved parameters,
// state reuse across chunks, and exact alloc/free pairing of native handles.
package enginetest

import (
	"errors"
	"sync"

	"github.com/MrWong99/whisperbridge/internal/engine"
)

// languages is the fake's supported-language table. Ids mirror the layout of
// a real engine table: dense, starting at zero.
var languages = []struct {
	code string
	name string
}{
	{"en", "English"},
	{"de", "German"},
	{"es", "Spanish"},
	{"fr", "French"},
	{"ja", "Japanese"},
}

// Fake implements engine.Loader. Configure the exported fields before
// handing it to the code under test; inspect Contexts afterwards.
type Fake struct {
	// LoadErr, when set, is returned by every Load call.
	LoadErr error

	mu       sync.Mutex
	contexts []*Context
}

var (
	_ engine.Loader  = (*Fake)(nil)
	_ engine.Context = (*Context)(nil)
	_ engine.State   = (*State)(nil)
)

// Load returns a fresh scripted context, or LoadErr when configured.
func (f *Fake) Load(path string, cfg engine.ContextConfig) (engine.Context, error) {
	if f.LoadErr != nil {
		return nil, f.LoadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &Context{Path: path, Config: cfg}
	f.contexts = append(f.contexts, c)
	return c, nil
}

// Contexts returns every context handed out so far.
func (f *Fake) Contexts() []*Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Context(nil), f.contexts...)
}

// ProcessCall records one Process invocation.
type ProcessCall struct {
	State      engine.State
	Params     engine.Params
	NumSamples int
}

// ProcessResult scripts the outcome of one Process invocation. Results are
// consumed in order; once the script is exhausted Process returns no
// segments.
type ProcessResult struct {
	Segments []engine.Segment
	Err      error
}

// Context is a scripted engine context.
type Context struct {
	Path   string
	Config engine.ContextConfig

	// NewStateErr, when set, makes NewState fail.
	NewStateErr error

	// Script is consumed front-to-back by Process calls.
	Script []ProcessResult

	// MelErr, when set, makes PCMToMel fail.
	MelErr error

	// DetectID, DetectConf, DetectErr script DetectLanguage.
	DetectID   int
	DetectConf float32
	DetectErr  error

	mu           sync.Mutex
	closed       bool
	statesOpened int
	statesFreed  int
	calls        []ProcessCall
}

// State is a fake engine state tied to its parent context.
type State struct {
	ctx   *Context
	freed bool
}

// Free releases the fake state. Freeing twice panics, mirroring the
// undefined behavior a real double-free would trigger.
func (s *State) Free() {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if s.freed {
		panic("enginetest: state freed twice")
	}
	s.freed = true
	s.ctx.statesFreed++
}

func (c *Context) NewState() (engine.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		panic("enginetest: NewState on closed context")
	}
	if c.NewStateErr != nil {
		return nil, c.NewStateErr
	}
	c.statesOpened++
	return &State{ctx: c}, nil
}

func (c *Context) Process(st engine.State, samples []float32, p engine.Params) ([]engine.Segment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		panic("enginetest: Process on closed context")
	}
	if fs, ok := st.(*State); ok && fs.freed {
		panic("enginetest: Process on freed state")
	}
	c.calls = append(c.calls, ProcessCall{State: st, Params: p, NumSamples: len(samples)})
	if len(c.Script) == 0 {
		return nil, nil
	}
	r := c.Script[0]
	c.Script = c.Script[1:]
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Segments, nil
}

func (c *Context) PCMToMel(st engine.State, samples []float32, threads int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fs, ok := st.(*State); ok && fs.freed {
		panic("enginetest: PCMToMel on freed state")
	}
	return c.MelErr
}

func (c *Context) DetectLanguage(st engine.State, threads int) (int, float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fs, ok := st.(*State); ok && fs.freed {
		panic("enginetest: DetectLanguage on freed state")
	}
	if c.DetectErr != nil {
		return 0, 0, c.DetectErr
	}
	return c.DetectID, c.DetectConf, nil
}

func (c *Context) LangID(code string) (int, bool) {
	for id, l := range languages {
		if l.code == code {
			return id, true
		}
	}
	return 0, false
}

func (c *Context) LangCode(id int) (string, bool) {
	if id < 0 || id >= len(languages) {
		return "", false
	}
	return languages[id].code, true
}

func (c *Context) LangName(id int) string {
	if id < 0 || id >= len(languages) {
		return ""
	}
	return languages[id].name
}

func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		panic("enginetest: context closed twice")
	}
	if c.statesFreed < c.statesOpened {
		panic("enginetest: context closed with live states")
	}
	c.closed = true
}

// Closed reports whether Close has been called.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// StatesOpened returns how many states NewState handed out.
func (c *Context) StatesOpened() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statesOpened
}

// StatesFreed returns how many states have been freed.
func (c *Context) StatesFreed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statesFreed
}

// Calls returns every recorded Process invocation.
func (c *Context) Calls() []ProcessCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ProcessCall(nil), c.calls...)
}

// ErrScripted is a convenience error for scripting failures in tests.
var ErrScripted = errors.New("enginetest: scripted failure")
