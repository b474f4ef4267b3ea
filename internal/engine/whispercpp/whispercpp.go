//go:build whispercpp

// Package whispercpp adapts the whisper.cpp C API to the engine call
// surface. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
package whispercpp

/*
#cgo LDFLAGS: -lwhisper -lstdc++ -lm
#include <stdlib.h>
#include <whisper.h>
*/
import "C"

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/MrWong99/whisperbridge/internal/engine"
)

// Available reports that the native whisper.cpp backend is compiled in.
func Available() bool { return true }

// Loader implements engine.Loader backed by whisper.cpp.
type Loader struct{}

var (
	_ engine.Loader  = Loader{}
	_ engine.Context = (*context)(nil)
	_ engine.State   = (*state)(nil)
)

// Load reads a ggml model file from path with the given hardware
// preferences. The returned context owns the native whisper_context; the
// caller must Close it exactly once.
func (Loader) Load(path string, cfg engine.ContextConfig) (engine.Context, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	params := C.whisper_context_default_params()
	params.use_gpu = C.bool(cfg.UseAccelerator)
	params.flash_attn = C.bool(cfg.UseFastAttention)

	ctx := C.whisper_init_from_file_with_params(cPath, params)
	if ctx == nil {
		return nil, fmt.Errorf("whispercpp: failed to initialize context from %q", path)
	}

	slog.Info("whisper context initialized", "model", path,
		"use_gpu", cfg.UseAccelerator, "flash_attn", cfg.UseFastAttention)
	return &context{ctx: ctx}, nil
}

// context wraps a native whisper_context. The raw pointer never leaves this
// package; lifetime discipline is enforced by the session layer above.
type context struct {
	ctx *C.struct_whisper_context
}

// state wraps a native whisper_state.
type state struct {
	st *C.struct_whisper_state
}

func (s *state) Free() {
	C.whisper_free_state(s.st)
	s.st = nil
}

func (c *context) NewState() (engine.State, error) {
	st := C.whisper_init_state(c.ctx)
	if st == nil {
		return nil, fmt.Errorf("whispercpp: failed to initialize state")
	}
	return &state{st: st}, nil
}

func (c *context) Process(st engine.State, samples []float32, p engine.Params) ([]engine.Segment, error) {
	params := C.whisper_full_default_params(C.WHISPER_SAMPLING_GREEDY)
	params.print_realtime = C.bool(false)
	params.print_progress = C.bool(false)
	params.print_timestamps = C.bool(false)
	params.print_special = C.bool(false)
	params.translate = C.bool(p.Translate)
	params.suppress_blank = C.bool(p.SuppressBlank)
	params.suppress_nst = C.bool(p.SuppressNonSpeech)
	params.single_segment = C.bool(p.SingleSegment)
	params.no_context = C.bool(p.NoContext)
	params.token_timestamps = C.bool(p.TokenTimestamps)
	params.vad = C.bool(p.VoiceActivity)
	if p.Threads > 0 {
		params.n_threads = C.int(p.Threads)
	}
	if p.MaxTokens > 0 {
		params.max_tokens = C.int(p.MaxTokens)
	}
	if p.AudioContext > 0 {
		params.audio_ctx = C.int(p.AudioContext)
	}

	// The language string must stay alive for the duration of the run.
	cLang := C.CString(p.Language)
	defer C.free(unsafe.Pointer(cLang))
	params.language = cLang

	data := (*C.float)(unsafe.Pointer(&samples[0]))
	n := C.int(len(samples))

	var ret C.int
	var ws *state
	if st != nil {
		ws = st.(*state)
		ret = C.whisper_full_with_state(c.ctx, ws.st, params, data, n)
	} else {
		ret = C.whisper_full(c.ctx, params, data, n)
	}
	if ret != 0 {
		return nil, &engine.StatusError{Op: "whisper_full", Code: int(ret)}
	}

	if ws != nil {
		return c.segmentsFromState(ws), nil
	}
	return c.segments(), nil
}

func (c *context) segments() []engine.Segment {
	n := int(C.whisper_full_n_segments(c.ctx))
	segs := make([]engine.Segment, n)
	for i := range n {
		segs[i] = engine.Segment{
			Text: C.GoString(C.whisper_full_get_segment_text(c.ctx, C.int(i))),
			T0:   int64(C.whisper_full_get_segment_t0(c.ctx, C.int(i))),
			T1:   int64(C.whisper_full_get_segment_t1(c.ctx, C.int(i))),
		}
	}
	return segs
}

func (c *context) segmentsFromState(ws *state) []engine.Segment {
	n := int(C.whisper_full_n_segments_from_state(ws.st))
	segs := make([]engine.Segment, n)
	for i := range n {
		segs[i] = engine.Segment{
			Text: C.GoString(C.whisper_full_get_segment_text_from_state(ws.st, C.int(i))),
			T0:   int64(C.whisper_full_get_segment_t0_from_state(ws.st, C.int(i))),
			T1:   int64(C.whisper_full_get_segment_t1_from_state(ws.st, C.int(i))),
		}
	}
	return segs
}

func (c *context) PCMToMel(st engine.State, samples []float32, threads int) error {
	ws := st.(*state)
	ret := C.whisper_pcm_to_mel_with_state(c.ctx, ws.st,
		(*C.float)(unsafe.Pointer(&samples[0])), C.int(len(samples)), C.int(threads))
	if ret != 0 {
		return &engine.StatusError{Op: "whisper_pcm_to_mel_with_state", Code: int(ret)}
	}
	return nil
}

func (c *context) DetectLanguage(st engine.State, threads int) (int, float32, error) {
	ws := st.(*state)
	probs := make([]C.float, int(C.whisper_lang_max_id())+1)
	id := C.whisper_lang_auto_detect_with_state(c.ctx, ws.st, 0, C.int(threads), &probs[0])
	if id < 0 {
		return 0, 0, &engine.StatusError{Op: "whisper_lang_auto_detect_with_state", Code: int(id)}
	}
	return int(id), float32(probs[id]), nil
}

func (c *context) LangID(code string) (int, bool) {
	cCode := C.CString(code)
	defer C.free(unsafe.Pointer(cCode))
	id := C.whisper_lang_id(cCode)
	if id < 0 {
		return 0, false
	}
	return int(id), true
}

func (c *context) LangCode(id int) (string, bool) {
	if id < 0 || id > int(C.whisper_lang_max_id()) {
		return "", false
	}
	str := C.whisper_lang_str(C.int(id))
	if str == nil {
		return "", false
	}
	return C.GoString(str), true
}

func (c *context) LangName(id int) string {
	if id < 0 || id > int(C.whisper_lang_max_id()) {
		return ""
	}
	return C.GoString(C.whisper_lang_str_full(C.int(id)))
}

func (c *context) Close() {
	C.whisper_free(c.ctx)
	c.ctx = nil
	slog.Info("whisper context freed")
}
