package bridge

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/whisperbridge/internal/config"
	"github.com/MrWong99/whisperbridge/internal/engine"
	"github.com/MrWong99/whisperbridge/internal/engine/enginetest"
	"github.com/MrWong99/whisperbridge/internal/observe"
	"github.com/MrWong99/whisperbridge/internal/session"
)

// newTestServer builds a bridge server over a fake engine and returns it
// together with the scripted engine context.
func newTestServer(t *testing.T) (*Server, *enginetest.Context) {
	t.Helper()
	return newTestServerWith(t,
		config.TranscribeConfig{Threads: 4},
		config.StreamConfig{SamplesPerChunk: 3200},
	)
}

// newTestServerWith is newTestServer with explicit request defaults, for
// tests that exercise overriding them.
func newTestServerWith(t *testing.T, tc config.TranscribeConfig, sc config.StreamConfig) (*Server, *enginetest.Context) {
	t.Helper()

	fake := &enginetest.Fake{}
	sess, err := session.Open(fake, "models/ggml-base.bin", engine.ContextConfig{})
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	srv := NewServer(sess, m, tc, sc)
	return srv, fake.Contexts()[0]
}

// pcm16Body renders n int16 samples as a little-endian request body.
func pcm16Body(n int) []byte {
	buf := make([]byte, 2*n)
	for i := range n {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(int16(1000)))
	}
	return buf
}

func TestTranscribe_JSONResponse(t *testing.T) {
	srv, ec := newTestServer(t)
	ec.Script = []enginetest.ProcessResult{{Segments: []engine.Segment{
		{Text: " Hello world.", T0: 0, T1: 150},
	}}}

	req := httptest.NewRequest("POST", "/v1/transcribe", bytes.NewReader(pcm16Body(1600)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var res session.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Text != " Hello world." {
		t.Errorf("text = %q", res.Text)
	}
	if len(res.Segments) != 1 || res.Segments[0].T1 != 150 {
		t.Errorf("segments = %+v", res.Segments)
	}
}

func TestTranscribe_TextFormat(t *testing.T) {
	srv, ec := newTestServer(t)
	ec.Script = []enginetest.ProcessResult{{Segments: []engine.Segment{
		{Text: " First line.", T0: 0, T1: 100},
		{Text: " Second line.", T0: 100, T1: 200},
	}}}

	req := httptest.NewRequest("POST", "/v1/transcribe?format=text", bytes.NewReader(pcm16Body(1600)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	want := " First line.\n Second line.\n"
	if rec.Body.String() != want {
		t.Errorf("body = %q; want %q", rec.Body.String(), want)
	}
}

func TestTranscribe_QueryOverridesReachEngine(t *testing.T) {
	srv, ec := newTestServer(t)

	req := httptest.NewRequest("POST", "/v1/transcribe?language=de&translate=true&max_tokens=32&threads=2",
		bytes.NewReader(pcm16Body(1600)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	calls := ec.Calls()
	if len(calls) != 1 {
		t.Fatalf("engine calls = %d", len(calls))
	}
	p := calls[0].Params
	if p.Language != "de" || !p.Translate || p.MaxTokens != 32 || p.Threads != 2 {
		t.Errorf("engine params = %+v", p)
	}
}

func TestTranscribe_EmptyBody(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/v1/transcribe", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "empty_audio" {
		t.Errorf("code = %q", body.Error.Code)
	}
}

func TestTranscribe_OddPCMBody(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/v1/transcribe", bytes.NewReader([]byte{1, 2, 3}))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body errorBody
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.Error.Code != "invalid_audio_format" {
		t.Errorf("code = %q", body.Error.Code)
	}
}

func TestTranscribe_WAVBody(t *testing.T) {
	srv, ec := newTestServer(t)

	pcm := pcm16Body(1600)
	wav := append(make([]byte, 44), pcm...)
	req := httptest.NewRequest("POST", "/v1/transcribe", bytes.NewReader(wav))
	req.Header.Set("Content-Type", "audio/wav")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if got := ec.Calls()[0].NumSamples; got != 1600 {
		t.Errorf("engine got %d samples; want 1600 (header not stripped?)", got)
	}
}

func TestTranscribe_UnsupportedLanguage(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/v1/transcribe?language=xx", bytes.NewReader(pcm16Body(16)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	var body errorBody
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.Error.Code != "unsupported_language" {
		t.Errorf("code = %q", body.Error.Code)
	}
}

func TestTranscribe_BadQueryParameter(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/v1/transcribe?translate=yep", bytes.NewReader(pcm16Body(16)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body errorBody
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.Error.Code != "invalid_parameter" {
		t.Errorf("code = %q", body.Error.Code)
	}
}

func TestTranscribe_EngineFailure(t *testing.T) {
	srv, ec := newTestServer(t)
	ec.Script = []enginetest.ProcessResult{{Err: &engine.StatusError{Op: "whisper_full", Code: -1}}}

	req := httptest.NewRequest("POST", "/v1/transcribe", bytes.NewReader(pcm16Body(16)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body errorBody
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.Error.Code != "transcription_failed" {
		t.Errorf("code = %q", body.Error.Code)
	}
}

func TestDetectLanguage_Endpoint(t *testing.T) {
	srv, ec := newTestServer(t)
	ec.DetectID = 1
	ec.DetectConf = 0.93

	req := httptest.NewRequest("POST", "/v1/detect-language", bytes.NewReader(pcm16Body(16000)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var det session.LanguageDetection
	if err := json.NewDecoder(rec.Body).Decode(&det); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if det.Language != "de" || det.LanguageName != "German" {
		t.Errorf("detection = %+v", det)
	}
	if det.Confidence != 0.93 {
		t.Errorf("confidence = %v", det.Confidence)
	}
}

func TestDetectLanguage_EmptyBody(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/v1/detect-language", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestReadyz_FailsAfterClose(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	if err := srv.sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d; want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
