// Package bridge exposes the transcription session layer over HTTP: one-shot
// transcription and language detection as POST endpoints, chunked streaming
// over a websocket, plus health and metrics endpoints.
package bridge

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/whisperbridge/internal/config"
	"github.com/MrWong99/whisperbridge/internal/health"
	"github.com/MrWong99/whisperbridge/internal/observe"
	"github.com/MrWong99/whisperbridge/internal/session"
	"github.com/MrWong99/whisperbridge/pkg/audio"
)

// maxBodyBytes caps request bodies at 512 MiB, roughly 4.5 hours of 16 kHz
// mono PCM16.
const maxBodyBytes = 512 << 20

// Server wires the session layer to HTTP handlers.
type Server struct {
	sess       *session.Context
	metrics    *observe.Metrics
	transcribe config.TranscribeConfig
	stream     config.StreamConfig
}

// NewServer creates a bridge server. The transcribe and stream configs
// supply per-request defaults; requests may override them.
func NewServer(sess *session.Context, m *observe.Metrics, tc config.TranscribeConfig, sc config.StreamConfig) *Server {
	return &Server{sess: sess, metrics: m, transcribe: tc, stream: sc}
}

// Handler returns the full route table wrapped in the observability
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/transcribe", s.handleTranscribe)
	mux.HandleFunc("POST /v1/detect-language", s.handleDetect)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	mux.Handle("GET /metrics", promhttp.Handler())

	h := health.New(health.Ready("model", s.sess.Ready))
	h.Register(mux)

	return observe.Middleware(s.metrics)(mux)
}

// handleTranscribe runs a one-shot transcription of the request body. The
// body is WAV (audio/wav) or raw little-endian PCM16 (any other content
// type). Defaults come from the server config; query parameters override
// them per request. format=text returns the plain transcript instead of
// JSON.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	samples, err := s.readAudio(r)
	if err != nil {
		writeError(w, err)
		return
	}

	opts, err := s.optionsFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	res, err := s.sess.Transcribe(r.Context(), samples, opts)
	s.metrics.TranscribeDuration.Record(r.Context(), time.Since(start).Seconds())
	s.metrics.RecordAudio(r.Context(), "transcribe", float64(len(samples))/audio.SampleRate)
	if err != nil {
		s.metrics.RecordEngineError(r.Context(), "transcribe")
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		renderText(w, res)
		return
	}
	renderJSON(w, http.StatusOK, res)
}

// handleDetect classifies the spoken language of the request body.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	samples, err := s.readAudio(r)
	if err != nil {
		writeError(w, err)
		return
	}

	threads := s.transcribe.Threads
	if v := r.URL.Query().Get("threads"); v != "" {
		if threads, err = strconv.Atoi(v); err != nil {
			writeError(w, badParam("threads", v))
			return
		}
	}

	start := time.Now()
	det, err := s.sess.DetectLanguage(r.Context(), samples, threads)
	s.metrics.DetectDuration.Record(r.Context(), time.Since(start).Seconds())
	s.metrics.RecordAudio(r.Context(), "detect", float64(len(samples))/audio.SampleRate)
	if err != nil {
		s.metrics.RecordEngineError(r.Context(), "detect")
		writeError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, det)
}

// readAudio decodes the request body into normalized samples. WAV bodies
// are announced via Content-Type audio/wav; everything else is treated as
// raw little-endian PCM16 at 16 kHz mono.
func (s *Server) readAudio(r *http.Request) ([]float32, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if r.Header.Get("Content-Type") == "audio/wav" {
		return audio.DecodeWAV(body)
	}
	return audio.DecodePCM16(body)
}

// optionsFromQuery builds session options from the configured defaults with
// query-parameter overrides applied.
func (s *Server) optionsFromQuery(r *http.Request) (session.Options, error) {
	opts := session.Options{
		Language:          s.transcribe.Language,
		Translate:         s.transcribe.Translate,
		MaxTokens:         s.transcribe.MaxTokens,
		SuppressBlank:     s.transcribe.SuppressBlank,
		SuppressNonSpeech: s.transcribe.SuppressNonSpeech,
		Threads:           s.transcribe.Threads,
	}

	q := r.URL.Query()
	if v := q.Get("language"); v != "" {
		opts.Language = v
	}
	for name, dst := range map[string]*bool{
		"translate":           &opts.Translate,
		"suppress_blank":      &opts.SuppressBlank,
		"suppress_non_speech": &opts.SuppressNonSpeech,
	} {
		if v := q.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return session.Options{}, badParam(name, v)
			}
			*dst = b
		}
	}
	for name, dst := range map[string]*int{
		"max_tokens": &opts.MaxTokens,
		"threads":    &opts.Threads,
	} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return session.Options{}, badParam(name, v)
			}
			*dst = n
		}
	}
	return opts, nil
}

// errBadParam marks malformed query parameters so writeError can map them
// to a 400.
var errBadParam = errors.New("bridge: invalid query parameter")

func badParam(name, value string) error {
	return &paramError{name: name, value: value}
}

type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return "bridge: invalid query parameter " + e.name + "=" + strconv.Quote(e.value)
}

func (e *paramError) Is(target error) bool { return target == errBadParam }

// errorBody is the JSON error envelope returned by all endpoints.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorCode maps a session or audio error to an HTTP status and a stable
// machine-readable code.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, audio.ErrInvalidFormat):
		return http.StatusBadRequest, "invalid_audio_format"
	case errors.Is(err, audio.ErrEmptyAudio):
		return http.StatusBadRequest, "empty_audio"
	case errors.Is(err, errBadParam):
		return http.StatusBadRequest, "invalid_parameter"
	case errors.Is(err, session.ErrUnsupportedLanguage):
		return http.StatusUnprocessableEntity, "unsupported_language"
	case errors.Is(err, session.ErrInvalidHandle), errors.Is(err, session.ErrSessionClosed):
		return http.StatusServiceUnavailable, "session_closed"
	case errors.Is(err, session.ErrUnknownLanguage):
		return http.StatusInternalServerError, "unknown_language"
	case errors.Is(err, session.ErrDetectionFailed):
		return http.StatusInternalServerError, "detection_failed"
	case errors.Is(err, session.ErrStateInitFailed):
		return http.StatusInternalServerError, "state_init_failed"
	case errors.Is(err, session.ErrTranscriptionFailed):
		return http.StatusInternalServerError, "transcription_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeError renders err as the JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	status, code := errorCode(err)
	renderJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: err.Error()}})
}

// renderJSON writes v as a JSON response with the given status.
func renderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// renderText writes the bare transcript with one line per segment.
func renderText(w http.ResponseWriter, res *session.Result) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	for _, seg := range res.Segments {
		_, _ = io.WriteString(w, seg.Text+"\n")
	}
}
