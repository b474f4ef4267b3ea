package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/whisperbridge/internal/observe"
	"github.com/MrWong99/whisperbridge/internal/session"
	"github.com/MrWong99/whisperbridge/pkg/audio"
)

// The streaming protocol over GET /v1/stream:
//
//  1. The client opens the websocket and sends a text frame with a
//     [startMessage]. An empty message accepts the server defaults.
//  2. The server answers with a "ready" [serverMessage] announcing the
//     effective chunk size: the client's requested samples_per_chunk when
//     positive, the server default otherwise.
//  3. The client sends audio as binary frames of little-endian float32
//     samples at 16 kHz mono. Each frame is decoded against the session's
//     running state and answered with a "result" [serverMessage].
//  4. The client sends {"action":"close"} or closes the socket; the server
//     replies with a final "closed" message and tears the session down.
//
// Per-chunk decode failures are reported as "error" messages and the
// session stays open. Malformed frames close the socket.

// startMessage configures a streaming session. All fields are optional;
// unset fields fall back to the server's stream defaults. Pointer fields
// distinguish "not sent" from an explicit override, so a client can also
// switch a config default off.
type startMessage struct {
	Action string `json:"action"`

	Language        string `json:"language,omitempty"`
	Translate       *bool  `json:"translate,omitempty"`
	MaxTokens       *int   `json:"max_tokens,omitempty"`
	Threads         int    `json:"threads,omitempty"`
	SamplesPerChunk *int   `json:"samples_per_chunk,omitempty"`
	SingleSegment   *bool  `json:"single_segment,omitempty"`
	NoContext       *bool  `json:"no_context,omitempty"`
	AudioContext    *int   `json:"audio_context,omitempty"`
	VoiceActivity   *bool  `json:"voice_activity,omitempty"`
}

// serverMessage is the envelope for every frame the server sends.
type serverMessage struct {
	Type string `json:"type"` // "ready", "result", "error", "closed"

	// ready
	SamplesPerChunk int `json:"samplesPerChunk,omitempty"`

	// result
	Chunk  uint64          `json:"chunk,omitempty"`
	Result *session.Result `json:"result,omitempty"`

	// error
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	// closed
	Chunks uint64 `json:"chunks,omitempty"`
}

// handshakeTimeout bounds how long the server waits for the start message.
const handshakeTimeout = 30 * time.Second

// handleStream upgrades to a websocket and runs one streaming session for
// the lifetime of the connection.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	log := observe.Logger(ctx)

	opts, samplesPerChunk, err := s.readStart(ctx, conn)
	if err != nil {
		log.Warn("stream handshake failed", "err", err)
		conn.Close(websocket.StatusPolicyViolation, "expected start message")
		return
	}

	stream, err := s.sess.StartStream(opts)
	if err != nil {
		writeWSError(ctx, conn, err)
		conn.Close(websocket.StatusInternalError, "session start failed")
		return
	}
	defer stream.Close()

	s.metrics.ActiveStreams.Add(ctx, 1)
	defer s.metrics.ActiveStreams.Add(ctx, -1)

	if err := writeWS(ctx, conn, serverMessage{Type: "ready", SamplesPerChunk: samplesPerChunk}); err != nil {
		return
	}

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				log.Info("stream ended by client", "chunks", stream.Chunks())
			} else {
				log.Warn("stream read failed", "err", err, "chunks", stream.Chunks())
			}
			return
		}

		switch typ {
		case websocket.MessageBinary:
			if err := s.processChunk(ctx, conn, stream, data); err != nil {
				conn.Close(websocket.StatusInternalError, "session unusable")
				return
			}

		case websocket.MessageText:
			var msg startMessage
			if err := json.Unmarshal(data, &msg); err != nil || msg.Action != "close" {
				conn.Close(websocket.StatusPolicyViolation, "unexpected text frame")
				return
			}
			_ = writeWS(ctx, conn, serverMessage{Type: "closed", Chunks: stream.Chunks()})
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

// readStart waits for the client's start message and resolves it against the
// configured stream defaults. The returned chunk size is the one announced in
// the ready frame: the client's requested size when positive, the server
// default otherwise.
func (s *Server) readStart(ctx context.Context, conn *websocket.Conn) (session.Options, int, error) {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	typ, data, err := conn.Read(ctx)
	if err != nil {
		return session.Options{}, 0, err
	}
	if typ != websocket.MessageText {
		return session.Options{}, 0, errors.New("bridge: first frame must be a start message")
	}

	var msg startMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return session.Options{}, 0, err
	}
	if msg.Action != "" && msg.Action != "start" {
		return session.Options{}, 0, fmt.Errorf("bridge: unexpected action %q", msg.Action)
	}

	opts := session.Options{
		Language:          s.transcribe.Language,
		Translate:         s.transcribe.Translate,
		MaxTokens:         s.transcribe.MaxTokens,
		SuppressBlank:     s.transcribe.SuppressBlank,
		SuppressNonSpeech: s.transcribe.SuppressNonSpeech,
		Threads:           s.transcribe.Threads,
		SingleSegment:     s.stream.SingleSegment,
		NoContext:         s.stream.NoContext,
		AudioContext:      s.stream.AudioContext,
		VoiceActivity:     s.stream.VoiceActivity,
	}
	if msg.Language != "" {
		opts.Language = msg.Language
	}
	if msg.Translate != nil {
		opts.Translate = *msg.Translate
	}
	if msg.MaxTokens != nil {
		opts.MaxTokens = *msg.MaxTokens
	}
	if msg.Threads > 0 {
		opts.Threads = msg.Threads
	}
	if msg.SingleSegment != nil {
		opts.SingleSegment = *msg.SingleSegment
	}
	if msg.NoContext != nil {
		opts.NoContext = *msg.NoContext
	}
	if msg.AudioContext != nil {
		opts.AudioContext = *msg.AudioContext
	}
	if msg.VoiceActivity != nil {
		opts.VoiceActivity = *msg.VoiceActivity
	}

	samplesPerChunk := s.stream.SamplesPerChunk
	if msg.SamplesPerChunk != nil && *msg.SamplesPerChunk > 0 {
		samplesPerChunk = *msg.SamplesPerChunk
	}
	return opts, samplesPerChunk, nil
}

// processChunk decodes one binary frame, advances the stream, and reports
// the result. Recoverable failures are reported to the client and return
// nil; a non-nil return means the session is unusable.
func (s *Server) processChunk(ctx context.Context, conn *websocket.Conn, stream *session.Stream, data []byte) error {
	samples, err := audio.DecodeFloat32(data)
	if err != nil {
		return writeWSError(ctx, conn, err)
	}

	start := time.Now()
	res, err := stream.SubmitChunk(ctx, samples)
	s.metrics.ChunkDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordEngineError(ctx, "chunk")
		werr := writeWSError(ctx, conn, err)
		// A torn-down session cannot recover; decode failures can.
		if errors.Is(err, session.ErrInvalidHandle) || errors.Is(err, session.ErrSessionClosed) {
			return err
		}
		return werr
	}

	s.metrics.ChunksProcessed.Add(ctx, 1)
	s.metrics.RecordAudio(ctx, "chunk", float64(len(samples))/audio.SampleRate)
	return writeWS(ctx, conn, serverMessage{Type: "result", Chunk: stream.Chunks(), Result: res})
}

// writeWS marshals msg and sends it as a text frame.
func writeWS(ctx context.Context, conn *websocket.Conn, msg serverMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// writeWSError reports err to the client using the same codes as the HTTP
// endpoints.
func writeWSError(ctx context.Context, conn *websocket.Conn, err error) error {
	_, code := errorCode(err)
	return writeWS(ctx, conn, serverMessage{Type: "error", Code: code, Message: err.Error()})
}
