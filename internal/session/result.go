package session

import (
	"time"

	"github.com/MrWong99/whisperbridge/internal/engine"
)

// Segment is a timestamped span of recognized text. T0 and T1 are start and
// end timestamps in engine-native centiseconds.
type Segment struct {
	Text string `json:"text"`
	T0   int64  `json:"t0"`
	T1   int64  `json:"t1"`
}

// Start returns the segment start as a duration from the beginning of the
// audio.
func (s Segment) Start() time.Duration {
	return time.Duration(s.T0) * 10 * time.Millisecond
}

// End returns the segment end as a duration from the beginning of the audio.
func (s Segment) End() time.Duration {
	return time.Duration(s.T1) * 10 * time.Millisecond
}

// Result is one transcription outcome: the full concatenated text plus the
// ordered segments it was assembled from. Immutable after assembly.
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// assembleResult converts engine-native segment output into a Result.
// Segment order is exactly the engine's reported order, and empty-text
// segments pass through so timestamp alignment is preserved for downstream
// consumers. Text is the in-order concatenation of all segment texts.
func assembleResult(segs []engine.Segment) *Result {
	res := &Result{Segments: make([]Segment, len(segs))}
	for i, s := range segs {
		res.Segments[i] = Segment{Text: s.Text, T0: s.T0, T1: s.T1}
		res.Text += s.Text
	}
	return res
}
