package session

import (
	"testing"
	"time"

	"github.com/MrWong99/whisperbridge/internal/engine"
)

func TestSegment_TimestampConversion(t *testing.T) {
	s := Segment{T0: 150, T1: 321}
	if got, want := s.Start(), 1500*time.Millisecond; got != want {
		t.Errorf("Start() = %v; want %v", got, want)
	}
	if got, want := s.End(), 3210*time.Millisecond; got != want {
		t.Errorf("End() = %v; want %v", got, want)
	}
}

func TestAssembleResult_Empty(t *testing.T) {
	res := assembleResult(nil)
	if res.Text != "" {
		t.Errorf("Text = %q; want empty", res.Text)
	}
	if len(res.Segments) != 0 {
		t.Errorf("got %d segments; want 0", len(res.Segments))
	}
}

func TestAssembleResult_ConcatenatesVerbatim(t *testing.T) {
	// Leading spaces come from the engine and must survive concatenation
	// untouched; the assembler never trims or joins with separators.
	res := assembleResult([]engine.Segment{
		{Text: " So", T0: 0, T1: 40},
		{Text: " this is it.", T0: 40, T1: 180},
	})
	if res.Text != " So this is it." {
		t.Errorf("Text = %q", res.Text)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("got %d segments; want 2", len(res.Segments))
	}
	if res.Segments[1].T0 != 40 || res.Segments[1].T1 != 180 {
		t.Errorf("segment timestamps not carried: %+v", res.Segments[1])
	}
}
