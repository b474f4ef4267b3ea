package session

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/whisperbridge/internal/engine/enginetest"
	"github.com/MrWong99/whisperbridge/pkg/audio"
)

func TestDetectLanguage_Success(t *testing.T) {
	c, ec := openTestContext(t)
	defer c.Close()

	ec.DetectID = 1 // de in the fake's language table
	ec.DetectConf = 0.87

	det, err := c.DetectLanguage(context.Background(), make([]float32, 16000), 0)
	if err != nil {
		t.Fatalf("DetectLanguage: %v", err)
	}
	if det.Language != "de" {
		t.Errorf("Language = %q; want de", det.Language)
	}
	if det.LanguageName == "" || det.LanguageName == "de" {
		t.Errorf("LanguageName = %q; want full name", det.LanguageName)
	}
	if det.Confidence != 0.87 {
		t.Errorf("Confidence = %v; want 0.87", det.Confidence)
	}

	// The scratch state is transient and freed before returning.
	if ec.StatesOpened() != 1 || ec.StatesFreed() != 1 {
		t.Errorf("states opened/freed = %d/%d; want 1/1", ec.StatesOpened(), ec.StatesFreed())
	}
}

func TestDetectLanguage_EmptyAudio(t *testing.T) {
	c, _ := openTestContext(t)
	defer c.Close()

	if _, err := c.DetectLanguage(context.Background(), nil, 0); !errors.Is(err, audio.ErrEmptyAudio) {
		t.Fatalf("error = %v; want ErrEmptyAudio", err)
	}
}

func TestDetectLanguage_StateFreedOnMelFailure(t *testing.T) {
	c, ec := openTestContext(t)
	defer c.Close()

	ec.MelErr = enginetest.ErrScripted
	_, err := c.DetectLanguage(context.Background(), []float32{0.1}, 0)
	if !errors.Is(err, ErrDetectionFailed) {
		t.Fatalf("error = %v; want ErrDetectionFailed", err)
	}
	if ec.StatesFreed() != 1 {
		t.Errorf("states freed = %d; want 1 (leaked on error path)", ec.StatesFreed())
	}
}

func TestDetectLanguage_StateFreedOnDetectFailure(t *testing.T) {
	c, ec := openTestContext(t)
	defer c.Close()

	ec.DetectErr = enginetest.ErrScripted
	_, err := c.DetectLanguage(context.Background(), []float32{0.1}, 0)
	if !errors.Is(err, ErrDetectionFailed) {
		t.Fatalf("error = %v; want ErrDetectionFailed", err)
	}
	if ec.StatesFreed() != 1 {
		t.Errorf("states freed = %d; want 1 (leaked on error path)", ec.StatesFreed())
	}
}

func TestDetectLanguage_UnknownLanguageID(t *testing.T) {
	c, ec := openTestContext(t)
	defer c.Close()

	ec.DetectID = 9999
	_, err := c.DetectLanguage(context.Background(), []float32{0.1}, 0)
	if !errors.Is(err, ErrUnknownLanguage) {
		t.Fatalf("error = %v; want ErrUnknownLanguage", err)
	}
	if ec.StatesFreed() != 1 {
		t.Errorf("states freed = %d; want 1", ec.StatesFreed())
	}
}

func TestDetectLanguage_StateInitFailure(t *testing.T) {
	c, ec := openTestContext(t)
	defer c.Close()

	ec.NewStateErr = enginetest.ErrScripted
	_, err := c.DetectLanguage(context.Background(), []float32{0.1}, 0)
	if !errors.Is(err, ErrStateInitFailed) {
		t.Fatalf("error = %v; want ErrStateInitFailed", err)
	}
}
