package session

import (
	"errors"
	"testing"
)

func TestResolveParams_Defaults(t *testing.T) {
	c, _ := openTestContext(t)
	defer c.Close()

	p, err := c.resolveParams(Options{})
	if err != nil {
		t.Fatalf("resolveParams: %v", err)
	}
	if p.Language != LanguageAuto {
		t.Errorf("Language = %q; want %q", p.Language, LanguageAuto)
	}
	if p.Threads != DefaultThreads {
		t.Errorf("Threads = %d; want %d", p.Threads, DefaultThreads)
	}
	if p.Translate || p.SuppressBlank || p.SuppressNonSpeech || p.SingleSegment || p.NoContext {
		t.Errorf("boolean defaults not all false: %+v", p)
	}
	if p.MaxTokens != 0 {
		t.Errorf("MaxTokens = %d; want 0 (unlimited)", p.MaxTokens)
	}
	if p.AudioContext != 0 {
		t.Errorf("AudioContext = %d; want 0 (engine default)", p.AudioContext)
	}
	if !p.TokenTimestamps {
		t.Error("TokenTimestamps = false; want true")
	}
}

func TestResolveParams_AutoSentinel(t *testing.T) {
	c, _ := openTestContext(t)
	defer c.Close()

	for _, lang := range []string{"", "auto"} {
		p, err := c.resolveParams(Options{Language: lang})
		if err != nil {
			t.Fatalf("resolveParams(%q): %v", lang, err)
		}
		if p.Language != LanguageAuto {
			t.Errorf("resolveParams(%q).Language = %q; want auto", lang, p.Language)
		}
	}
}

func TestResolveParams_SupportedLanguagePassesVerbatim(t *testing.T) {
	c, _ := openTestContext(t)
	defer c.Close()

	p, err := c.resolveParams(Options{Language: "de"})
	if err != nil {
		t.Fatalf("resolveParams: %v", err)
	}
	if p.Language != "de" {
		t.Errorf("Language = %q; want de", p.Language)
	}
}

func TestResolveParams_UnsupportedLanguage(t *testing.T) {
	c, _ := openTestContext(t)
	defer c.Close()

	_, err := c.resolveParams(Options{Language: "xx"})
	if !errors.Is(err, ErrUnsupportedLanguage) {
		t.Fatalf("error = %v; want ErrUnsupportedLanguage", err)
	}
}

func TestResolveParams_Clamping(t *testing.T) {
	c, _ := openTestContext(t)
	defer c.Close()

	p, err := c.resolveParams(Options{Threads: -3, MaxTokens: -10, AudioContext: -1})
	if err != nil {
		t.Fatalf("resolveParams: %v", err)
	}
	if p.Threads != DefaultThreads {
		t.Errorf("Threads = %d; want clamped to %d", p.Threads, DefaultThreads)
	}
	if p.MaxTokens != 0 {
		t.Errorf("MaxTokens = %d; want clamped to 0", p.MaxTokens)
	}
	if p.AudioContext != 0 {
		t.Errorf("AudioContext = %d; want clamped to 0", p.AudioContext)
	}
}

func TestResolveParams_StreamingFieldsForwarded(t *testing.T) {
	c, _ := openTestContext(t)
	defer c.Close()

	p, err := c.resolveParams(Options{
		SingleSegment: true,
		NoContext:     true,
		AudioContext:  512,
		VoiceActivity: true,
		Threads:       8,
	})
	if err != nil {
		t.Fatalf("resolveParams: %v", err)
	}
	if !p.SingleSegment || !p.NoContext || !p.VoiceActivity {
		t.Errorf("streaming flags not forwarded: %+v", p)
	}
	if p.AudioContext != 512 {
		t.Errorf("AudioContext = %d; want 512", p.AudioContext)
	}
	if p.Threads != 8 {
		t.Errorf("Threads = %d; want 8", p.Threads)
	}
}
