// Package audio decodes raw audio payloads into the normalized float32
// sample sequence the inference engine expects: mono, 16 kHz, values in
// [-1.0, 1.0].
//
// Decoding is pure: no I/O, no engine calls. Validation failures are
// reported before any inference work is spent on the payload.
package audio

import (
	"encoding/binary"
	"errors"
	"math"
)

// SampleRate is the sample rate the engine expects, in Hz.
const SampleRate = 16000

// wavHeaderLen is the fixed RIFF/WAV header size that DecodeWAV skips. The
// decoder does not walk chunk IDs generically; payloads with extra chunks
// before "data" are misread.
const wavHeaderLen = 44

var (
	// ErrInvalidFormat reports a payload that cannot be interpreted as the
	// expected audio encoding (truncated header, odd sample remainder,
	// non-finite or out-of-range float samples).
	ErrInvalidFormat = errors.New("audio: invalid audio format")

	// ErrEmptyAudio reports a payload that decodes to zero samples.
	ErrEmptyAudio = errors.New("audio: no audio samples")
)

// DecodeWAV interprets raw as a minimal WAV container: a 44-byte header
// followed by signed 16-bit little-endian PCM. It returns the normalized
// samples.
func DecodeWAV(raw []byte) ([]float32, error) {
	if len(raw) < wavHeaderLen {
		return nil, errors.Join(ErrInvalidFormat, errors.New("audio: wav payload shorter than 44-byte header"))
	}
	return DecodePCM16(raw[wavHeaderLen:])
}

// DecodePCM16 interprets raw as signed 16-bit little-endian PCM and returns
// the normalized samples.
func DecodePCM16(raw []byte) ([]float32, error) {
	if len(raw)%2 != 0 {
		return nil, errors.Join(ErrInvalidFormat, errors.New("audio: odd pcm byte count"))
	}
	if len(raw) == 0 {
		return nil, ErrEmptyAudio
	}
	return pcmToFloat32(raw), nil
}

// ValidateSamples sanity-checks an already-decoded float sample sequence as
// used by the streaming path: nonzero length, finite values, magnitude
// within [-1.0, 1.0]. The samples pass through unchanged.
func ValidateSamples(samples []float32) error {
	if len(samples) == 0 {
		return ErrEmptyAudio
	}
	for _, v := range samples {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) || f < -1.0 || f > 1.0 {
			return errors.Join(ErrInvalidFormat, errors.New("audio: sample out of [-1, 1] range"))
		}
	}
	return nil
}

// DecodeFloat32 interprets raw as little-endian IEEE-754 float32 samples
// (the wire shape used by streaming bridge clients) and validates them.
func DecodeFloat32(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, errors.Join(ErrInvalidFormat, errors.New("audio: float payload not a multiple of 4 bytes"))
	}
	n := len(raw) / 4
	samples := make([]float32, n)
	for i := range n {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4 : i*4+4]))
	}
	if err := ValidateSamples(samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// pcmToFloat32 converts 16-bit signed little-endian PCM audio to float32
// samples normalized to the range [-1.0, 1.0].
func pcmToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}
