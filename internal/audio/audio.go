package audio

import "math"

// Kokoro emits 24 kHz mono audio; responses carry it as 16-bit PCM.
const (
	SampleRate    = 24000
	Channels      = 1
	BitsPerSample = 16
)

// ClampToInt16 converts one float sample in [-1, 1] to a signed 16-bit
// value. Out-of-range input is clamped rather than wrapped.
func ClampToInt16(s float32) int16 {
	clamped := math.Max(-1.0, math.Min(1.0, float64(s)))
	return int16(clamped * 32767)
}

// EncodePCM16 converts float32 samples to raw little-endian 16-bit PCM
// with no container framing. This is the "pcm" response format: the
// client is responsible for knowing the sample rate and channel layout.
func EncodePCM16(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := uint16(ClampToInt16(s))
		buf[i*2] = byte(v)
		buf[i*2+1] = byte(v >> 8)
	}

	return buf
}
