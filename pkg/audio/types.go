// ABOUTME: Audio type definitions
// ABOUTME: Defines the session format and float/int16 sample conversions
package audio

import "math"

const (
	// DefaultSampleRate is the generator's negotiated rate unless told otherwise
	DefaultSampleRate = 48000
	// DefaultChannels is fixed for the whole session (interleaved L, R)
	DefaultChannels = 2
	// BitDepth of history and export PCM
	BitDepth = 16

	// 16-bit range constants
	Max16Bit = 32767
	Min16Bit = -32768
)

// Format describes the PCM stream format of a session
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat returns the 48kHz stereo 16-bit session format
func DefaultFormat() Format {
	return Format{
		Codec:      "pcm",
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		BitDepth:   BitDepth,
	}
}

// SamplesPerSecond returns interleaved samples per second (rate x channels)
func (f Format) SamplesPerSecond() int {
	return f.SampleRate * f.Channels
}

// Duration converts an interleaved sample count to seconds.
// Returns 0 for a zero sample rate or channel count.
func (f Format) Duration(samples int) float64 {
	sps := f.SamplesPerSecond()
	if sps <= 0 || samples <= 0 {
		return 0
	}
	return float64(samples) / float64(sps)
}

// SampleIndex converts seconds to an interleaved sample index, truncated and
// aligned down to a frame boundary so left/right never swap.
func (f Format) SampleIndex(seconds float64) int {
	if seconds <= 0 || f.Channels <= 0 {
		return 0
	}
	idx := int(seconds * float64(f.SamplesPerSecond()))
	return idx - idx%f.Channels
}

// SampleFloatToInt16 converts one float sample to int16.
// Negative values scale by 32768, non-negative by 32767.
func SampleFloatToInt16(s float32) int16 {
	if s != s { // NaN
		return 0
	}
	v := math.Max(-1, math.Min(1, float64(s)))
	if v < 0 {
		return int16(v * 32768)
	}
	return int16(v * 32767)
}

// SampleInt16ToFloat converts one int16 sample to float (scale 1/32768)
func SampleInt16ToFloat(s int16) float32 {
	return float32(s) / 32768
}

// FloatToInt16 converts float PCM in [-1, 1] to int16 PCM, clamping out-of-range input
func FloatToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	FloatToInt16Into(out, samples)
	return out
}

// FloatToInt16Into converts without allocating; dst must be at least len(src)
func FloatToInt16Into(dst []int16, src []float32) {
	for i, s := range src {
		dst[i] = SampleFloatToInt16(s)
	}
}

// Int16ToFloat converts int16 PCM to float PCM
func Int16ToFloat(samples []int16) []float32 {
	out := make([]float32, len(samples))
	Int16ToFloatInto(out, samples)
	return out
}

// Int16ToFloatInto converts without allocating; dst must be at least len(src)
func Int16ToFloatInto(dst []float32, src []int16) {
	for i, s := range src {
		dst[i] = SampleInt16ToFloat(s)
	}
}

// Peak returns the largest absolute sample value
func Peak(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}
