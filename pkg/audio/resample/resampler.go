// ABOUTME: Streaming linear resampler for interleaved float32 audio
// ABOUTME: Carries the last input frame across chunks so chunk edges interpolate cleanly
package resample

import "math"

// Resampler performs linear interpolation to convert between sample rates.
// It is stateful and must be fed the chunks of one stream in order.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64   // in input frames, relative to the next chunk's first frame
	last       []float32 // last frame of the previous chunk
	haveLast   bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		last:       make([]float32, channels),
	}
}

// Passthrough reports whether input and output rates match
func (r *Resampler) Passthrough() bool {
	return r.inputRate == r.outputRate
}

// Process resamples one chunk and returns the output samples.
// With equal rates the input slice is returned unchanged.
func (r *Resampler) Process(input []float32) []float32 {
	if r.Passthrough() {
		return input
	}

	ch := r.channels
	frames := len(input) / ch
	if frames == 0 {
		return nil
	}

	out := make([]float32, 0, r.OutputSamplesNeeded(len(input))+ch)

	frame := func(i, c int) float32 {
		if i < 0 {
			return r.last[c]
		}
		return input[i*ch+c]
	}

	if !r.haveLast && r.position < 0 {
		r.position = 0
	}

	for {
		idx := int(math.Floor(r.position))
		if idx+1 >= frames {
			break
		}
		frac := float32(r.position - float64(idx))
		for c := 0; c < ch; c++ {
			a := frame(idx, c)
			b := frame(idx+1, c)
			out = append(out, a+(b-a)*frac)
		}
		r.position += r.ratio
	}

	r.position -= float64(frames)
	copy(r.last, input[(frames-1)*ch:frames*ch])
	r.haveLast = true

	return out
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0
	r.haveLast = false
	for i := range r.last {
		r.last[i] = 0
	}
}

// OutputSamplesNeeded estimates how many output samples inputSamples will produce
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(math.Ceil(float64(inputFrames) / r.ratio))
	return outputFrames * r.channels
}
