// ABOUTME: Low-pass then high-pass biquad stage applied to the live stream
// ABOUTME: Coefficients are rebuilt on the control side and swapped in atomically
package output

import (
	"math"
	"sync"
	"sync/atomic"
)

// Cutoff limits and defaults, in Hz
const (
	DefaultLowPassHz  = 20000
	MinLowPassHz      = 100
	MaxLowPassHz      = 20000
	DefaultHighPassHz = 20
	MinHighPassHz     = 20
	MaxHighPassHz     = 5000
)

// filterQ is a 1 dB resonance, the usual biquad default
var filterQ = math.Pow(10, 1.0/20)

// maxFilterChannels bounds the per-channel state kept for the real-time side
const maxFilterChannels = 8

type biquad struct {
	b0, b1, b2, a1, a2 float32
}

type biquadState struct {
	x1, x2, y1, y2 float32
}

func (q *biquad) step(s *biquadState, x float32) float32 {
	y := q.b0*x + q.b1*s.x1 + q.b2*s.x2 - q.a1*s.y1 - q.a2*s.y2
	s.x2, s.x1 = s.x1, x
	s.y2, s.y1 = s.y1, y
	return y
}

// newBiquad builds RBJ cookbook coefficients for a low-pass or high-pass
func newBiquad(highPass bool, cutoff, sampleRate float64) biquad {
	w0 := 2 * math.Pi * cutoff / sampleRate
	cos := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * filterQ)

	b0 := (1 - cos) / 2
	b1 := 1 - cos
	if highPass {
		b0 = (1 + cos) / 2
		b1 = -(1 + cos)
	}
	a0 := 1 + alpha

	return biquad{
		b0: float32(b0 / a0),
		b1: float32(b1 / a0),
		b2: float32(b0 / a0),
		a1: float32(-2 * cos / a0),
		a2: float32((1 - alpha) / a0),
	}
}

type filterCoeffs struct {
	channels   int
	low, high  biquad
	lowActive  bool
	highActive bool
}

// Filter is a low-pass followed by a high-pass over interleaved audio.
// It passes audio through untouched until Configure is called.
type Filter struct {
	coeffs atomic.Pointer[filterCoeffs]

	// real-time side only
	low  [maxFilterChannels]biquadState
	high [maxFilterChannels]biquadState

	// control side
	mu         sync.Mutex
	sampleRate int
	channels   int
	lowHz      atomic.Int32
	highHz     atomic.Int32
}

func (f *Filter) init() {
	f.lowHz.Store(DefaultLowPassHz)
	f.highHz.Store(DefaultHighPassHz)
}

// Configure sets the device format and enables the stage
func (f *Filter) Configure(sampleRate, channels int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sampleRate = sampleRate
	f.channels = channels
	f.rebuild()
}

// SetLowPass sets the low-pass cutoff, clamped to its range. Returns the value used.
func (f *Filter) SetLowPass(hz int) int {
	hz = max(MinLowPassHz, min(MaxLowPassHz, hz))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lowHz.Store(int32(hz))
	f.rebuild()
	return hz
}

// SetHighPass sets the high-pass cutoff, clamped to its range. Returns the value used.
func (f *Filter) SetHighPass(hz int) int {
	hz = max(MinHighPassHz, min(MaxHighPassHz, hz))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.highHz.Store(int32(hz))
	f.rebuild()
	return hz
}

// LowPass returns the low-pass cutoff
func (f *Filter) LowPass() int {
	return int(f.lowHz.Load())
}

// HighPass returns the high-pass cutoff
func (f *Filter) HighPass() int {
	return int(f.highHz.Load())
}

// rebuild must hold mu
func (f *Filter) rebuild() {
	if f.sampleRate <= 0 || f.channels <= 0 || f.channels > maxFilterChannels {
		f.coeffs.Store(nil)
		return
	}

	rate := float64(f.sampleRate)
	nyquist := rate / 2
	low := float64(f.lowHz.Load())
	high := float64(f.highHz.Load())

	c := &filterCoeffs{
		channels:   f.channels,
		lowActive:  low < nyquist,
		highActive: high < nyquist,
	}
	if c.lowActive {
		c.low = newBiquad(false, low, rate)
	}
	if c.highActive {
		c.high = newBiquad(true, high, rate)
	}
	f.coeffs.Store(c)
}

// Process filters dst in place. Real-time safe.
func (f *Filter) Process(dst []float32) {
	c := f.coeffs.Load()
	if c == nil {
		return
	}

	ch := c.channels
	for i, x := range dst {
		k := i % ch
		if c.lowActive {
			x = c.low.step(&f.low[k], x)
		}
		if c.highActive {
			x = c.high.step(&f.high[k], x)
		}
		dst[i] = x
	}
}
