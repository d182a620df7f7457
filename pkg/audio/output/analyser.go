// ABOUTME: Analyser tapping the mixed output for level and spectrum display
// ABOUTME: The real-time side writes a mono ring with atomics; readers run the FFT
package output

import (
	"math"
	"math/cmplx"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/dsp/fourier"
)

// AnalyserSize is the number of mono samples kept for the spectrum
const AnalyserSize = 2048

// Spectrum band limits, in Hz
const (
	SpectrumMinHz = 40
	SpectrumMaxHz = 16000
)

// Analyser keeps the most recent output for display
type Analyser struct {
	ring [AnalyserSize]atomic.Uint32
	pos  atomic.Uint64
	peak atomic.Uint32
	rms  atomic.Uint32

	fftMu sync.Mutex
	fft   *fourier.FFT
}

// write records a mono mix of dst and the level of the block. Real-time safe.
func (a *Analyser) write(dst []float32, channels int) {
	if len(dst) == 0 {
		return
	}
	channels = max(1, channels)

	pos := a.pos.Load()
	var peak float32
	var sum float64
	for i := 0; i+channels <= len(dst); i += channels {
		var mono float32
		for _, s := range dst[i : i+channels] {
			mono += s
			peak = max(peak, s, -s)
			sum += float64(s) * float64(s)
		}
		a.ring[pos%AnalyserSize].Store(math.Float32bits(mono / float32(channels)))
		pos++
	}
	a.pos.Store(pos)

	a.peak.Store(math.Float32bits(peak))
	a.rms.Store(math.Float32bits(float32(math.Sqrt(sum / float64(len(dst))))))
}

// Level returns the peak and RMS of the last output block
func (a *Analyser) Level() (peak, rms float32) {
	return math.Float32frombits(a.peak.Load()), math.Float32frombits(a.rms.Load())
}

// samples returns the ring oldest first
func (a *Analyser) samples() []float64 {
	out := make([]float64, AnalyserSize)
	pos := a.pos.Load()
	for i := range out {
		out[i] = float64(math.Float32frombits(a.ring[(pos+uint64(i))%AnalyserSize].Load()))
	}
	return out
}

// Spectrum returns one magnitude per log-spaced band between SpectrumMinHz and
// SpectrumMaxHz. A full-scale sine reads about 1 in its band.
func (a *Analyser) Spectrum(bands, sampleRate int) []float64 {
	out := make([]float64, max(0, bands))
	if bands <= 0 || sampleRate <= 0 {
		return out
	}

	seq := a.samples()
	for i := range seq {
		seq[i] *= 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(AnalyserSize-1))
	}

	a.fftMu.Lock()
	if a.fft == nil {
		a.fft = fourier.NewFFT(AnalyserSize)
	}
	coeffs := a.fft.Coefficients(nil, seq)
	a.fftMu.Unlock()

	binHz := float64(sampleRate) / AnalyserSize
	edges := BandEdges(bands)
	for b := range out {
		lo := int(math.Ceil(edges[b] / binHz))
		hi := max(lo+1, int(math.Ceil(edges[b+1]/binHz)))
		for k := lo; k < hi && k < len(coeffs); k++ {
			out[b] = max(out[b], cmplx.Abs(coeffs[k])/(AnalyserSize/4))
		}
		out[b] = min(out[b], 1)
	}
	return out
}

// BandEdges returns bands+1 log-spaced edge frequencies
func BandEdges(bands int) []float64 {
	edges := make([]float64, bands+1)
	ratio := float64(SpectrumMaxHz) / SpectrumMinHz
	for i := range edges {
		edges[i] = SpectrumMinHz * math.Pow(ratio, float64(i)/float64(bands))
	}
	return edges
}
