// ABOUTME: Tests for the output analyser
// ABOUTME: Checks block levels, spectrum peaks and band layout
package output

import (
	"math"
	"testing"
)

func TestAnalyserLevel(t *testing.T) {
	var a Analyser
	a.write(sine(1000, 0.5, 4800, 2), 2)

	peak, rms := a.Level()
	if math.Abs(float64(peak)-0.5) > 0.001 {
		t.Errorf("expected peak 0.5, got %v", peak)
	}
	if math.Abs(float64(rms)-0.5/math.Sqrt2) > 0.005 {
		t.Errorf("expected rms %v, got %v", 0.5/math.Sqrt2, rms)
	}
}

func TestAnalyserSpectrumPeak(t *testing.T) {
	var a Analyser
	a.write(sine(1000, 0.5, AnalyserSize*2, 2), 2)

	const bands = 16
	spectrum := a.Spectrum(bands, filterTestRate)
	if len(spectrum) != bands {
		t.Fatalf("expected %d bands, got %d", bands, len(spectrum))
	}

	loudest := 0
	for i, v := range spectrum {
		if v > spectrum[loudest] {
			loudest = i
		}
	}

	edges := BandEdges(bands)
	if edges[loudest] > 1000 || edges[loudest+1] <= 1000 {
		t.Errorf("expected 1kHz in loudest band, got %.0f-%.0f Hz", edges[loudest], edges[loudest+1])
	}
	if spectrum[loudest] < 0.35 || spectrum[loudest] > 1 {
		t.Errorf("unexpected peak magnitude %v", spectrum[loudest])
	}
}

func TestAnalyserSpectrumEdgeCases(t *testing.T) {
	var a Analyser

	if got := a.Spectrum(0, filterTestRate); len(got) != 0 {
		t.Errorf("expected no bands, got %d", len(got))
	}
	for _, v := range a.Spectrum(8, 0) {
		if v != 0 {
			t.Fatalf("expected zeros without a rate, got %v", v)
		}
	}
	for _, v := range a.Spectrum(8, filterTestRate) {
		if v != 0 {
			t.Fatalf("expected silence, got %v", v)
		}
	}
}

func TestBandEdges(t *testing.T) {
	edges := BandEdges(4)
	if len(edges) != 5 {
		t.Fatalf("expected 5 edges, got %d", len(edges))
	}
	if edges[0] != SpectrumMinHz || math.Abs(edges[4]-SpectrumMaxHz) > 1e-6 {
		t.Errorf("unexpected bounds %v .. %v", edges[0], edges[4])
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			t.Errorf("edges not increasing at %d: %v", i, edges)
		}
	}
}

func TestMixerFeedsAnalyser(t *testing.T) {
	m := NewMixer(&constSource{v: 0.25})
	m.Fill(make([]float32, 8))

	peak, rms := m.Level()
	if peak != 0.25 || math.Abs(float64(rms)-0.25) > 1e-6 {
		t.Errorf("expected peak and rms 0.25, got %v / %v", peak, rms)
	}
}
