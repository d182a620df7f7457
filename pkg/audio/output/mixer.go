// ABOUTME: Real-time mixer: filtered live stream plus one history clip, then gain
// ABOUTME: Volume, mute and cutoffs are set with atomics; the output feeds the analyser
package output

import (
	"math"
	"sync/atomic"
)

// Mixer is the Source handed to the device. Control-side setters use atomics
// so Fill never blocks.
type Mixer struct {
	live   Source
	clip   atomic.Pointer[Clip]
	volume atomic.Uint32 // math.Float32bits of the multiplier
	level  atomic.Int32  // 0-100
	muted  atomic.Bool

	filter   Filter
	analyser Analyser
	channels atomic.Int32
	rate     atomic.Int32
}

// NewMixer creates a mixer over the live stream at full volume.
// Filters stay bypassed until Configure.
func NewMixer(live Source) *Mixer {
	m := &Mixer{live: live}
	m.channels.Store(2)
	m.filter.init()
	m.SetVolume(100)
	return m
}

// Configure sets the device format the mixer runs at and enables the filters
func (m *Mixer) Configure(sampleRate, channels int) {
	m.rate.Store(int32(sampleRate))
	m.channels.Store(int32(channels))
	m.filter.Configure(sampleRate, channels)
}

// Fill implements Source
func (m *Mixer) Fill(dst []float32) int {
	var frames int
	if m.live != nil {
		frames = m.live.Fill(dst)
		m.filter.Process(dst)
	} else {
		clear(dst)
	}

	if c := m.clip.Load(); c != nil {
		c.mixInto(dst)
		if c.Done() {
			m.clip.CompareAndSwap(c, nil)
		}
	}

	multiplier := math.Float32frombits(m.volume.Load())
	if multiplier == 1 {
		clampAll(dst)
	} else {
		for i, s := range dst {
			dst[i] = clamp(s * multiplier)
		}
	}

	m.analyser.write(dst, int(m.channels.Load()))
	return frames
}

// SetClip replaces the playing clip, stopping the previous one
func (m *Mixer) SetClip(c *Clip) {
	if prev := m.clip.Swap(c); prev != nil && prev != c {
		prev.Stop()
	}
}

// StopClip stops c if it is the playing clip
func (m *Mixer) StopClip(c *Clip) {
	if c == nil {
		return
	}
	c.Stop()
	m.clip.CompareAndSwap(c, nil)
}

// Clip returns the playing clip, nil if none
func (m *Mixer) Clip() *Clip {
	return m.clip.Load()
}

// SetVolume sets the volume (0-100)
func (m *Mixer) SetVolume(volume int) {
	volume = max(0, min(100, volume))
	m.level.Store(int32(volume))
	m.store()
}

// SetMuted sets mute state
func (m *Mixer) SetMuted(muted bool) {
	m.muted.Store(muted)
	m.store()
}

// SetLowPass sets the live low-pass cutoff. Returns the clamped value.
func (m *Mixer) SetLowPass(hz int) int {
	return m.filter.SetLowPass(hz)
}

// SetHighPass sets the live high-pass cutoff. Returns the clamped value.
func (m *Mixer) SetHighPass(hz int) int {
	return m.filter.SetHighPass(hz)
}

// LowPass returns the low-pass cutoff in Hz
func (m *Mixer) LowPass() int {
	return m.filter.LowPass()
}

// HighPass returns the high-pass cutoff in Hz
func (m *Mixer) HighPass() int {
	return m.filter.HighPass()
}

// Level returns peak and RMS of the most recent output block
func (m *Mixer) Level() (peak, rms float32) {
	return m.analyser.Level()
}

// Spectrum returns band magnitudes of the recent output
func (m *Mixer) Spectrum(bands int) []float64 {
	return m.analyser.Spectrum(bands, int(m.rate.Load()))
}

// Volume returns current volume
func (m *Mixer) Volume() int {
	return int(m.level.Load())
}

// Muted returns mute state
func (m *Mixer) Muted() bool {
	return m.muted.Load()
}

func (m *Mixer) store() {
	mult := float32(getVolumeMultiplier(int(m.level.Load()), m.muted.Load()))
	m.volume.Store(math.Float32bits(mult))
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}

func clamp(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

func clampAll(dst []float32) {
	for i, s := range dst {
		dst[i] = clamp(s)
	}
}
