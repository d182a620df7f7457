// ABOUTME: Deck owns the output device and its mixer
// ABOUTME: Control-side entry point for opening the device and playing history clips
package output

import (
	"fmt"
	"log"
	"sync"
)

// Deck pairs an Output with the Mixer feeding it
type Deck struct {
	out      Output
	mixer    *Mixer
	channels int
	open     bool
	mu       sync.Mutex
}

// NewDeck creates a deck playing live through out
func NewDeck(out Output, live Source) *Deck {
	return &Deck{
		out:   out,
		mixer: NewMixer(live),
	}
}

// Open starts the device. Returns the rate the device actually runs at.
func (d *Deck) Open(sampleRate, channels int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return d.out.SampleRate(), nil
	}
	if err := d.out.Open(sampleRate, channels, d.mixer); err != nil {
		return 0, fmt.Errorf("failed to open audio output: %w", err)
	}
	d.open = true
	d.channels = channels
	d.mixer.Configure(d.out.SampleRate(), channels)
	return d.out.SampleRate(), nil
}

// Ready reports whether the device is open
func (d *Deck) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// SampleRate returns the device rate, 0 when closed
func (d *Deck) SampleRate() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return 0
	}
	return d.out.SampleRate()
}

// PlayClip starts c, stopping any clip already playing
func (d *Deck) PlayClip(c *Clip) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return ErrNotReady
	}
	if c.channels != d.channels {
		return fmt.Errorf("clip has %d channels, device has %d", c.channels, d.channels)
	}
	d.mixer.SetClip(c)
	return nil
}

// StopClip stops c if it is still playing
func (d *Deck) StopClip(c *Clip) {
	d.mixer.StopClip(c)
}

// Mixer returns the deck's mixer for volume, filter and level control
func (d *Deck) Mixer() *Mixer {
	return d.mixer
}

// SetVolume sets the volume (0-100)
func (d *Deck) SetVolume(volume int) {
	d.mixer.SetVolume(volume)
	log.Printf("Volume set to %d", d.mixer.Volume())
}

// SetMuted sets mute state
func (d *Deck) SetMuted(muted bool) {
	d.mixer.SetMuted(muted)
	log.Printf("Muted: %v", muted)
}

// SetLowPass sets the live low-pass cutoff
func (d *Deck) SetLowPass(hz int) int {
	hz = d.mixer.SetLowPass(hz)
	log.Printf("Low-pass set to %d Hz", hz)
	return hz
}

// SetHighPass sets the live high-pass cutoff
func (d *Deck) SetHighPass(hz int) int {
	hz = d.mixer.SetHighPass(hz)
	log.Printf("High-pass set to %d Hz", hz)
	return hz
}

// Close stops the device
func (d *Deck) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c := d.mixer.Clip(); c != nil {
		d.mixer.StopClip(c)
	}
	if !d.open {
		return nil
	}
	d.open = false
	return d.out.Close()
}
