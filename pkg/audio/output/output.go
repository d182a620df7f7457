// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for pull-based playback backends
package output

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned when playing through a device that is not open
var ErrNotReady = errors.New("audio output not ready")

// Source supplies interleaved float32 samples to the device.
// Fill writes len(dst) samples (zeros where it has nothing) and returns the
// number of frames that carried real audio.
type Source interface {
	Fill(dst []float32) int
}

// Output represents an audio output device
type Output interface {
	// Open starts the device pulling from src
	Open(sampleRate, channels int, src Source) error

	// SampleRate returns the rate the device actually runs at (0 before Open)
	SampleRate() int

	// Close stops the device and releases resources
	Close() error
}

// New returns the backend by name: "malgo", "oto" or "null"
func New(backend string) (Output, error) {
	switch backend {
	case "malgo", "":
		return NewMalgo(), nil
	case "oto":
		return NewOto(), nil
	case "null":
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("unknown audio backend: %s", backend)
	}
}
