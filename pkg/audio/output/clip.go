// ABOUTME: One-shot history clip played alongside the live stream
// ABOUTME: Position is advanced by the real-time context; the control side only reads it
package output

import "sync/atomic"

// Clip is a block of interleaved float32 samples played once from the start.
// Samples must not be modified after NewClip.
type Clip struct {
	samples  []float32
	channels int
	pos      atomic.Int64 // samples consumed
	stopped  atomic.Bool
}

// NewClip wraps samples for playback
func NewClip(samples []float32, channels int) *Clip {
	if channels <= 0 {
		channels = 1
	}
	return &Clip{samples: samples, channels: channels}
}

// Stop ends playback at the next callback
func (c *Clip) Stop() {
	c.stopped.Store(true)
}

// Done reports whether the clip was stopped or has played to the end
func (c *Clip) Done() bool {
	return c.stopped.Load() || int(c.pos.Load()) >= len(c.samples)
}

// FramesPlayed returns how many frames the device has consumed
func (c *Clip) FramesPlayed() int {
	return int(c.pos.Load()) / c.channels
}

// TotalFrames returns the clip length in frames
func (c *Clip) TotalFrames() int {
	return len(c.samples) / c.channels
}

// mixInto adds the next len(dst) samples into dst. Called from the real-time context only.
func (c *Clip) mixInto(dst []float32) {
	if c.stopped.Load() {
		return
	}
	pos := int(c.pos.Load())
	if pos >= len(c.samples) {
		return
	}

	n := copyAdd(dst, c.samples[pos:])
	c.pos.Store(int64(pos + n))
}

func copyAdd(dst, src []float32) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] += src[i]
	}
	return n
}
