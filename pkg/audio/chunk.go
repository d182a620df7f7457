// ABOUTME: Move-only chunk of interleaved float PCM
// ABOUTME: A chunk is handed to exactly one consumer, then its handle is empty
package audio

// Chunk is one unit of generator output: interleaved float samples at the
// session format. Ownership moves on Take; the producer must not reuse the
// backing array afterwards.
type Chunk struct {
	samples []float32
}

// NewChunk wraps samples without copying. The caller gives up the slice.
func NewChunk(samples []float32) *Chunk {
	return &Chunk{samples: samples}
}

// Len returns the number of interleaved samples still owned by this handle
func (c *Chunk) Len() int {
	if c == nil {
		return 0
	}
	return len(c.samples)
}

// Samples returns a read-only view of the samples while the handle still owns them
func (c *Chunk) Samples() []float32 {
	if c == nil {
		return nil
	}
	return c.samples
}

// Take moves the samples out of the handle. Subsequent calls return nil.
func (c *Chunk) Take() []float32 {
	if c == nil {
		return nil
	}
	s := c.samples
	c.samples = nil
	return s
}

// TrimToFrames drops a trailing partial frame. Returns the number of samples dropped.
func (c *Chunk) TrimToFrames(channels int) int {
	if c == nil || channels <= 1 {
		return 0
	}
	extra := len(c.samples) % channels
	c.samples = c.samples[:len(c.samples)-extra]
	return extra
}
