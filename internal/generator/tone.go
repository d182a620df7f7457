// ABOUTME: Synthetic tone generator
// ABOUTME: Emits a slowly swelling sine pair in irregular, jittered chunks
package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-tape/pkg/audio"
)

// ToneConfig controls the synthetic source
type ToneConfig struct {
	Frequency  float64
	Amplitude  float64
	SampleRate int
	Channels   int

	// Chunk sizes are drawn uniformly from [MinChunk, MaxChunk]
	MinChunk time.Duration
	MaxChunk time.Duration

	// Jitter adds up to this much random delay per chunk
	Jitter time.Duration
	// Lead is how far ahead of real time the source may run
	Lead time.Duration

	Seed     uint64
	Duration time.Duration // 0 = endless
	Realtime bool
}

// DefaultToneConfig returns a 440Hz stereo tone with bursty chunking
func DefaultToneConfig() ToneConfig {
	return ToneConfig{
		Frequency:  440.0,
		Amplitude:  0.5,
		SampleRate: audio.DefaultSampleRate,
		Channels:   audio.DefaultChannels,
		MinChunk:   20 * time.Millisecond,
		MaxChunk:   250 * time.Millisecond,
		Jitter:     30 * time.Millisecond,
		Lead:       500 * time.Millisecond,
		Realtime:   true,
	}
}

// Tone generates a test signal
type Tone struct {
	config ToneConfig
	rng    *rand.Rand

	mu          sync.Mutex
	sampleIndex uint64
	open        bool
}

// NewTone creates a tone generator
func NewTone(config ToneConfig) *Tone {
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Tone{
		config: config,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Open validates the configuration and returns the stream format
func (t *Tone) Open(ctx context.Context) (audio.Format, error) {
	c := t.config
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return audio.Format{}, fmt.Errorf("invalid tone format: %d Hz, %d channels", c.SampleRate, c.Channels)
	}
	if c.MinChunk <= 0 || c.MaxChunk < c.MinChunk {
		return audio.Format{}, fmt.Errorf("invalid chunk bounds: %v..%v", c.MinChunk, c.MaxChunk)
	}

	t.mu.Lock()
	t.open = true
	t.sampleIndex = 0
	t.mu.Unlock()

	return audio.Format{
		Codec:      "pcm",
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
		BitDepth:   audio.BitDepth,
	}, nil
}

// Stream emits chunks until Duration is reached or ctx ends
func (t *Tone) Stream(ctx context.Context, emit func(*audio.Chunk)) error {
	t.mu.Lock()
	open := t.open
	t.mu.Unlock()
	if !open {
		return ErrNotOpen
	}

	c := t.config
	minFrames := t.frames(c.MinChunk)
	maxFrames := t.frames(c.MaxChunk)
	if minFrames < 1 {
		minFrames = 1
	}
	if maxFrames < minFrames {
		maxFrames = minFrames
	}
	limit := -1
	if c.Duration > 0 {
		limit = t.frames(c.Duration)
	}

	pace := newPacer(c.Lead)
	produced := 0

	for limit < 0 || produced < limit {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := minFrames + t.rng.IntN(maxFrames-minFrames+1)
		if limit >= 0 && produced+n > limit {
			n = limit - produced
		}

		emit(audio.NewChunk(t.render(n)))
		produced += n

		if c.Realtime {
			var extra time.Duration
			if c.Jitter > 0 {
				extra = time.Duration(t.rng.Int64N(int64(c.Jitter)))
			}
			if err := pace.wait(ctx, framesDuration(produced, c.SampleRate), extra); err != nil {
				return err
			}
		}
	}

	return nil
}

// render synthesizes n frames; every channel carries the same signal
func (t *Tone) render(n int) []float32 {
	c := t.config
	rate := float64(c.SampleRate)
	out := make([]float32, n*c.Channels)

	t.mu.Lock()
	defer t.mu.Unlock()

	for i := 0; i < n; i++ {
		sec := float64(t.sampleIndex) / rate
		// 0.25Hz swell so the waveform overview is not flat
		env := 0.6 + 0.4*math.Sin(2*math.Pi*0.25*sec)
		v := math.Sin(2*math.Pi*c.Frequency*sec) + 0.5*math.Sin(2*math.Pi*c.Frequency*1.5*sec)
		sample := float32(c.Amplitude * env * v / 1.5)

		for ch := 0; ch < c.Channels; ch++ {
			out[i*c.Channels+ch] = sample
		}
		t.sampleIndex++
	}

	return out
}

func (t *Tone) frames(d time.Duration) int {
	return int(d * time.Duration(t.config.SampleRate) / time.Second)
}

// Close releases the generator
func (t *Tone) Close() error {
	t.mu.Lock()
	t.open = false
	t.mu.Unlock()
	return nil
}
