// ABOUTME: Oto-based audio output implementation
// ABOUTME: Feeds an oto player from a reader that pulls float32 frames from a Source
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Oto output implementation using oto library
type Oto struct {
	otoCtx     *oto.Context
	player     *oto.Player
	sampleRate int
	mu         sync.Mutex
}

// NewOto creates a new Oto output
func NewOto() *Oto {
	return &Oto{}
}

// Open initializes the output device
func (o *Oto) Open(sampleRate, channels int, src Source) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	// oto allows one context per process
	if o.otoCtx != nil {
		return fmt.Errorf("oto output already open at %dHz", o.sampleRate)
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   20 * time.Millisecond,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate

	o.player = ctx.NewPlayer(newSourceReader(src, channels))
	o.player.SetBufferSize(sampleRate * channels * 4 / 50)
	o.player.Play()

	log.Printf("Audio output initialized: %dHz, %d channels, float32 (oto)", sampleRate, channels)

	return nil
}

// SampleRate returns the device rate
func (o *Oto) SampleRate() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sampleRate
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		o.player.Pause()
		o.player.Close()
		o.player = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Printf("Warning: oto suspend error: %v", err)
		}
	}
	return nil
}

// sourceReader adapts a Source to the io.Reader oto pulls from.
// It never returns io.EOF; underruns are silence.
type sourceReader struct {
	src       Source
	frameSize int
	scratch   []float32
}

func newSourceReader(src Source, channels int) *sourceReader {
	return &sourceReader{
		src:       src,
		frameSize: channels * 4,
		scratch:   make([]float32, 4096),
	}
}

func (r *sourceReader) Read(p []byte) (int, error) {
	total := len(p) - len(p)%r.frameSize
	written := 0

	for written < total {
		n := min((total-written)/4, len(r.scratch))
		n -= n % (r.frameSize / 4)
		buf := r.scratch[:n]
		r.src.Fill(buf)

		for i, s := range buf {
			binary.LittleEndian.PutUint32(p[written+i*4:], math.Float32bits(s))
		}
		written += n * 4
	}
	return written, nil
}
