// ABOUTME: Null audio output that pulls from the Source on a wall-clock ticker
// ABOUTME: Used headless and in tests; keeps the real-time contract without a device
package output

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// NullPeriod is how much audio the Null output pulls per tick
const NullPeriod = 10 * time.Millisecond

// Null discards audio but consumes it at the real sample rate
type Null struct {
	ctx        context.Context
	cancel     context.CancelFunc
	sampleRate int
	done       chan struct{}
	mu         sync.Mutex
}

// NewNull creates a new Null output
func NewNull() *Null {
	return &Null{}
}

// Open starts the pull loop
func (n *Null) Open(sampleRate, channels int, src Source) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cancel != nil {
		return fmt.Errorf("null output already open at %dHz", n.sampleRate)
	}
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid null output format: %dHz, %d channels", sampleRate, channels)
	}

	n.ctx, n.cancel = context.WithCancel(context.Background())
	n.sampleRate = sampleRate
	n.done = make(chan struct{})

	buf := make([]float32, int(time.Duration(sampleRate)*NullPeriod/time.Second)*channels)
	go n.run(src, buf)

	return nil
}

func (n *Null) run(src Source, buf []float32) {
	defer close(n.done)

	ticker := time.NewTicker(NullPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			src.Fill(buf)
		}
	}
}

// SampleRate returns the configured rate
func (n *Null) SampleRate() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sampleRate
}

// Close stops the pull loop and waits for it to exit
func (n *Null) Close() error {
	n.mu.Lock()
	cancel, done := n.cancel, n.done
	n.cancel = nil
	n.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}
