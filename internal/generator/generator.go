// ABOUTME: Generator source interface and real-time pacing helper
// ABOUTME: Generators produce move-only float chunks at their own irregular cadence
package generator

import (
	"context"
	"errors"
	"time"

	"github.com/Resonate-Protocol/resonate-tape/pkg/audio"
)

var ErrNotOpen = errors.New("generator not open")

// Generator is an asynchronous producer of interleaved float PCM.
//
// Open negotiates the stream and returns its format. Stream blocks, calling
// emit once per chunk from a single goroutine, until the source ends (nil),
// ctx is cancelled (ctx.Err()) or the source fails.
type Generator interface {
	Open(ctx context.Context) (audio.Format, error)
	Stream(ctx context.Context, emit func(*audio.Chunk)) error
	Close() error
}

// pacer keeps a producer at most lead ahead of the wall clock
type pacer struct {
	start time.Time
	lead  time.Duration
}

func newPacer(lead time.Duration) *pacer {
	return &pacer{start: time.Now(), lead: lead}
}

// wait blocks until produced audio is no more than lead ahead, plus extra
func (p *pacer) wait(ctx context.Context, produced, extra time.Duration) error {
	delay := time.Until(p.start.Add(produced - p.lead + extra))
	return sleep(ctx, delay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// framesDuration converts a frame count to wall time
func framesDuration(frames, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
