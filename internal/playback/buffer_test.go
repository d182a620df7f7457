// ABOUTME: Tests for the streaming playback buffer
// ABOUTME: Covers ordering, underruns, clear, telemetry cadence and SPSC concurrency
package playback

import (
	"sync"
	"testing"

	"github.com/Resonate-Protocol/resonate-tape/pkg/audio"
)

func pushSamples(b *StreamBuffer, samples ...float32) {
	b.Push(audio.NewChunk(samples))
}

func TestPushMovesChunk(t *testing.T) {
	b := NewStreamBuffer()
	c := audio.NewChunk([]float32{0.1, 0.2, 0.3, 0.4})

	b.Push(c)

	if c.Len() != 0 {
		t.Errorf("expected chunk emptied by Push, got %d samples", c.Len())
	}
	if b.Queued() != 4 {
		t.Errorf("expected 4 queued, got %d", b.Queued())
	}
}

func TestPushEmptyChunkIgnored(t *testing.T) {
	b := NewStreamBuffer()
	b.Push(audio.NewChunk(nil))
	b.Push(nil)

	if b.Queued() != 0 {
		t.Errorf("expected 0 queued, got %d", b.Queued())
	}
}

func TestPullFrameInOrderAcrossChunks(t *testing.T) {
	b := NewStreamBuffer()
	// Odd-length chunks force frames to straddle chunk boundaries
	pushSamples(b, 1, 2, 3)
	pushSamples(b, 4, 5)
	pushSamples(b, 6)

	want := [][2]float32{{1, 2}, {3, 4}, {5, 6}}
	for i, w := range want {
		l, r := b.PullFrame()
		if l != w[0] || r != w[1] {
			t.Errorf("frame %d: got (%v, %v), want (%v, %v)", i, l, r, w[0], w[1])
		}
	}

	if b.Queued() != 0 {
		t.Errorf("expected 0 queued, got %d", b.Queued())
	}
	if b.Underruns() != 0 {
		t.Errorf("expected no underruns, got %d", b.Underruns())
	}
}

func TestUnderrunOnEmptyAndSingleSample(t *testing.T) {
	b := NewStreamBuffer()

	l, r := b.PullFrame()
	if l != 0 || r != 0 {
		t.Errorf("expected silence, got (%v, %v)", l, r)
	}

	// One sample is not a frame
	pushSamples(b, 0.5)
	b.PullFrame()

	if b.Underruns() != 2 {
		t.Errorf("expected 2 underruns, got %d", b.Underruns())
	}
	if b.Queued() != 1 {
		t.Errorf("expected lone sample to stay queued, got %d", b.Queued())
	}

	pushSamples(b, 0.25)
	l, r = b.PullFrame()
	if l != 0.5 || r != 0.25 {
		t.Errorf("expected (0.5, 0.25), got (%v, %v)", l, r)
	}
}

func TestFillCountsUnderrunsPerFrame(t *testing.T) {
	b := NewStreamBuffer()
	pushSamples(b, 1, 1, 2, 2)

	dst := make([]float32, 10)
	for i := range dst {
		dst[i] = 9
	}

	if filled := b.Fill(dst); filled != 2 {
		t.Errorf("expected 2 frames filled, got %d", filled)
	}

	want := []float32{1, 1, 2, 2, 0, 0, 0, 0, 0, 0}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst = %v, want %v", dst, want)
		}
	}
	if b.Underruns() != 3 {
		t.Errorf("expected 3 underruns, got %d", b.Underruns())
	}
}

func TestQueuedInvariant(t *testing.T) {
	b := NewStreamBuffer()
	sizes := []int{7, 1, 12, 3}
	total := 0
	for _, n := range sizes {
		pushSamples(b, make([]float32, n)...)
		total += n
	}

	dst := make([]float32, 6)
	for total >= 2 {
		if b.Queued() != total {
			t.Fatalf("queued = %d, want %d", b.Queued(), total)
		}
		frames := b.Fill(dst)
		total -= frames * 2
	}
	if b.Queued() != total {
		t.Errorf("final queued = %d, want %d", b.Queued(), total)
	}
}

func TestClearResetsEverything(t *testing.T) {
	b := NewStreamBuffer()
	pushSamples(b, 1, 2, 3, 4, 5)
	b.PullFrame() // partially read chunk
	b.Fill(make([]float32, 8))

	b.Clear()

	if b.Queued() != 0 || b.Underruns() != 0 {
		t.Errorf("expected cleared state, got queued=%d underruns=%d", b.Queued(), b.Underruns())
	}

	pushSamples(b, 7, 8)
	l, r := b.PullFrame()
	if l != 7 || r != 8 {
		t.Errorf("expected (7, 8) after clear, got (%v, %v)", l, r)
	}
}

func TestReportsEveryNthInvocation(t *testing.T) {
	b := NewStreamBuffer()
	pushSamples(b, make([]float32, 100)...)

	dst := make([]float32, 2)
	for i := 0; i < ReportEvery-1; i++ {
		b.Fill(dst)
	}
	select {
	case r := <-b.Reports():
		t.Fatalf("unexpected early report %+v", r)
	default:
	}

	b.Fill(dst)
	select {
	case r := <-b.Reports():
		if r.Queued != 100-2*ReportEvery {
			t.Errorf("expected queued %d, got %d", 100-2*ReportEvery, r.Queued)
		}
		if r.Underruns != 0 {
			t.Errorf("expected 0 underruns, got %d", r.Underruns)
		}
	default:
		t.Fatal("expected a report after ReportEvery invocations")
	}

	// PullFrame counts as an invocation too
	for i := 0; i < ReportEvery; i++ {
		b.PullFrame()
	}
	select {
	case <-b.Reports():
	default:
		t.Fatal("expected a report after PullFrame invocations")
	}
}

func TestReportsDropWhenUnread(t *testing.T) {
	b := NewStreamBuffer()
	dst := make([]float32, 2)

	// Far more reports than the channel holds; Fill must never block
	for i := 0; i < ReportEvery*reportBacklog*4; i++ {
		b.Fill(dst)
	}

	if got := len(b.Reports()); got != reportBacklog {
		t.Errorf("expected %d buffered reports, got %d", reportBacklog, got)
	}
}

func TestHandleDispatch(t *testing.T) {
	b := NewStreamBuffer()

	b.Handle(Push{Chunk: audio.NewChunk([]float32{1, 2})})
	if b.Queued() != 2 {
		t.Fatalf("expected 2 queued after Push message, got %d", b.Queued())
	}

	b.Handle(MetricsReport{Queued: 99})
	if b.Queued() != 2 {
		t.Errorf("MetricsReport must not change state")
	}

	b.Handle(Clear{})
	if b.Queued() != 0 {
		t.Errorf("expected 0 queued after Clear message, got %d", b.Queued())
	}
}

func TestMetricsReportSeconds(t *testing.T) {
	tests := []struct {
		queued   int
		rate     int
		channels int
		want     float64
	}{
		{96000, 48000, 2, 1.0},
		{48000, 48000, 2, 0.5},
		{0, 48000, 2, 0},
		{100, 0, 2, 0},
	}
	for _, tt := range tests {
		got := MetricsReport{Queued: tt.queued}.Seconds(tt.rate, tt.channels)
		if got != tt.want {
			t.Errorf("Seconds(%d @ %d x %d) = %v, want %v", tt.queued, tt.rate, tt.channels, got, tt.want)
		}
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	b := NewStreamBuffer()
	const chunks = 500

	total := 0
	for i := 0; i < chunks; i++ {
		total += 1 + i%7
	}
	frames := total / 2

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Start at 1 so a silent frame is distinguishable from audio
		next := float32(1)
		for i := 0; i < chunks; i++ {
			// Vary sizes, including odd ones
			s := make([]float32, 1+i%7)
			for j := range s {
				s[j] = next
				next++
			}
			pushSamples(b, s...)
		}
	}()

	expect := float32(1)
	for got := 0; got < frames; {
		l, r := b.PullFrame()
		if l == 0 && r == 0 {
			continue
		}
		if l != expect || r != expect+1 {
			t.Fatalf("frame (%v, %v) out of order, want (%v, %v)", l, r, expect, expect+1)
		}
		expect += 2
		got++
	}
	wg.Wait()

	if b.Queued() != total-frames*2 {
		t.Errorf("expected %d left over, got %d", total-frames*2, b.Queued())
	}
}

func TestUnderrunScenario(t *testing.T) {
	b := NewStreamBuffer()
	for _, n := range []int{100, 200, 50} {
		pushSamples(b, make([]float32, n)...)
	}
	if b.Queued() != 350 {
		t.Fatalf("expected 350 queued, got %d", b.Queued())
	}

	filled := b.Fill(make([]float32, 400))

	if filled != 175 {
		t.Errorf("expected 175 frames filled, got %d", filled)
	}
	if b.Underruns() != 25 {
		t.Errorf("expected 25 underruns, got %d", b.Underruns())
	}
	if b.Queued() != 0 {
		t.Errorf("expected 0 queued, got %d", b.Queued())
	}
}
