// ABOUTME: Streaming playback buffer between the generator and the output callback
// ABOUTME: Single-producer single-consumer chunk queue with lock-free pull and atomic clear
package playback

import (
	"sync/atomic"

	"github.com/Resonate-Protocol/resonate-tape/pkg/audio"
)

const (
	// Channels is the frame width Fill and PullFrame produce
	Channels = 2
	// ReportEvery is how many callback invocations pass between telemetry reports
	ReportEvery = 25
	// reportBacklog bounds the telemetry channel; reports beyond it are dropped
	reportBacklog = 8
)

type node struct {
	samples []float32
	next    atomic.Pointer[node]
}

// queue is one generation of buffer state. Clear replaces it wholesale.
type queue struct {
	// consumer side
	cur *node // node being read; starts as an empty sentinel
	off int

	// producer side
	tail *node

	queued    atomic.Int64
	underruns atomic.Int64
}

func newQueue() *queue {
	sentinel := &node{}
	return &queue{cur: sentinel, tail: sentinel}
}

// push links a node. Producer only.
func (q *queue) push(samples []float32) {
	n := &node{samples: samples}
	q.tail.next.Store(n)
	q.tail = n
	q.queued.Add(int64(len(samples)))
}

// next returns the next unread sample. Consumer only; caller has checked queued.
func (q *queue) next() float32 {
	for q.off >= len(q.cur.samples) {
		q.cur = q.cur.next.Load()
		q.off = 0
	}
	s := q.cur.samples[q.off]
	q.off++
	return s
}

// pullFrame returns one frame, or silence and an underrun when fewer than two samples are queued
func (q *queue) pullFrame() (l, r float32, ok bool) {
	if q.queued.Load() < 2 {
		q.underruns.Add(1)
		return 0, 0, false
	}
	l = q.next()
	r = q.next()
	q.queued.Add(-2)
	return l, r, true
}

// StreamBuffer carries generator chunks to the real-time output callback.
//
// Push and Clear belong to the control context (one producer). Fill and
// PullFrame belong to the real-time context (one consumer) and never lock,
// block, or allocate.
type StreamBuffer struct {
	state   atomic.Pointer[queue]
	reports chan MetricsReport
	ticks   int // consumer only
}

// NewStreamBuffer creates an empty buffer
func NewStreamBuffer() *StreamBuffer {
	b := &StreamBuffer{
		reports: make(chan MetricsReport, reportBacklog),
	}
	b.state.Store(newQueue())
	return b
}

// Push moves the chunk's samples into the queue, leaving the chunk empty.
// Empty chunks are ignored.
func (b *StreamBuffer) Push(c *audio.Chunk) {
	samples := c.Take()
	if len(samples) == 0 {
		return
	}
	b.state.Load().push(samples)
}

// Clear drops everything queued, including the partially read chunk, and
// resets the underrun counter.
func (b *StreamBuffer) Clear() {
	b.state.Store(newQueue())
}

// PullFrame produces one output frame. Each call counts as one callback invocation.
func (b *StreamBuffer) PullFrame() (l, r float32) {
	q := b.state.Load()
	l, r, _ = q.pullFrame()
	b.tick(q)
	return l, r
}

// Fill writes len(dst)/Channels frames into interleaved dst and returns how
// many carried real audio. Each call counts as one callback invocation.
func (b *StreamBuffer) Fill(dst []float32) int {
	q := b.state.Load()
	frames := len(dst) / Channels
	filled := 0

	for i := 0; i < frames; i++ {
		l, r, ok := q.pullFrame()
		dst[i*Channels] = l
		dst[i*Channels+1] = r
		if ok {
			filled++
		}
	}
	for i := frames * Channels; i < len(dst); i++ {
		dst[i] = 0
	}

	b.tick(q)
	return filled
}

func (b *StreamBuffer) tick(q *queue) {
	b.ticks++
	if b.ticks%ReportEvery != 0 {
		return
	}
	select {
	case b.reports <- MetricsReport{Queued: int(q.queued.Load()), Underruns: int(q.underruns.Load())}:
	default:
	}
}

// Reports delivers telemetry. Reports are dropped when the reader falls behind.
func (b *StreamBuffer) Reports() <-chan MetricsReport {
	return b.reports
}

// Queued returns interleaved samples not yet played
func (b *StreamBuffer) Queued() int {
	return int(b.state.Load().queued.Load())
}

// Underruns returns frames of silence emitted since the last Clear
func (b *StreamBuffer) Underruns() int {
	return int(b.state.Load().underruns.Load())
}

// Handle dispatches a control message. MetricsReport travels the other way
// and is ignored here.
func (b *StreamBuffer) Handle(m Message) {
	switch m := m.(type) {
	case Push:
		b.Push(m.Chunk)
	case Clear:
		b.Clear()
	case MetricsReport:
	}
}
