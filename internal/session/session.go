// ABOUTME: Session orchestrator tying generator, history, playback buffer and output together
// ABOUTME: Owns ingest ordering, the telemetry loop, restart and WAV export
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/resonate-tape/internal/generator"
	"github.com/Resonate-Protocol/resonate-tape/internal/history"
	"github.com/Resonate-Protocol/resonate-tape/internal/metrics"
	"github.com/Resonate-Protocol/resonate-tape/internal/playback"
	"github.com/Resonate-Protocol/resonate-tape/internal/storage"
	"github.com/Resonate-Protocol/resonate-tape/internal/timeline"
	"github.com/Resonate-Protocol/resonate-tape/pkg/audio"
	"github.com/Resonate-Protocol/resonate-tape/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-tape/pkg/audio/resample"
	"github.com/google/uuid"
)

// MaxLogLines is how many debug messages the session keeps for display
const MaxLogLines = 50

var (
	ErrAlreadyRunning = errors.New("session already running")
	ErrNoSink         = errors.New("no export sink configured")
)

// Config holds session options
type Config struct {
	// DropSilent discards chunks whose peak is exactly zero
	DropSilent bool
	Sink       storage.Sink
	Metrics    *metrics.Metrics
}

// Session is one recording: a live stream played through the deck and
// retained in history for review.
type Session struct {
	config Config

	buffer   *playback.StreamBuffer
	deck     *output.Deck
	store    *history.Store
	timeline *timeline.Timeline

	// control state
	mu        sync.Mutex
	id        string
	cancel    context.CancelFunc
	done      chan struct{}
	resampler *resample.Resampler
	running   atomic.Bool

	// latest telemetry
	statMu     sync.RWMutex
	lastReport playback.MetricsReport

	logMu sync.Mutex
	logs  []string
}

// New creates a session playing through out
func New(out output.Output, config Config) *Session {
	buffer := playback.NewStreamBuffer()
	deck := output.NewDeck(out, buffer)
	store := history.New(audio.DefaultSampleRate, audio.DefaultChannels)

	return &Session{
		config:   config,
		buffer:   buffer,
		deck:     deck,
		store:    store,
		timeline: timeline.New(store, deck),
		id:       uuid.New().String(),
	}
}

// ID returns the session identifier used in export names
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Start opens gen and the output device and begins ingesting in the background.
// The session rate is the device rate; generator audio is resampled to it.
func (s *Session) Start(ctx context.Context, gen generator.Generator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyRunning
	}

	format, err := gen.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open generator: %w", err)
	}
	if format.Channels != audio.DefaultChannels {
		gen.Close()
		return fmt.Errorf("generator produces %d channels, need %d", format.Channels, audio.DefaultChannels)
	}

	rate, err := s.deck.Open(format.SampleRate, audio.DefaultChannels)
	if err != nil {
		gen.Close()
		return fmt.Errorf("%w: %w", timeline.ErrOutputUnavailable, err)
	}

	if s.store.TotalSamples() == 0 {
		s.store.SetSampleRate(rate)
	}
	sessionRate := s.store.Format().SampleRate

	s.resampler = resample.New(format.SampleRate, sessionRate, audio.DefaultChannels)
	if !s.resampler.Passthrough() {
		s.logf("Resampling generator %d Hz to %d Hz", format.SampleRate, sessionRate)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	go s.run(runCtx, gen, s.done)

	s.logf("Session %s started: %s %d Hz", s.id, format.Codec, sessionRate)
	return nil
}

func (s *Session) run(ctx context.Context, gen generator.Generator, done chan struct{}) {
	defer close(done)
	defer s.running.Store(false)
	defer gen.Close()

	err := gen.Stream(ctx, s.ingest)
	switch {
	case err == nil:
		s.logf("Generator finished")
	case errors.Is(err, context.Canceled):
	default:
		s.logf("Generator stopped: %v", err)
	}
}

// ingest records a chunk to history and then hands it to the playback buffer.
// Runs on the generator goroutine, the buffer's single producer.
func (s *Session) ingest(chunk *audio.Chunk) {
	if dropped := chunk.TrimToFrames(audio.DefaultChannels); dropped > 0 {
		s.logf("Trimmed %d trailing sample(s) from generator chunk", dropped)
	}
	if chunk.Len() == 0 {
		return
	}
	if s.config.DropSilent && audio.Peak(chunk.Samples()) == 0 {
		if s.config.Metrics != nil {
			s.config.Metrics.RecordSilentDrop()
		}
		return
	}

	if !s.resampler.Passthrough() {
		chunk = audio.NewChunk(s.resampler.Process(chunk.Take()))
		if chunk.Len() == 0 {
			return
		}
	}

	s.store.Append(audio.FloatToInt16(chunk.Samples()))
	s.buffer.Push(chunk)
	s.timeline.Sync()

	if s.config.Metrics != nil {
		s.config.Metrics.RecordChunk(s.store.TotalDuration())
	}
}

// Run consumes buffer telemetry until ctx ends
func (s *Session) Run(ctx context.Context) {
	reports := s.buffer.Reports()
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-reports:
			if s.config.Metrics != nil {
				s.config.Metrics.RecordReport(r.Seconds(s.store.Format().SampleRate, audio.DefaultChannels), r.Queued, r.Underruns)
			}

			s.statMu.Lock()
			s.lastReport = r
			s.statMu.Unlock()
		}
	}
}

// Stop ends ingest and drops queued live audio. History is kept for review.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.buffer.Clear()
	s.logf("Session %s stopped at %.2fs", s.id, s.store.TotalDuration())
}

// Restart stops ingest, clears history and the review state, and starts a
// new session id. The next Start records from scratch.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.timeline.Stop()
	s.store.Clear()
	s.timeline.Sync()
	s.id = uuid.New().String()

	s.statMu.Lock()
	s.lastReport = playback.MetricsReport{}
	s.statMu.Unlock()

	if s.config.Metrics != nil {
		s.config.Metrics.ResetSession()
	}
	s.logf("Session reset: %s", s.id)
}

// Done is closed when the generator loop exits
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Running reports whether the generator loop is active
func (s *Session) Running() bool {
	return s.running.Load()
}

// Export streams the selected range (or the whole recording) as WAV to the
// configured sink. Returns the sink location.
func (s *Session) Export(ctx context.Context) (string, error) {
	if s.config.Sink == nil {
		return "", ErrNoSink
	}

	r, err := s.timeline.Selection()
	if err != nil {
		s.recordExport(0, err)
		return "", err
	}

	pr, pw := io.Pipe()
	go func() {
		_ = pw.CloseWithError(s.timeline.WriteRange(pw, r))
	}()

	body := &countingReader{r: pr}
	name := fmt.Sprintf("resonate-tape-%s-%d.wav", s.ID(), time.Now().UnixMilli())
	location, err := s.config.Sink.Save(ctx, name, body)
	// unblocks the writer if the sink stopped reading early
	_ = pr.Close()

	s.recordExport(int(body.n), err)
	if err != nil {
		return "", fmt.Errorf("failed to save export: %w", err)
	}

	s.logf("Exported %s (%d bytes) to %s", r, body.n, location)
	return location, nil
}

// countingReader counts bytes handed to the sink
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (s *Session) recordExport(size int, err error) {
	if s.config.Metrics != nil {
		s.config.Metrics.RecordExport(size, err)
	}
	if err != nil {
		s.logf("Export failed: %v", err)
	}
}

// Seek moves the playhead, restarting history playback if active
func (s *Session) Seek(seconds float64) error {
	return s.timeline.Seek(seconds)
}

// SeekBy moves the playhead relative to its current position
func (s *Session) SeekBy(delta float64) error {
	return s.timeline.Seek(s.timeline.Cursor() + delta)
}

// Toggle starts or stops history playback
func (s *Session) Toggle() error {
	err := s.timeline.Toggle()
	if err != nil {
		s.logf("Playback: %v", err)
	}
	return err
}

// SetRange selects [start, end) for export
func (s *Session) SetRange(start, end float64) (timeline.Range, error) {
	return s.timeline.SetRange(start, end)
}

// MarkRangeStart moves the selection start to the playhead
func (s *Session) MarkRangeStart() (timeline.Range, error) {
	return s.timeline.SetRangeStart(s.timeline.Cursor())
}

// MarkRangeEnd moves the selection end to the playhead
func (s *Session) MarkRangeEnd() (timeline.Range, error) {
	return s.timeline.SetRangeEnd(s.timeline.Cursor())
}

// NudgeRange moves one range handle by delta seconds
func (s *Session) NudgeRange(end bool, delta float64) (timeline.Range, error) {
	r := s.timeline.Range()
	if end {
		return s.timeline.SetRangeEnd(r.End + delta)
	}
	return s.timeline.SetRangeStart(r.Start + delta)
}

// SetVolume sets the output volume (0-100)
func (s *Session) SetVolume(volume int) {
	s.deck.SetVolume(volume)
}

// SetMuted sets output mute
func (s *Session) SetMuted(muted bool) {
	s.deck.SetMuted(muted)
}

// SetLowPass sets the live low-pass cutoff in Hz. Returns the clamped value.
func (s *Session) SetLowPass(hz int) int {
	return s.deck.SetLowPass(hz)
}

// SetHighPass sets the live high-pass cutoff in Hz. Returns the clamped value.
func (s *Session) SetHighPass(hz int) int {
	return s.deck.SetHighPass(hz)
}

// Spectrum returns n band magnitudes of the recent output
func (s *Session) Spectrum(n int) []float64 {
	return s.deck.Mixer().Spectrum(n)
}

// Bars returns the waveform overview for display
func (s *Session) Bars(n int) []float64 {
	return s.store.DownsampleAmplitudes(n)
}

// Close stops everything and releases the device
func (s *Session) Close() error {
	s.Stop()
	s.timeline.Stop()
	return s.deck.Close()
}

func (s *Session) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Print(msg)

	line := time.Now().Format("15:04:05") + " " + msg

	s.logMu.Lock()
	defer s.logMu.Unlock()
	s.logs = append(s.logs, line)
	if len(s.logs) > MaxLogLines {
		s.logs = append(s.logs[:0], s.logs[len(s.logs)-MaxLogLines:]...)
	}
}

// Logs returns the recent debug messages, oldest first
func (s *Session) Logs() []string {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	out := make([]string, len(s.logs))
	copy(out, s.logs)
	return out
}
