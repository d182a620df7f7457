// ABOUTME: Timeline over the session history: cursor, range selection, playback and export
// ABOUTME: Rebuilds float clips and WAV files from int16 history for any sub-range
package timeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/Resonate-Protocol/resonate-tape/internal/history"
	"github.com/Resonate-Protocol/resonate-tape/pkg/audio"
	"github.com/Resonate-Protocol/resonate-tape/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-tape/pkg/audio/output"
)

var (
	// ErrEmptyHistory is returned when there is no recorded audio to act on
	ErrEmptyHistory = errors.New("no recorded audio")
	// ErrNothingToPlay is returned by Play on an empty history
	ErrNothingToPlay = errors.New("no recorded audio to play")
	// ErrRangeTooShort is returned for ranges under MinRangeSeconds
	ErrRangeTooShort = fmt.Errorf("range shorter than %.1fs", MinRangeSeconds)
	// ErrOutputUnavailable is returned when playback needs a device that is missing or closed
	ErrOutputUnavailable = errors.New("audio output unavailable")
)

// Player plays history clips. Satisfied by *output.Deck.
type Player interface {
	PlayClip(c *output.Clip) error
	StopClip(c *output.Clip)
}

// Timeline tracks the review cursor and selection over a history store.
// All methods run in the control context; it is safe for concurrent use.
type Timeline struct {
	mu        sync.Mutex
	store     *history.Store
	player    Player
	cursor    float64
	rng       Range
	lastTotal float64

	clip      *output.Clip
	clipStart float64
}

// New creates a timeline over store. player may be nil until the device opens.
func New(store *history.Store, player Player) *Timeline {
	return &Timeline{store: store, player: player}
}

// SetPlayer attaches the output used for history playback
func (t *Timeline) SetPlayer(p Player) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.player = p
}

// Cursor returns the playhead in seconds
func (t *Timeline) Cursor() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refresh()
	return t.cursor
}

// IsPlaying reports whether a history clip is playing
func (t *Timeline) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refresh()
	return t.clip != nil
}

// Range returns the active selection
func (t *Timeline) Range() Range {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rng
}

// refresh advances the cursor from the clip's device position (must hold t.mu)
func (t *Timeline) refresh() {
	if t.clip == nil {
		return
	}
	rate := t.store.Format().SampleRate
	if rate > 0 {
		t.cursor = t.clipStart + float64(t.clip.FramesPlayed())/float64(rate)
	}
	if t.clip.Done() {
		t.clip = nil
	}
	t.cursor = clampSeconds(t.cursor, t.store.TotalDuration())
}

// Sync applies the range follow policy after history grows or is cleared.
// A range ending at (or near) the previous tail follows the new tail;
// a range the user pulled away from the tail stays put.
func (t *Timeline) Sync() Range {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := t.store.TotalDuration()
	switch {
	case total < t.lastTotal:
		t.stopLocked()
		t.rng = Range{}
		t.cursor = 0
	case total > t.lastTotal:
		if t.rng.End <= MinRangeSeconds || t.rng.End >= t.lastTotal-FollowThreshold {
			start := t.rng.Start
			if t.rng.End == 0 {
				start = 0
			}
			t.rng = Range{Start: start, End: total}
		}
	}
	t.lastTotal = total
	return t.rng
}

// Seek moves the cursor, clamped to the recording. A playing clip restarts
// from the new position with a hard cut.
func (t *Timeline) Seek(seconds float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refresh()
	t.cursor = clampSeconds(seconds, t.store.TotalDuration())
	if t.clip == nil {
		return nil
	}
	return t.playFrom(t.cursor)
}

// Play starts history playback from the cursor, replacing any playing clip.
// A cursor at the end rewinds to the start.
func (t *Timeline) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refresh()
	return t.playFrom(t.cursor)
}

// Stop ends history playback. Idempotent.
func (t *Timeline) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Toggle stops when playing, plays otherwise
func (t *Timeline) Toggle() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refresh()
	if t.clip != nil {
		t.stopLocked()
		return nil
	}
	return t.playFrom(t.cursor)
}

func (t *Timeline) stopLocked() {
	if t.clip == nil {
		return
	}
	t.refresh()
	if t.clip != nil && t.player != nil {
		t.player.StopClip(t.clip)
	}
	t.clip = nil
}

func (t *Timeline) playFrom(start float64) error {
	if t.player == nil {
		return ErrOutputUnavailable
	}
	if t.store.TotalSamples() == 0 {
		return ErrNothingToPlay
	}

	t.stopLocked()

	total := t.store.TotalDuration()
	if start >= total {
		start = 0
	}

	samples, err := t.build(Range{Start: start, End: total})
	if err != nil {
		return err
	}

	clip := output.NewClip(samples, t.store.Format().Channels)
	if err := t.player.PlayClip(clip); err != nil {
		return fmt.Errorf("%w: %w", ErrOutputUnavailable, err)
	}

	t.clip = clip
	t.clipStart = start
	t.cursor = start
	log.Printf("History playback from %.2fs (%d frames)", start, clip.TotalFrames())
	return nil
}

// SetRange replaces the selection. Bounds are clamped to the recording;
// ranges shorter than MinRangeSeconds are rejected without side effects.
func (t *Timeline) SetRange(start, end float64) (Range, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.store.TotalSamples() == 0 {
		return t.rng, ErrEmptyHistory
	}
	total := t.store.TotalDuration()
	r := Range{Start: clampSeconds(start, total), End: clampSeconds(end, total)}
	if r.Duration() < MinRangeSeconds {
		return t.rng, ErrRangeTooShort
	}
	t.rng = r
	return r, nil
}

// SetRangeStart moves the start handle, held at least MinRangeSeconds before the end
func (t *Timeline) SetRangeStart(seconds float64) (Range, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.store.TotalSamples() == 0 {
		return t.rng, ErrEmptyHistory
	}
	limit := t.rng.End - MinRangeSeconds
	if limit < 0 {
		return t.rng, ErrRangeTooShort
	}
	t.rng.Start = max(0, min(seconds, limit))
	return t.rng, nil
}

// SetRangeEnd moves the end handle, held at least MinRangeSeconds after the start
func (t *Timeline) SetRangeEnd(seconds float64) (Range, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.store.TotalSamples() == 0 {
		return t.rng, ErrEmptyHistory
	}
	total := t.store.TotalDuration()
	floor := t.rng.Start + MinRangeSeconds
	if floor > total+1e-9 {
		return t.rng, ErrRangeTooShort
	}
	t.rng.End = min(total, max(seconds, floor))
	return t.rng, nil
}

// BuildRange converts the history in r to one contiguous float buffer.
// Bounds are clamped to the recording, then truncated and aligned down to
// whole frames.
func (t *Timeline) BuildRange(r Range) ([]float32, error) {
	r, err := t.exportable(r)
	if err != nil {
		return nil, err
	}
	return t.build(r)
}

func (t *Timeline) build(r Range) ([]float32, error) {
	pcm, err := t.slice(r)
	if err != nil {
		return nil, err
	}
	return audio.Int16ToFloat(pcm), nil
}

// exportable clamps r to the recording and enforces MinRangeSeconds
func (t *Timeline) exportable(r Range) (Range, error) {
	if t.store.TotalSamples() == 0 {
		return r, ErrEmptyHistory
	}
	total := t.store.TotalDuration()
	r = Range{Start: clampSeconds(r.Start, total), End: clampSeconds(r.End, total)}
	if r.Duration() < MinRangeSeconds-1e-9 {
		return r, ErrRangeTooShort
	}
	return r, nil
}

func (t *Timeline) slice(r Range) ([]int16, error) {
	if t.store.TotalSamples() == 0 {
		return nil, ErrEmptyHistory
	}
	f := t.store.Format()
	lo := f.SampleIndex(r.Start)
	hi := f.SampleIndex(r.End)
	if hi <= lo {
		return nil, ErrRangeTooShort
	}
	return t.store.Slice(lo, hi), nil
}

// ExportRange encodes the history in r as a WAV file
func (t *Timeline) ExportRange(r Range) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteRange(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteRange streams the history in r to w as a WAV file
func (t *Timeline) WriteRange(w io.Writer, r Range) error {
	r, err := t.exportable(r)
	if err != nil {
		return err
	}
	pcm, err := t.slice(r)
	if err != nil {
		return err
	}
	f := t.store.Format()
	return encode.WriteWAV(w, [][]int16{pcm}, f.SampleRate, f.Channels)
}

// Selection returns the range an export covers: the active selection, or the
// whole recording when none is set. Fails like ExportRange would.
func (t *Timeline) Selection() (Range, error) {
	r := t.Range()
	if r.IsZero() {
		r = Range{End: t.store.TotalDuration()}
	}
	return t.exportable(r)
}

// Export encodes the active selection, or the whole recording when none is set
func (t *Timeline) Export() ([]byte, Range, error) {
	r, err := t.Selection()
	if err != nil {
		return nil, r, err
	}
	data, err := t.ExportRange(r)
	return data, r, err
}
