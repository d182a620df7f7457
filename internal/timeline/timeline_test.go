// ABOUTME: Tests for the history timeline
// ABOUTME: Covers follow policy, range validation, seek/play lifecycle and export
package timeline

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Resonate-Protocol/resonate-tape/internal/history"
	"github.com/Resonate-Protocol/resonate-tape/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-tape/pkg/audio/output"
)

// fakePlayer records clips instead of playing them
type fakePlayer struct {
	playing *output.Clip
	started []*output.Clip
	stopped []*output.Clip
	err     error
}

func (p *fakePlayer) PlayClip(c *output.Clip) error {
	if p.err != nil {
		return p.err
	}
	p.playing = c
	p.started = append(p.started, c)
	return nil
}

func (p *fakePlayer) StopClip(c *output.Clip) {
	c.Stop()
	if p.playing == c {
		p.playing = nil
	}
	p.stopped = append(p.stopped, c)
}

// rate 10Hz stereo keeps the arithmetic readable: 20 samples per second
const testRate = 10

func appendSeconds(s *history.Store, seconds float64) {
	n := int(math.Round(seconds * testRate * 2))
	chunk := make([]int16, n)
	base := s.TotalSamples()
	for i := range chunk {
		chunk[i] = int16(base + i)
	}
	s.Append(chunk)
}

func newTestTimeline() (*Timeline, *history.Store, *fakePlayer) {
	store := history.New(testRate, 2)
	player := &fakePlayer{}
	return New(store, player), store, player
}

func TestSyncFollowsFromEmpty(t *testing.T) {
	tl, store, _ := newTestTimeline()

	appendSeconds(store, 1)
	if r := tl.Sync(); r != (Range{0, 1}) {
		t.Errorf("expected 0-1s, got %v", r)
	}

	appendSeconds(store, 2)
	if r := tl.Sync(); r != (Range{0, 3}) {
		t.Errorf("expected range to follow to 3s, got %v", r)
	}
}

func TestSyncFollowScenario(t *testing.T) {
	tests := []struct {
		name    string
		userEnd float64
		wantEnd float64
	}{
		{"end at tail follows", 10.0, 10.4},
		{"end near tail follows", 9.6, 10.4},
		{"end pulled back stays", 5.0, 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, store, _ := newTestTimeline()
			appendSeconds(store, 10)
			tl.Sync()

			if _, err := tl.SetRange(1, tt.userEnd); err != nil {
				t.Fatalf("SetRange failed: %v", err)
			}

			appendSeconds(store, 0.4)
			r := tl.Sync()
			if math.Abs(r.End-tt.wantEnd) > 1e-9 {
				t.Errorf("expected end %v, got %v", tt.wantEnd, r.End)
			}
			if r.Start != 1 {
				t.Errorf("expected start kept at 1, got %v", r.Start)
			}
		})
	}
}

func TestSyncResetsAfterClear(t *testing.T) {
	tl, store, player := newTestTimeline()
	appendSeconds(store, 5)
	tl.Sync()
	if err := tl.Seek(2); err != nil {
		t.Fatal(err)
	}
	if err := tl.Play(); err != nil {
		t.Fatal(err)
	}

	store.Clear()
	r := tl.Sync()

	if !r.IsZero() {
		t.Errorf("expected zero range after clear, got %v", r)
	}
	if tl.Cursor() != 0 {
		t.Errorf("expected cursor reset, got %v", tl.Cursor())
	}
	if tl.IsPlaying() || len(player.stopped) != 1 {
		t.Error("expected playback stopped after clear")
	}
}

func TestSetRangeValidation(t *testing.T) {
	tl, store, _ := newTestTimeline()

	if _, err := tl.SetRange(0, 1); !errors.Is(err, ErrEmptyHistory) {
		t.Errorf("expected ErrEmptyHistory, got %v", err)
	}

	appendSeconds(store, 3)
	tl.Sync()

	tests := []struct {
		name       string
		start, end float64
		want       Range
		wantErr    error
	}{
		{"valid", 0.5, 2, Range{0.5, 2}, nil},
		{"clamped", -1, 9, Range{0, 3}, nil},
		{"too short", 1, 1.05, Range{0, 3}, ErrRangeTooShort},
		{"inverted", 2, 1, Range{0, 3}, ErrRangeTooShort},
		{"collapses at tail", 5, 9, Range{0, 3}, ErrRangeTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl.SetRange(0, 3)
			r, err := tl.SetRange(tt.start, tt.end)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if r != tt.want || tl.Range() != tt.want {
				t.Errorf("expected %v, got %v (stored %v)", tt.want, r, tl.Range())
			}
		})
	}
}

func TestRangeHandles(t *testing.T) {
	tl, store, _ := newTestTimeline()
	appendSeconds(store, 3)
	tl.Sync()

	r, err := tl.SetRangeStart(2.95)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r.Start-2.9) > 1e-9 {
		t.Errorf("expected start held at 2.9, got %v", r.Start)
	}

	r, err = tl.SetRangeEnd(0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r.End-3) > 1e-9 {
		t.Errorf("expected end held at 3, got %v", r.End)
	}

	tl.SetRangeStart(0)
	r, _ = tl.SetRangeEnd(1.5)
	if r != (Range{0, 1.5}) {
		t.Errorf("expected 0-1.5s, got %v", r)
	}
}

func TestSeekClamps(t *testing.T) {
	tl, store, player := newTestTimeline()
	appendSeconds(store, 2)

	if err := tl.Seek(-3); err != nil {
		t.Fatal(err)
	}
	if tl.Cursor() != 0 {
		t.Errorf("expected 0, got %v", tl.Cursor())
	}

	if err := tl.Seek(99); err != nil {
		t.Fatal(err)
	}
	if tl.Cursor() != 2 {
		t.Errorf("expected 2, got %v", tl.Cursor())
	}
	if len(player.started) != 0 {
		t.Error("seek while stopped must not start playback")
	}
}

func TestPlayErrors(t *testing.T) {
	store := history.New(testRate, 2)

	noDevice := New(store, nil)
	if err := noDevice.Play(); !errors.Is(err, ErrOutputUnavailable) {
		t.Errorf("expected ErrOutputUnavailable, got %v", err)
	}

	tl := New(store, &fakePlayer{})
	if err := tl.Play(); !errors.Is(err, ErrNothingToPlay) {
		t.Errorf("expected ErrNothingToPlay, got %v", err)
	}

	appendSeconds(store, 1)
	closed := New(store, &fakePlayer{err: output.ErrNotReady})
	err := closed.Play()
	if !errors.Is(err, ErrOutputUnavailable) || !errors.Is(err, output.ErrNotReady) {
		t.Errorf("expected wrapped ErrNotReady, got %v", err)
	}
	if closed.IsPlaying() {
		t.Error("failed play must not mark playing")
	}
}

func TestPlayFromCursorAndSeekRestarts(t *testing.T) {
	tl, store, player := newTestTimeline()
	appendSeconds(store, 2)

	tl.Seek(1)
	if err := tl.Play(); err != nil {
		t.Fatal(err)
	}

	first := player.playing
	if first == nil || first.TotalFrames() != 10 {
		t.Fatalf("expected a 1s clip (10 frames), got %v", first)
	}
	if !tl.IsPlaying() {
		t.Error("expected playing")
	}

	if err := tl.Seek(0.5); err != nil {
		t.Fatal(err)
	}
	if !first.Done() {
		t.Error("expected previous clip stopped on seek")
	}
	if player.playing == first || player.playing.TotalFrames() != 15 {
		t.Errorf("expected a fresh clip from 0.5s")
	}

	tl.Stop()
	tl.Stop()
	if tl.IsPlaying() {
		t.Error("expected stopped")
	}
}

func TestPlayAtEndRewinds(t *testing.T) {
	tl, store, player := newTestTimeline()
	appendSeconds(store, 1)
	tl.Seek(1)

	if err := tl.Play(); err != nil {
		t.Fatal(err)
	}
	if player.playing.TotalFrames() != 10 || tl.Cursor() != 0 {
		t.Errorf("expected full clip from 0, got %d frames at %v", player.playing.TotalFrames(), tl.Cursor())
	}
}

func TestToggle(t *testing.T) {
	tl, store, player := newTestTimeline()
	appendSeconds(store, 1)

	if err := tl.Toggle(); err != nil || !tl.IsPlaying() {
		t.Fatalf("expected playing after toggle, err=%v", err)
	}
	if err := tl.Toggle(); err != nil || tl.IsPlaying() {
		t.Fatalf("expected stopped after second toggle, err=%v", err)
	}
	if len(player.stopped) != 1 {
		t.Errorf("expected one stop, got %d", len(player.stopped))
	}
}

func TestCursorFollowsClipToEnd(t *testing.T) {
	tl, store, _ := newTestTimeline()
	appendSeconds(store, 1)

	mixer := output.NewMixer(nil)
	tl.SetPlayer(&mixerPlayer{mixer})
	if err := tl.Play(); err != nil {
		t.Fatal(err)
	}

	// Device consumes half a second
	mixer.Fill(make([]float32, 10))
	if c := tl.Cursor(); math.Abs(c-0.5) > 1e-9 {
		t.Errorf("expected cursor 0.5, got %v", c)
	}

	mixer.Fill(make([]float32, 20))
	if tl.IsPlaying() {
		t.Error("expected playback to end with the clip")
	}
	if c := tl.Cursor(); c != 1 {
		t.Errorf("expected cursor at end, got %v", c)
	}
}

type mixerPlayer struct{ m *output.Mixer }

func (p *mixerPlayer) PlayClip(c *output.Clip) error { p.m.SetClip(c); return nil }
func (p *mixerPlayer) StopClip(c *output.Clip)       { p.m.StopClip(c) }

func TestBuildRangeAlignsToFrames(t *testing.T) {
	tl, store, _ := newTestTimeline()
	appendSeconds(store, 1) // samples 0..19
	appendSeconds(store, 1) // samples 20..39

	// 0.25s -> index 5 -> aligned to 4; 1.25s -> 25 -> 24
	got, err := tl.BuildRange(Range{0.25, 1.25})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 20 {
		t.Fatalf("expected 20 samples, got %d", len(got))
	}
	if got[0] != 4.0/32768 || got[19] != 23.0/32768 {
		t.Errorf("unexpected bounds %v .. %v", got[0]*32768, got[19]*32768)
	}
}

func TestBuildRangeEmpty(t *testing.T) {
	tl, _, _ := newTestTimeline()
	if _, err := tl.BuildRange(Range{0, 1}); !errors.Is(err, ErrEmptyHistory) {
		t.Errorf("expected ErrEmptyHistory, got %v", err)
	}
}

func TestExportRange(t *testing.T) {
	tl, store, _ := newTestTimeline()

	if data, err := tl.ExportRange(Range{0, 1}); !errors.Is(err, ErrEmptyHistory) || data != nil {
		t.Fatalf("expected no WAV on empty history, got %d bytes, %v", len(data), err)
	}

	appendSeconds(store, 2)

	data, err := tl.ExportRange(Range{0.5, 1.5})
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != encode.WAVHeaderSize+20*2 {
		t.Fatalf("expected %d bytes, got %d", encode.WAVHeaderSize+40, len(data))
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != testRate {
		t.Errorf("expected rate %d, got %d", testRate, rate)
	}
	if first := int16(binary.LittleEndian.Uint16(data[encode.WAVHeaderSize:])); first != 10 {
		t.Errorf("expected first exported sample 10, got %d", first)
	}
}

func TestExportDefaultsToWholeRecording(t *testing.T) {
	tl, store, _ := newTestTimeline()
	appendSeconds(store, 1)

	data, r, err := tl.Export()
	if err != nil {
		t.Fatal(err)
	}
	if r != (Range{0, 1}) {
		t.Errorf("expected whole range, got %v", r)
	}
	if len(data) != encode.WAVHeaderSize+40 {
		t.Errorf("expected full export, got %d bytes", len(data))
	}
}

func TestExportRangeTooShort(t *testing.T) {
	tests := []struct {
		name string
		r    Range
	}{
		{"20ms range", Range{0.5, 0.52}},
		{"reversed", Range{1.5, 0.5}},
		{"clamped past the end", Range{1.95, 5}},
		{"before the start", Range{-3, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, store, _ := newTestTimeline()
			appendSeconds(store, 2)

			if data, err := tl.ExportRange(tt.r); !errors.Is(err, ErrRangeTooShort) || data != nil {
				t.Errorf("expected ErrRangeTooShort, got %d bytes, %v", len(data), err)
			}
			if _, err := tl.BuildRange(tt.r); !errors.Is(err, ErrRangeTooShort) {
				t.Errorf("expected BuildRange ErrRangeTooShort, got %v", err)
			}
		})
	}
}

func TestExportShortRecording(t *testing.T) {
	// 10ms of stereo audio at 1kHz
	store := history.New(1000, 2)
	store.Append(make([]int16, 20))
	tl := New(store, &fakePlayer{})

	if _, _, err := tl.Export(); !errors.Is(err, ErrRangeTooShort) {
		t.Errorf("expected ErrRangeTooShort, got %v", err)
	}
	if _, err := tl.Selection(); !errors.Is(err, ErrRangeTooShort) {
		t.Errorf("expected Selection ErrRangeTooShort, got %v", err)
	}

	// Playback has no minimum
	if err := tl.Play(); err != nil {
		t.Errorf("expected short recording to play, got %v", err)
	}
}

func TestWriteRangeMatchesExportRange(t *testing.T) {
	tl, store, _ := newTestTimeline()
	appendSeconds(store, 2)

	r := Range{0.25, 1.75}
	var buf bytes.Buffer
	if err := tl.WriteRange(&buf, r); err != nil {
		t.Fatal(err)
	}

	data, err := tl.ExportRange(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Error("streamed and buffered exports differ")
	}
}

func TestSelectionUsesActiveRange(t *testing.T) {
	tl, store, _ := newTestTimeline()
	appendSeconds(store, 3)

	if r, err := tl.Selection(); err != nil || r != (Range{0, 3}) {
		t.Errorf("expected whole recording, got %v (%v)", r, err)
	}

	if _, err := tl.SetRange(1, 2); err != nil {
		t.Fatal(err)
	}
	if r, err := tl.Selection(); err != nil || r != (Range{1, 2}) {
		t.Errorf("expected active range, got %v (%v)", r, err)
	}
}
