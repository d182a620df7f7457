// ABOUTME: Point-in-time view of the session for display
// ABOUTME: Combines buffer telemetry with history and timeline state
package session

import (
	"github.com/Resonate-Protocol/resonate-tape/internal/timeline"
	"github.com/Resonate-Protocol/resonate-tape/pkg/audio"
)

// Status is a snapshot of session state
type Status struct {
	ID         string
	Running    bool
	DeviceOpen bool
	SampleRate int

	// From the most recent buffer report
	BufferSeconds float64
	Queued        int
	Underruns     int

	HistorySeconds float64
	Cursor         float64
	Playing        bool
	Range          timeline.Range

	Volume int
	Muted  bool

	LowPassHz  int
	HighPassHz int
	// Level of the most recent output block
	Peak float32
	RMS  float32
}

// Snapshot returns the current status
func (s *Session) Snapshot() Status {
	s.statMu.RLock()
	report := s.lastReport
	s.statMu.RUnlock()

	rate := s.store.Format().SampleRate
	mixer := s.deck.Mixer()
	peak, rms := mixer.Level()

	return Status{
		ID:             s.ID(),
		Running:        s.Running(),
		DeviceOpen:     s.deck.Ready(),
		SampleRate:     rate,
		BufferSeconds:  report.Seconds(rate, audio.DefaultChannels),
		Queued:         report.Queued,
		Underruns:      report.Underruns,
		HistorySeconds: s.store.TotalDuration(),
		Cursor:         s.timeline.Cursor(),
		Playing:        s.timeline.IsPlaying(),
		Range:          s.timeline.Range(),
		Volume:         mixer.Volume(),
		Muted:          mixer.Muted(),
		LowPassHz:      mixer.LowPass(),
		HighPassHz:     mixer.HighPass(),
		Peak:           peak,
		RMS:            rms,
	}
}
