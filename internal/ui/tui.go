// ABOUTME: TUI initialization and the session surface it drives
// ABOUTME: Wraps the bubbletea program and its refresh tick
package ui

import (
	"context"
	"time"

	"github.com/Resonate-Protocol/resonate-tape/internal/session"
	"github.com/Resonate-Protocol/resonate-tape/internal/timeline"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	refreshInterval = 100 * time.Millisecond
	exportTimeout   = 2 * time.Minute

	barCount   = 52
	seekStep   = 1.0
	seekJump   = 5.0
	nudgeStep  = 0.1
	volumeStep = 5

	// cutoffs move geometrically, snapped to these steps
	filterRatio   = 1.25
	lowPassRound  = 100
	highPassRound = 10
	meterWidth    = 20
)

// Controller is what the TUI needs from a session
type Controller interface {
	Snapshot() session.Status
	Bars(n int) []float64
	Logs() []string

	Toggle() error
	Seek(seconds float64) error
	SeekBy(delta float64) error
	MarkRangeStart() (timeline.Range, error)
	MarkRangeEnd() (timeline.Range, error)
	NudgeRange(end bool, delta float64) (timeline.Range, error)

	SetVolume(volume int)
	SetMuted(muted bool)
	SetLowPass(hz int) int
	SetHighPass(hz int) int
	Spectrum(n int) []float64

	Export(ctx context.Context) (string, error)
	Restart() error
}

type tickMsg time.Time

type exportDoneMsg struct {
	location string
	err      error
}

// NewModel creates a new TUI model
func NewModel(ctrl Controller) Model {
	return Model{
		ctrl:   ctrl,
		volume: 100,
	}
}

// Run creates the TUI program. The caller runs it.
func Run(ctrl Controller) *tea.Program {
	return tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func exportCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()

		location, err := ctrl.Export(ctx)
		return exportDoneMsg{location: location, err: err}
	}
}
