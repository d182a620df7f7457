// ABOUTME: Bubbletea model for the tape TUI
// ABOUTME: Defines display state, key handling and rendering
package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/Resonate-Protocol/resonate-tape/internal/session"
	"github.com/Resonate-Protocol/resonate-tape/internal/timeline"
	"github.com/Resonate-Protocol/resonate-tape/internal/version"
	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	ctrl Controller

	// Latest session state
	status   session.Status
	bars     []float64
	spectrum []float64
	logs     []string

	// Output
	volume int
	muted  bool

	// Result of the last action
	message   string
	exporting bool

	showDebug bool

	// Dimensions
	width  int
	height int
}

// StatusMsg carries a session snapshot into the TUI
type StatusMsg struct {
	Status   session.Status
	Bars     []float64
	Spectrum []float64
	Logs     []string
}

// Init starts the refresh tick
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.applyStatus(m.poll())
		return m, tick()
	case StatusMsg:
		m.applyStatus(msg)
	case exportDoneMsg:
		m.exporting = false
		if msg.err != nil {
			m.message = fmt.Sprintf("Export failed: %v", msg.err)
		} else {
			m.message = "Exported " + msg.location
		}
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderBuffer()
	s += m.renderTimeline()
	s += m.renderOutput()
	s += m.renderControls()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders session and device status
func (m Model) renderHeader() string {
	state := "Stopped"
	if m.status.Running {
		state = "Recording"
	}

	device := "No device"
	if m.status.DeviceOpen {
		device = fmt.Sprintf("%d Hz stereo", m.status.SampleRate)
	}

	title := fmt.Sprintf("─ %s %s ", version.Product, version.Version)
	return fmt.Sprintf("┌%s┐\n"+
		"│ Session: %-43s │\n"+
		"│ State:   %-43s │\n"+
		"│ Device:  %-43s │\n"+
		"├──────────────────────────────────────────────────────┤\n",
		title+strings.Repeat("─", max(0, 54-len([]rune(title)))),
		truncate(m.status.ID, 43), state, device)
}

// renderBuffer renders live buffer health
func (m Model) renderBuffer() string {
	return fmt.Sprintf("│ Buffer:  %-43s │\n"+
		"│ Underruns: %-41d │\n",
		fmt.Sprintf("%.2fs (%d samples)", m.status.BufferSeconds, m.status.Queued),
		m.status.Underruns)
}

// renderTimeline renders the waveform, playhead and range
func (m Model) renderTimeline() string {
	play := "Paused"
	if m.status.Playing {
		play = "Playing"
	}

	rangeText := "none"
	if !m.status.Range.IsZero() {
		rangeText = m.status.Range.String()
	}

	return fmt.Sprintf("│                                                      │\n"+
		"│ %-52s │\n"+
		"│ %-52s │\n"+
		"│ History:  %-42s │\n"+
		"│ Playhead: %-42s │\n"+
		"│ Range:    %-42s │\n",
		renderWaveform(m.bars, barCount),
		renderMarkers(barCount, m.status.HistorySeconds, m.status.Cursor, m.status.Range),
		fmt.Sprintf("%.2fs", m.status.HistorySeconds),
		fmt.Sprintf("%.2fs %s", m.status.Cursor, play),
		rangeText)
}

// renderOutput renders the filters, output level and spectrum
func (m Model) renderOutput() string {
	filters := fmt.Sprintf("LP %d Hz  HP %d Hz", m.status.LowPassHz, m.status.HighPassHz)
	level := fmt.Sprintf("[%s] %s peak", renderMeter(m.status.Peak, meterWidth), formatDB(m.status.Peak))
	rms := fmt.Sprintf("[%s] %s rms", renderMeter(m.status.RMS, meterWidth), formatDB(m.status.RMS))

	return fmt.Sprintf("│                                                      │\n"+
		"│ Filters:  %-42s │\n"+
		"│ Level:    %-42s │\n"+
		"│           %-42s │\n"+
		"│ %-52s │\n",
		filters, level, rms, renderSpectrum(m.spectrum, barCount))
}

// renderControls renders volume and the last action result
func (m Model) renderControls() string {
	muteText := ""
	if m.muted {
		muteText = " (muted)"
	}

	volume := fmt.Sprintf("[%s] %d%%%s", renderBar(m.volume, 100, 10), m.volume, muteText)

	return fmt.Sprintf("│ Volume:   %-42s │\n"+
		"├──────────────────────────────────────────────────────┤\n"+
		"│ %-52s │\n",
		volume, truncate(m.message, 52))
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ space:Play  ←/→:Seek  [ ]:Mark  { } < >:Nudge        │
│ e:Export  r:Restart  ↑/↓:Volume  m:Mute  d:Debug  q  │
│ l/L:Low-pass  h/H:High-pass                          │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders the recent session log
func (m Model) renderDebug() string {
	s := "│ DEBUG:                                               │\n"

	lines := m.logs
	if len(lines) > 8 {
		lines = lines[len(lines)-8:]
	}
	for _, line := range lines {
		s += fmt.Sprintf("│   %-50s │\n", truncate(line, 50))
	}
	return s
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ", "space":
		m.result("Toggle playback", m.ctrl.Toggle())
	case "left":
		m.result("Seek", m.ctrl.SeekBy(-seekStep))
	case "right":
		m.result("Seek", m.ctrl.SeekBy(seekStep))
	case "shift+left":
		m.result("Seek", m.ctrl.SeekBy(-seekJump))
	case "shift+right":
		m.result("Seek", m.ctrl.SeekBy(seekJump))
	case "home":
		m.result("Seek", m.ctrl.Seek(0))
	case "end":
		m.result("Seek", m.ctrl.Seek(m.status.HistorySeconds))
	case "[":
		m.rangeResult(m.ctrl.MarkRangeStart())
	case "]":
		m.rangeResult(m.ctrl.MarkRangeEnd())
	case "{":
		m.rangeResult(m.ctrl.NudgeRange(false, -nudgeStep))
	case "}":
		m.rangeResult(m.ctrl.NudgeRange(false, nudgeStep))
	case "<":
		m.rangeResult(m.ctrl.NudgeRange(true, -nudgeStep))
	case ">":
		m.rangeResult(m.ctrl.NudgeRange(true, nudgeStep))
	case "e":
		if m.exporting {
			return m, nil
		}
		m.exporting = true
		m.message = "Exporting..."
		return m, exportCmd(m.ctrl)
	case "r":
		m.result("Session restarted", m.ctrl.Restart())
	case "up":
		m.volume = min(100, m.volume+volumeStep)
		m.ctrl.SetVolume(m.volume)
	case "down":
		m.volume = max(0, m.volume-volumeStep)
		m.ctrl.SetVolume(m.volume)
	case "m":
		m.muted = !m.muted
		m.ctrl.SetMuted(m.muted)
	case "l", "L":
		hz := m.ctrl.SetLowPass(stepCutoff(m.status.LowPassHz, msg.String() == "L", lowPassRound))
		m.message = fmt.Sprintf("Low-pass %d Hz", hz)
	case "h", "H":
		hz := m.ctrl.SetHighPass(stepCutoff(m.status.HighPassHz, msg.String() == "H", highPassRound))
		m.message = fmt.Sprintf("High-pass %d Hz", hz)
	case "d":
		m.showDebug = !m.showDebug
	default:
		return m, nil
	}

	m.applyStatus(m.poll())
	return m, nil
}

func (m *Model) result(action string, err error) {
	if err != nil {
		m.message = fmt.Sprintf("%s: %v", action, err)
		return
	}
	m.message = action
}

func (m *Model) rangeResult(r timeline.Range, err error) {
	if err != nil {
		m.message = fmt.Sprintf("Range: %v", err)
		return
	}
	m.message = "Range " + r.String()
}

func (m Model) poll() StatusMsg {
	return StatusMsg{
		Status:   m.ctrl.Snapshot(),
		Bars:     m.ctrl.Bars(barCount),
		Spectrum: m.ctrl.Spectrum(barCount),
		Logs:     m.ctrl.Logs(),
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	m.status = msg.Status
	m.bars = msg.Bars
	m.spectrum = msg.Spectrum
	m.logs = msg.Logs
	m.volume = msg.Status.Volume
	m.muted = msg.Status.Muted
}

var waveLevels = []rune(" ▁▂▃▄▅▆▇█")

// renderWaveform draws one column per bar, scaled to the loudest bar
func renderWaveform(bars []float64, width int) string {
	peak := 0.0
	for _, v := range bars {
		peak = max(peak, v)
	}

	out := make([]rune, width)
	for i := range out {
		out[i] = ' '
		if i >= len(bars) || peak == 0 {
			continue
		}
		level := int(bars[i] / peak * float64(len(waveLevels)-1))
		out[i] = waveLevels[max(0, min(level, len(waveLevels)-1))]
	}
	return string(out)
}

// renderSpectrum draws one column per band on an absolute 0-1 scale
func renderSpectrum(bands []float64, width int) string {
	out := make([]rune, width)
	for i := range out {
		out[i] = ' '
		if i >= len(bands) {
			continue
		}
		level := int(math.Round(bands[i] * float64(len(waveLevels)-1)))
		out[i] = waveLevels[max(0, min(level, len(waveLevels)-1))]
	}
	return string(out)
}

// renderMeter draws a linear level bar for v in 0-1
func renderMeter(v float32, width int) string {
	return renderBar(int(min(1, max(0, v))*1000), 1000, width)
}

func formatDB(v float32) string {
	if v <= 0 {
		return " -inf dB"
	}
	return fmt.Sprintf("%5.1f dB", 20*math.Log10(float64(v)))
}

// stepCutoff moves hz one geometric step, snapped to a multiple of round.
// The controller clamps the result to the filter's range.
func stepCutoff(hz int, up bool, round int) int {
	next := float64(hz) / filterRatio
	if up {
		next = float64(hz) * filterRatio
	}
	snapped := int(math.Round(next/float64(round))) * round
	if snapped == hz {
		if up {
			snapped += round
		} else {
			snapped -= round
		}
	}
	return snapped
}

// renderMarkers draws the range handles and the playhead under the waveform
func renderMarkers(width int, total, cursor float64, r timeline.Range) string {
	out := []rune(strings.Repeat(" ", width))
	if total <= 0 {
		return string(out)
	}

	column := func(seconds float64) int {
		return max(0, min(int(seconds/total*float64(width)), width-1))
	}

	if !r.IsZero() {
		out[column(r.Start)] = '['
		out[column(r.End)] = ']'
	}
	out[column(cursor)] = '^'
	return string(out)
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
