// Package statusview renders the rolling diagnostic/position status line
// (spec §7's "status line: rolling last-message plus monotonic counters
// per error kind") as a bubbletea program, styled with lipgloss panels
// the way display/tui.go renders the teacher's playback state. Spec §1
// treats the full terminal UI as an external collaborator; this is
// deliberately thin — exercised by `seq monitor` and `seq play`, not a
// general-purpose TUI.
package statusview

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"seq/internal/diag"
)

var (
	primaryColor = lipgloss.Color("#00FFFF")
	dimColor     = lipgloss.Color("#666666")
	warnColor    = lipgloss.Color("#FFAA00")
	errColor     = lipgloss.Color("#FF6666")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	labelStyle = lipgloss.NewStyle().Foreground(dimColor)
	tickStyle  = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	lastMsgStyle = lipgloss.NewStyle().Foreground(warnColor)
	counterStyle = lipgloss.NewStyle().Foreground(dimColor)
)

// tickMsg drives the periodic redraw.
type tickMsg time.Time

// Snapshot is the position/transport state the status view reads each
// tick; the dispatch thread never hands the UI anything but this plain
// value, preserving spec §7's "dispatch thread never surfaces errors
// upward" / "status snapshot" separation (spec §5's UI-thread row).
type Snapshot struct {
	Tick      uint64
	BarNum    int
	BeatNum   int
	TempoBPM  float64
	Transport string // "stopped" | "playing" | "paused"
	SongName  string
}

// SnapshotFunc is polled once per redraw; callers supply a closure that
// reads whatever shared position state they maintain.
type SnapshotFunc func() Snapshot

// Model is the bubbletea model for the status line.
type Model struct {
	diagCh   *diag.Channel
	snapshot SnapshotFunc
	width    int
	quitting bool
}

// New builds a status view model reading diagnostics from ch and
// position from snap.
func New(ch *diag.Channel, snap SnapshotFunc) *Model {
	return &Model{diagCh: ch, snapshot: snap, width: 80}
}

func (m *Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		return m, tickCmd()
	}
	return m, nil
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	snap := m.snapshot()
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("seq — %s", snap.SongName)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("transport ") + tickStyle.Render(snap.Transport))
	b.WriteString("  ")
	b.WriteString(labelStyle.Render("tempo ") + tickStyle.Render(fmt.Sprintf("%.1f bpm", snap.TempoBPM)))
	b.WriteString("  ")
	b.WriteString(labelStyle.Render("bar/beat ") + tickStyle.Render(fmt.Sprintf("%d.%d", snap.BarNum, snap.BeatNum)))
	b.WriteString("  ")
	b.WriteString(labelStyle.Render("tick ") + tickStyle.Render(fmt.Sprintf("%d", snap.Tick)))
	b.WriteString("\n\n")

	if last, ok := m.diagCh.Last(); ok {
		b.WriteString(lastMsgStyle.Render(fmt.Sprintf("[%s] %s", last.Kind, last.Message)))
		b.WriteString("\n")
	}
	b.WriteString(counterStyle.Render(fmt.Sprintf(
		"config=%d resource=%d runtime=%d logic=%d",
		m.diagCh.Count(diag.Configuration), m.diagCh.Count(diag.Resource),
		m.diagCh.Count(diag.RuntimeRecoverable), m.diagCh.Count(diag.LogicFatal),
	)))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("press q to quit"))
	return b.String()
}

// Run starts the bubbletea program and blocks until the user quits.
func Run(m *Model) error {
	p := tea.NewProgram(m)
	_, err := p.Run()
	return err
}
