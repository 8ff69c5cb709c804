// Package viewer is a terminal client for the realtime stream: one progress
// bar per core plus a memory line, redrawn on every snapshot.
package viewer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/oleksiiilienko/mxtoo/internal/hub"
)

const (
	defaultBarWidth = 40
	minBarWidth     = 10
	maxBarWidth     = 80
	// label, percentage and panel padding around each bar
	barChrome = 24
)

type Model struct {
	url    string
	keymap KeyMap
	bar    progress.Model

	snap     hub.Snapshot
	received uint64
	status   StatusMsg
	paused   bool

	ended    bool
	endErr   error
	quitting bool
}

func NewModel(url string) Model {
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(defaultBarWidth),
		progress.WithoutPercentage(),
	)
	return Model{
		url:    url,
		keymap: DefaultKeyMap(),
		bar:    bar,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Pause):
			m.paused = !m.paused
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = clampWidth(msg.Width - barChrome)
		return m, nil

	case SnapshotMsg:
		m.received++
		if !m.paused {
			m.snap = hub.Snapshot(msg)
		}
		return m, nil

	case StatusMsg:
		m.status = msg
		return m, nil

	case StreamEndedMsg:
		m.ended = true
		m.endErr = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// Err returns the error that ended the stream, if any.
func (m Model) Err() error {
	return m.endErr
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("mxtoo-top"))
	b.WriteString("  ")
	b.WriteString(helpStyle.Render(m.url))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	var body strings.Builder
	if len(m.snap.Cores) == 0 {
		body.WriteString(helpStyle.Render("waiting for data"))
	}
	for i, c := range m.snap.Cores {
		if i > 0 {
			body.WriteString("\n")
		}
		body.WriteString(m.coreLine(c))
	}
	if m.snap.Memory.Total > 0 {
		body.WriteString("\n\n")
		body.WriteString(m.memoryLine())
	}
	b.WriteString(panelStyle.Render(body.String()))
	b.WriteString("\n")

	help := "q quit  p pause"
	if m.paused {
		help += "  (paused)"
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func (m Model) coreLine(c hub.CoreUsage) string {
	pct := float64(c.Percent)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		labelStyle.Render(fmt.Sprintf("cpu%d", c.Index)),
		m.bar.ViewAs(pct/100),
		valueStyle.Render(fmt.Sprintf(" %5.1f%%", pct)),
	)
}

func (m Model) memoryLine() string {
	mem := m.snap.Memory
	usedPct := float64(mem.Used) / float64(mem.Total)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		labelStyle.Render("mem"),
		m.bar.ViewAs(usedPct),
		valueStyle.Render(fmt.Sprintf(" %s / %s", humanize.IBytes(mem.Used), humanize.IBytes(mem.Total))),
		helpStyle.Render(fmt.Sprintf("  avail %s", humanize.IBytes(mem.Available))),
	)
}

func (m Model) statusLine() string {
	switch {
	case m.ended && m.endErr != nil:
		return errorStyle.Render("disconnected: " + m.endErr.Error())
	case m.ended:
		return errorStyle.Render("disconnected")
	case m.status.Connected:
		return connectedStyle.Render(fmt.Sprintf("connected, %d snapshots", m.received))
	case m.status.RetryIn > 0:
		msg := fmt.Sprintf("reconnecting in %s", m.status.RetryIn)
		if m.status.Err != nil {
			msg += ": " + m.status.Err.Error()
		}
		return waitingStyle.Render(msg)
	}
	return waitingStyle.Render("connecting")
}

func clampWidth(w int) int {
	switch {
	case w < minBarWidth:
		return minBarWidth
	case w > maxBarWidth:
		return maxBarWidth
	}
	return w
}
