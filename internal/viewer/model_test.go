package viewer

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oleksiiilienko/mxtoo/internal/hub"
)

func sampleSnapshot() SnapshotMsg {
	return SnapshotMsg{
		Cores: []hub.CoreUsage{
			{Index: 0, Percent: 12.5},
			{Index: 1, Percent: 87},
		},
		Memory: hub.Memory{Total: 8 << 30, Free: 1 << 30, Available: 3 << 30, Used: 5 << 30},
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func TestModel_WaitingBeforeFirstSnapshot(t *testing.T) {
	view := NewModel(DefaultURL).View()
	assert.Contains(t, view, "mxtoo-top")
	assert.Contains(t, view, DefaultURL)
	assert.Contains(t, view, "connecting")
	assert.Contains(t, view, "waiting for data")
}

func TestModel_RendersCoresAndMemory(t *testing.T) {
	m := NewModel(DefaultURL)
	m, _ = update(t, m, StatusMsg{Connected: true})
	m, cmd := update(t, m, sampleSnapshot())
	assert.Nil(t, cmd)

	view := m.View()
	assert.Contains(t, view, "cpu0")
	assert.Contains(t, view, "cpu1")
	assert.Contains(t, view, "12.5%")
	assert.Contains(t, view, "87.0%")
	assert.Contains(t, view, "5.0 GiB / 8.0 GiB")
	assert.Contains(t, view, "avail 3.0 GiB")
	assert.Contains(t, view, "connected, 1 snapshots")
	assert.NotContains(t, view, "waiting for data")
}

func TestModel_PauseFreezesDisplay(t *testing.T) {
	m := NewModel(DefaultURL)
	m, _ = update(t, m, sampleSnapshot())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	require.True(t, m.paused)

	next := sampleSnapshot()
	next.Cores[0].Percent = 99
	m, _ = update(t, m, next)

	assert.Equal(t, float32(12.5), m.snap.Cores[0].Percent)
	assert.Equal(t, uint64(2), m.received)
	assert.Contains(t, m.View(), "(paused)")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.False(t, m.paused)
}

func TestModel_QuitKeys(t *testing.T) {
	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	} {
		t.Run(msg.String(), func(t *testing.T) {
			m, cmd := update(t, NewModel(DefaultURL), msg)
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
			assert.Empty(t, m.View())
		})
	}
}

func TestModel_ReconnectStatus(t *testing.T) {
	m := NewModel(DefaultURL)
	m, _ = update(t, m, StatusMsg{Err: errors.New("connection refused"), RetryIn: 2 * time.Second})
	assert.Contains(t, m.View(), "reconnecting in 2s: connection refused")
}

func TestModel_StreamEndedQuits(t *testing.T) {
	m, cmd := update(t, NewModel(DefaultURL), StreamEndedMsg{Err: errors.New("server closed the stream")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.EqualError(t, m.Err(), "server closed the stream")
	assert.Contains(t, m.View(), "disconnected: server closed the stream")
}

func TestModel_WindowResizeClampsBar(t *testing.T) {
	tests := []struct {
		width int
		want  int
	}{
		{width: 20, want: minBarWidth},
		{width: 64, want: 64 - barChrome},
		{width: 400, want: maxBarWidth},
	}
	for _, tt := range tests {
		m, _ := update(t, NewModel(DefaultURL), tea.WindowSizeMsg{Width: tt.width, Height: 40})
		assert.Equal(t, tt.want, m.bar.Width, "width %d", tt.width)
	}
}

func TestDefaultKeyMap_AllBindingsDefined(t *testing.T) {
	km := DefaultKeyMap()
	for name, b := range map[string][]string{
		"quit":  km.Quit.Keys(),
		"pause": km.Pause.Keys(),
	} {
		assert.NotEmpty(t, b, name)
	}
	assert.Contains(t, km.Quit.Keys(), "q")
	assert.Contains(t, km.Quit.Keys(), "ctrl+c")
}
