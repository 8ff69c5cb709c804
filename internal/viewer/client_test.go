package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oleksiiilienko/mxtoo/internal/hub"
)

type recorder struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recorder) emit(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) snapshots() []SnapshotMsg {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []SnapshotMsg
	for _, m := range r.msgs {
		if s, ok := m.(SnapshotMsg); ok {
			out = append(out, s)
		}
	}
	return out
}

func (r *recorder) connects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if s, ok := m.(StatusMsg); ok && s.Connected {
			n++
		}
	}
	return n
}

func (r *recorder) last() tea.Msg {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return nil
	}
	return r.msgs[len(r.msgs)-1]
}

// streamServer sends count snapshots per connection, then closes it.
func streamServer(t *testing.T, count int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conns.Add(1)

		for i := 0; i < count; i++ {
			snap := hub.Snapshot{
				Cores:  []hub.CoreUsage{{Index: 0, Percent: float32(i)}},
				Memory: hub.Memory{Total: 1000, Free: 200, Available: 300, Used: 700},
			}
			data, _ := json.Marshal(snap)
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}))
	t.Cleanup(ts.Close)
	return ts, &conns
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestClient_DeliversSnapshotsThenEnds(t *testing.T) {
	ts, _ := streamServer(t, 3)
	rec := &recorder{}

	c := NewClient(wsURL(ts), false)
	err := c.Run(context.Background(), rec.emit)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server closed the stream")

	snaps := rec.snapshots()
	require.Len(t, snaps, 3)
	for i, s := range snaps {
		assert.Equal(t, float32(i), s.Cores[0].Percent)
		assert.Equal(t, uint64(700), s.Memory.Used)
	}
	assert.Equal(t, 1, rec.connects())

	ended, ok := rec.last().(StreamEndedMsg)
	require.True(t, ok)
	assert.Equal(t, err, ended.Err)
}

func TestClient_ReconnectsAfterClose(t *testing.T) {
	ts, conns := streamServer(t, 1)
	rec := &recorder{}

	c := NewClient(wsURL(ts), true)
	c.MinBackoff = 5 * time.Millisecond
	c.MaxBackoff = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, rec.emit) }()

	require.Eventually(t, func() bool { return conns.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop after cancel")
	}
	assert.GreaterOrEqual(t, rec.connects(), 3)
	assert.GreaterOrEqual(t, len(rec.snapshots()), 3)
	assert.IsType(t, StreamEndedMsg{}, rec.last())
}

func TestClient_DialFailureWithoutReconnect(t *testing.T) {
	ts, _ := streamServer(t, 0)
	url := wsURL(ts)
	ts.Close()

	rec := &recorder{}
	err := NewClient(url, false).Run(context.Background(), rec.emit)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dialing")
	assert.Zero(t, rec.connects())
}

func TestClient_CancelWhileConnected(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// hold the connection open without sending
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(ts.Close)

	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewClient(wsURL(ts), true).Run(ctx, rec.emit) }()

	require.Eventually(t, func() bool { return rec.connects() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop after cancel")
	}
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, nextBackoff(250*time.Millisecond, time.Second))
	assert.Equal(t, time.Second, nextBackoff(750*time.Millisecond, time.Second))
	assert.Equal(t, time.Second, nextBackoff(time.Second, time.Second))
}
