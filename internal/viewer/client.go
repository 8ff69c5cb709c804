package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/oleksiiilienko/mxtoo/internal/hub"
)

const (
	DefaultURL = "ws://localhost:7032/realtime/data"

	defaultMinBackoff = 250 * time.Millisecond
	defaultMaxBackoff = 10 * time.Second
)

// SnapshotMsg carries one decoded snapshot into the model.
type SnapshotMsg hub.Snapshot

// StatusMsg reports connection state changes.
type StatusMsg struct {
	Connected bool
	Err       error
	// RetryIn is set while waiting to reconnect.
	RetryIn time.Duration
}

// StreamEndedMsg is sent once the client stops for good.
type StreamEndedMsg struct {
	Err error
}

// Client reads snapshots from a /realtime/data endpoint. Reconnecting is the
// viewer's job: the server never retries on its side.
type Client struct {
	URL        string
	Reconnect  bool
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Dialer     *websocket.Dialer
}

func NewClient(url string, reconnect bool) *Client {
	return &Client{
		URL:        url,
		Reconnect:  reconnect,
		MinBackoff: defaultMinBackoff,
		MaxBackoff: defaultMaxBackoff,
		Dialer:     websocket.DefaultDialer,
	}
}

// Run streams until ctx is done, or until the first disconnect when
// Reconnect is off. Every message goes through emit, which is usually
// (*tea.Program).Send. A StreamEndedMsg is always the last message.
func (c *Client) Run(ctx context.Context, emit func(tea.Msg)) error {
	backoff := c.MinBackoff
	for {
		err := c.stream(ctx, emit, func() { backoff = c.MinBackoff })
		if ctx.Err() != nil {
			emit(StreamEndedMsg{})
			return nil
		}
		if !c.Reconnect {
			emit(StreamEndedMsg{Err: err})
			return err
		}

		emit(StatusMsg{Err: err, RetryIn: backoff})
		select {
		case <-ctx.Done():
			emit(StreamEndedMsg{})
			return nil
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff, c.MaxBackoff)
	}
}

// stream handles a single connection. onConnect fires after a successful dial.
func (c *Client) stream(ctx context.Context, emit func(tea.Msg), onConnect func()) error {
	conn, resp, err := c.Dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", c.URL, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	onConnect()
	emit(StatusMsg{Connected: true})

	// unblock ReadMessage on cancellation
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("server closed the stream")
			}
			return fmt.Errorf("reading stream: %w", err)
		}

		var snap hub.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("decoding snapshot: %w", err)
		}
		emit(SnapshotMsg(snap))
	}
}

func nextBackoff(cur, limit time.Duration) time.Duration {
	next := cur * 2
	if next > limit || next <= 0 {
		return limit
	}
	return next
}
