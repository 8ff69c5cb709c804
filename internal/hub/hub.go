// Package hub fans snapshots out from a single publisher to any number of
// subscribers. Every subscription has a queue of depth one: a publish over an
// unread snapshot replaces it and counts a lag for that subscription, so a
// slow reader never holds up the publisher.
package hub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Recv once the hub has been closed and the
// subscription's pending snapshot, if any, has been consumed.
var ErrClosed = errors.New("hub closed")

type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
	done   chan struct{}

	published atomic.Uint64
	lagged    atomic.Uint64
}

func New() *Hub {
	return &Hub{
		subs: make(map[*Subscription]struct{}),
		done: make(chan struct{}),
	}
}

// Subscribe registers a new subscription that observes every snapshot
// published after this call returns.
func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{
		hub: h,
		ch:  make(chan Snapshot, 1),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.subs[s] = struct{}{}
	}
	return s
}

// Publish hands snap to every registered subscription and reports how many
// received it. It never blocks on a subscriber.
func (h *Hub) Publish(snap Snapshot) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0
	}
	for s := range h.subs {
		s.offer(snap)
	}
	h.published.Add(1)
	return len(h.subs)
}

// Subscribers returns the number of registered subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Published returns the number of Publish calls accepted before Close.
func (h *Hub) Published() uint64 {
	return h.published.Load()
}

// Lagged returns the number of snapshots dropped across all subscriptions.
func (h *Hub) Lagged() uint64 {
	return h.lagged.Load()
}

// Close permanently closes the publishing side. Pending snapshots are still
// delivered, after which Recv reports ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, s)
}

// Subscription is a depth-one, latest-wins feed of snapshots. It is owned by
// a single reader.
type Subscription struct {
	hub    *Hub
	ch     chan Snapshot
	lagged atomic.Uint64
	once   sync.Once
}

// offer is only called by Publish with hub.mu held, which makes it the sole
// sender on s.ch.
func (s *Subscription) offer(snap Snapshot) {
	select {
	case s.ch <- snap:
		return
	default:
	}

	select {
	case <-s.ch:
		s.lagged.Add(1)
		s.hub.lagged.Add(1)
	default:
		// the reader took it in the meantime
	}
	s.ch <- snap
}

// Recv waits for the next snapshot.
func (s *Subscription) Recv(ctx context.Context) (Snapshot, error) {
	select {
	case snap := <-s.ch:
		return snap, nil
	default:
	}

	select {
	case snap := <-s.ch:
		return snap, nil
	case <-s.hub.done:
		select {
		case snap := <-s.ch:
			return snap, nil
		default:
			return Snapshot{}, ErrClosed
		}
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Lagged returns how many snapshots this subscription missed because the
// previous one was still unread.
func (s *Subscription) Lagged() uint64 {
	return s.lagged.Load()
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}
