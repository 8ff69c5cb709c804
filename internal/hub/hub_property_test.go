package hub

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestPublish_FanOut_PropertyBased checks that a single publish lands in the
// queue of every one of N subscribers, for N from 0 upward.
func TestPublish_FanOut_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("every subscriber holds the published snapshot", prop.ForAll(
		func(n int, used uint64) bool {
			h := New()
			subs := make([]*Subscription, n)
			for i := range subs {
				subs[i] = h.Subscribe()
			}

			if got := h.Publish(snapshotWithUsed(used)); got != n {
				t.Logf("Publish reported %d receivers, want %d", got, n)
				return false
			}
			for _, s := range subs {
				snap, err := s.Recv(context.Background())
				if err != nil || snap.Memory.Used != used {
					return false
				}
			}
			return h.Lagged() == 0
		},
		gen.IntRange(0, 64),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

// TestPublish_Ordering_PropertyBased checks that a reader keeping up sees
// every snapshot in publish order and a reader that never reads ends with
// the newest one and a lag of k-1.
func TestPublish_Ordering_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("publish order is preserved, lag keeps the latest", prop.ForAll(
		func(k int) bool {
			h := New()
			eager := h.Subscribe()
			idle := h.Subscribe()

			for i := 1; i <= k; i++ {
				h.Publish(snapshotWithUsed(uint64(i)))
				snap, err := eager.Recv(context.Background())
				if err != nil || snap.Memory.Used != uint64(i) {
					return false
				}
			}

			snap, err := idle.Recv(context.Background())
			if err != nil || snap.Memory.Used != uint64(k) {
				return false
			}
			return idle.Lagged() == uint64(k-1) && eager.Lagged() == 0
		},
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
