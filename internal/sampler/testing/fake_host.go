// Package testing provides test doubles for the sampler package.
package testing

import (
	"context"
	"sync"
	"time"

	"github.com/oleksiiilienko/mxtoo/internal/hub"
)

// FakeHost is a deterministic sampler.Host that counts its calls.
type FakeHost struct {
	mu       sync.Mutex
	cores    []float64
	memory   hub.Memory
	interval time.Duration
	err      error
	panicMsg string

	cpuCalls    int
	memoryCalls int
}

// NewFakeHost returns a host reporting the given cores and memory, refreshing
// every interval.
func NewFakeHost(cores []float64, memory hub.Memory, interval time.Duration) *FakeHost {
	return &FakeHost{
		cores:    cores,
		memory:   memory,
		interval: interval,
	}
}

// SetMemory changes the memory reported from the next call on.
func (h *FakeHost) SetMemory(m hub.Memory) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.memory = m
}

// SetCores changes the per-core usage reported from the next call on.
func (h *FakeHost) SetCores(cores []float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cores = cores
}

// FailWith makes every following CPUPercents call return err.
func (h *FakeHost) FailWith(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// PanicWith makes every following CPUPercents call panic with msg.
func (h *FakeHost) PanicWith(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panicMsg = msg
}

func (h *FakeHost) CPUPercents(context.Context) ([]float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cpuCalls++
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	if h.err != nil {
		return nil, h.err
	}
	out := make([]float64, len(h.cores))
	copy(out, h.cores)
	return out, nil
}

func (h *FakeHost) Memory(context.Context) (hub.Memory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.memoryCalls++
	return h.memory, nil
}

func (h *FakeHost) MinRefreshInterval() time.Duration {
	return h.interval
}

// Calls returns how many times CPUPercents and Memory were invoked.
func (h *FakeHost) Calls() (cpu, memory int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cpuCalls, h.memoryCalls
}
