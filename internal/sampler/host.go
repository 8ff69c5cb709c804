package sampler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/oleksiiilienko/mxtoo/internal/hub"
)

//go:generate mockgen -source=host.go -destination=mocks/mock_host.go -package=mocks

// Host is the operating-system sampling primitive.
type Host interface {
	// CPUPercents returns per-core utilization in host enumeration order.
	CPUPercents(ctx context.Context) ([]float64, error)
	Memory(ctx context.Context) (hub.Memory, error)
	// MinRefreshInterval is the shortest interval between CPU refreshes that
	// still yields meaningful readings.
	MinRefreshInterval() time.Duration
}

// SystemHost reads the local machine through gopsutil. CPU usage is the
// busy share of each core since the previous call; the first call primes
// the counters and reports zero.
type SystemHost struct {
	mu   sync.Mutex
	prev []cpu.TimesStat
}

func NewSystemHost() *SystemHost {
	return &SystemHost{}
}

func (h *SystemHost) CPUPercents(ctx context.Context) ([]float64, error) {
	times, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("reading cpu times: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]float64, len(times))
	if len(h.prev) == len(times) {
		for i := range times {
			out[i] = busyPercent(h.prev[i], times[i])
		}
	}
	h.prev = times
	return out, nil
}

func (h *SystemHost) Memory(ctx context.Context) (hub.Memory, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return hub.Memory{}, fmt.Errorf("reading memory: %w", err)
	}
	return hub.Memory{
		Total:     v.Total,
		Free:      v.Free,
		Available: v.Available,
		Used:      v.Used,
	}, nil
}

func (h *SystemHost) MinRefreshInterval() time.Duration {
	return minCPURefreshInterval
}

func busyPercent(prev, cur cpu.TimesStat) float64 {
	total := cpuTotal(cur) - cpuTotal(prev)
	idle := (cur.Idle + cur.Iowait) - (prev.Idle + prev.Iowait)
	if total <= 0 {
		return 0
	}
	pct := (total - idle) / total * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// cpuTotal leaves out guest time, which the kernel already counts in user.
func cpuTotal(t cpu.TimesStat) float64 {
	return t.User + t.Nice + t.System + t.Idle + t.Iowait + t.Irq + t.Softirq + t.Steal
}
