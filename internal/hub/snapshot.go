package hub

import (
	"encoding/json"
	"fmt"
)

// Memory holds host memory counters in bytes, exactly as reported by the
// sampling primitive.
type Memory struct {
	Total     uint64 `json:"total"`
	Free      uint64 `json:"free"`
	Available uint64 `json:"available"`
	Used      uint64 `json:"used"`
}

// CoreUsage is the utilization of one logical core. It encodes as the
// two-element array [index, percent].
type CoreUsage struct {
	Index   uint32
	Percent float32
}

func (c CoreUsage) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{c.Index, c.Percent})
}

func (c *CoreUsage) UnmarshalJSON(data []byte) error {
	var pair []json.Number
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("core usage: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("core usage: want 2 elements, got %d", len(pair))
	}
	idx, err := pair[0].Int64()
	if err != nil {
		return fmt.Errorf("core usage index: %w", err)
	}
	pct, err := pair[1].Float64()
	if err != nil {
		return fmt.Errorf("core usage percent: %w", err)
	}
	c.Index = uint32(idx)
	c.Percent = float32(pct)
	return nil
}

// Snapshot is one sampling tick. Cores keeps the host's enumeration order.
// A published Snapshot is shared between subscribers and must not be
// mutated.
type Snapshot struct {
	Cores  []CoreUsage `json:"cpu_data"`
	Memory Memory      `json:"mem_data"`
}

// Percents returns the per-core utilization in core order.
func (s Snapshot) Percents() []float32 {
	out := make([]float32, len(s.Cores))
	for i, c := range s.Cores {
		out[i] = c.Percent
	}
	return out
}
