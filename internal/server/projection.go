package server

import "github.com/oleksiiilienko/mxtoo/internal/hub"

// Projection selects which part of a snapshot goes on the wire.
type Projection int

const (
	// ProjectFull sends {"cpu_data": [[i, pct], ...], "mem_data": {...}}.
	ProjectFull Projection = iota
	// ProjectCores sends a bare array of per-core percentages.
	ProjectCores
)

func (p Projection) String() string {
	switch p {
	case ProjectFull:
		return "full"
	case ProjectCores:
		return "cores"
	}
	return "unknown"
}

// Apply returns the value to encode for snap.
func (p Projection) Apply(snap hub.Snapshot) any {
	if p == ProjectCores {
		return snap.Percents()
	}
	return snap
}
