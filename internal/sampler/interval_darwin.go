//go:build darwin

package sampler

import "time"

const minCPURefreshInterval = 200 * time.Millisecond
