//go:build windows

package sampler

import "time"

const minCPURefreshInterval = 200 * time.Millisecond
