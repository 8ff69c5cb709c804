//go:build freebsd

package sampler

import "time"

const minCPURefreshInterval = 100 * time.Millisecond
