//go:build linux

package sampler

import "time"

// /proc/stat advances in USER_HZ ticks; shorter windows mostly read 0 or 100.
const minCPURefreshInterval = 200 * time.Millisecond
