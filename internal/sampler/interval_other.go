//go:build !linux && !darwin && !windows && !freebsd

package sampler

import "time"

const minCPURefreshInterval = 200 * time.Millisecond
