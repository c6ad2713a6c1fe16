package bench

import "time"

// Limits describes optional resource boundaries for a single compilation or
// benchmark invocation.
//
// A zero value Limits imposes no additional restrictions.
type Limits struct {
	// TimeLimit caps how long one invocation may run. Zero means no limit.
	TimeLimit time.Duration
	// MemoryLimitBytes caps container memory usage in bytes. Zero means no limit.
	// Only the docker runtime enforces it.
	MemoryLimitBytes int64
}
