package services

import (
	"context"
	"sync/atomic"
)

// CheckLimiter bounds how many pipeline checks can execute simultaneously.
// It uses a channel-based counting semaphore.
type CheckLimiter struct {
	slots       chan struct{}
	max         int
	activeCount atomic.Int64
}

// NewCheckLimiter creates a limiter allowing max concurrent checks.
func NewCheckLimiter(max int) *CheckLimiter {
	if max <= 0 {
		max = 32
	}
	return &CheckLimiter{
		slots: make(chan struct{}, max),
		max:   max,
	}
}

// Acquire blocks until a slot is available, or returns an error if the
// context is cancelled.
func (c *CheckLimiter) Acquire(ctx context.Context) error {
	select {
	case c.slots <- struct{}{}:
		c.activeCount.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot.
func (c *CheckLimiter) Release() {
	c.activeCount.Add(-1)
	select {
	case <-c.slots:
	default:
	}
}

// LimiterStats reports current usage.
type LimiterStats struct {
	ActiveChecks int `json:"active_checks"`
	Max          int `json:"max"`
}

// Stats returns the current concurrency statistics.
func (c *CheckLimiter) Stats() LimiterStats {
	return LimiterStats{
		ActiveChecks: int(c.activeCount.Load()),
		Max:          c.max,
	}
}
