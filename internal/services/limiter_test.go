package services

import (
	"context"
	"testing"
	"time"
)

func TestCheckLimiterBlocksAtCapacity(t *testing.T) {
	ctx := context.Background()
	limiter := NewCheckLimiter(2)

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}

	// Third acquire must block until a slot frees up.
	blocked, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := limiter.Acquire(blocked); err == nil {
		t.Fatal("third Acquire should have blocked")
	}

	limiter.Release()
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire after Release: %v", err)
	}
}

func TestCheckLimiterStats(t *testing.T) {
	ctx := context.Background()
	limiter := NewCheckLimiter(3)

	limiter.Acquire(ctx)
	limiter.Acquire(ctx)
	stats := limiter.Stats()
	if stats.ActiveChecks != 2 || stats.Max != 3 {
		t.Fatalf("stats = %+v", stats)
	}

	limiter.Release()
	if limiter.Stats().ActiveChecks != 1 {
		t.Fatalf("active = %d after release", limiter.Stats().ActiveChecks)
	}
}

func TestCheckLimiterDefaultCapacity(t *testing.T) {
	limiter := NewCheckLimiter(0)
	if limiter.Stats().Max != 32 {
		t.Fatalf("default max = %d, want 32", limiter.Stats().Max)
	}
}
