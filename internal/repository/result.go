package repository

import (
	"context"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// ResultRepository abstracts the append-only check result log.
type ResultRepository interface {
	// Append stores a result, idempotent by result ID. After insertion the
	// oldest results for the monitor are evicted until the per-monitor
	// count is within the configured retention.
	Append(ctx context.Context, result *uptimer.CheckResult) error

	// List returns up to limit results for a monitor, newest first.
	List(ctx context.Context, monitorID string, limit int) ([]*uptimer.CheckResult, error)
}
