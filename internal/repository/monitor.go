package repository

import (
	"context"
	"time"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// MonitorRepository abstracts persistence for monitors.
type MonitorRepository interface {
	Create(ctx context.Context, monitor *uptimer.Monitor) error
	Get(ctx context.Context, id string) (*uptimer.Monitor, error)
	Update(ctx context.Context, monitor *uptimer.Monitor) error
	Delete(ctx context.Context, id string) error

	// List returns monitors sorted by creation time. A non-empty tag
	// filters by set membership.
	List(ctx context.Context, tag string) ([]*uptimer.Monitor, error)

	// ListTags returns the union of all monitors' tags, sorted.
	ListTags(ctx context.Context) ([]string, error)

	// UpdateMirror updates the denormalized last_check/last_status pair.
	// Last writer wins; losses are tolerable since the mirror is
	// re-derivable from results.
	UpdateMirror(ctx context.Context, id string, lastCheck time.Time, lastStatus uptimer.Status) error
}
