package repository

import (
	"context"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// JobRepository abstracts persistence for scheduler job state. Jobs are keyed
// by monitor ID; one monitor has at most one job.
type JobRepository interface {
	Upsert(ctx context.Context, job *uptimer.SchedulerJob) error
	Delete(ctx context.Context, monitorID string) error
	All(ctx context.Context) ([]*uptimer.SchedulerJob, error)
}
