package repository

import (
	"context"
	"log/slog"

	"github.com/mortenoh/uptimer/internal/db"
	"github.com/mortenoh/uptimer/internal/uptimer"
)

// PersistentJobRepository wraps a MemoryJobRepository with a PostgreSQL
// backend so scheduler jobs survive restarts.
type PersistentJobRepository struct {
	mem *MemoryJobRepository
	db  *db.DB
}

func NewPersistentJobRepository(mem *MemoryJobRepository, database *db.DB) *PersistentJobRepository {
	return &PersistentJobRepository{mem: mem, db: database}
}

func (r *PersistentJobRepository) Upsert(ctx context.Context, job *uptimer.SchedulerJob) error {
	_ = r.mem.Upsert(ctx, job)
	if err := r.db.UpsertJob(ctx, job); err != nil {
		slog.Warn("db upsert job failed, in-memory only", "err", err)
	}
	return nil
}

func (r *PersistentJobRepository) Delete(ctx context.Context, monitorID string) error {
	_ = r.mem.Delete(ctx, monitorID)
	if err := r.db.DeleteJob(ctx, monitorID); err != nil {
		slog.Warn("db delete job failed", "err", err)
	}
	return nil
}

func (r *PersistentJobRepository) All(ctx context.Context) ([]*uptimer.SchedulerJob, error) {
	jobs, err := r.db.ListJobs(ctx)
	if err == nil {
		return jobs, nil
	}
	slog.Warn("db list jobs failed, falling back to in-memory", "err", err)
	return r.mem.All(ctx)
}
