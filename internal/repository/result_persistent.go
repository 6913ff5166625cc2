package repository

import (
	"context"
	"log/slog"

	"github.com/mortenoh/uptimer/internal/db"
	"github.com/mortenoh/uptimer/internal/uptimer"
)

// PersistentResultRepository wraps a MemoryResultRepository with a PostgreSQL
// backend. Appends go to both stores; reads prefer the database since it
// holds the full retention window.
type PersistentResultRepository struct {
	mem       *MemoryResultRepository
	db        *db.DB
	retention int
}

func NewPersistentResultRepository(mem *MemoryResultRepository, database *db.DB, retention int) *PersistentResultRepository {
	if retention < 1 {
		retention = 1
	}
	return &PersistentResultRepository{mem: mem, db: database, retention: retention}
}

func (r *PersistentResultRepository) Append(ctx context.Context, result *uptimer.CheckResult) error {
	_ = r.mem.Append(ctx, result)
	if err := r.db.AppendResult(ctx, result, r.retention); err != nil {
		slog.Warn("db append result failed, in-memory only", "err", err)
	}
	return nil
}

func (r *PersistentResultRepository) List(ctx context.Context, monitorID string, limit int) ([]*uptimer.CheckResult, error) {
	limit = uptimer.ClampResultLimit(limit)
	results, err := r.db.ListResults(ctx, monitorID, limit)
	if err == nil {
		return results, nil
	}
	slog.Warn("db list results failed, falling back to in-memory", "err", err)
	return r.mem.List(ctx, monitorID, limit)
}
