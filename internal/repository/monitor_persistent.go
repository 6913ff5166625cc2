package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/mortenoh/uptimer/internal/db"
	"github.com/mortenoh/uptimer/internal/uptimer"
)

// PersistentMonitorRepository wraps a MemoryMonitorRepository with a
// PostgreSQL backend. Writes go to both stores (DB failure is logged but
// non-fatal). Reads try memory first, falling back to the database.
type PersistentMonitorRepository struct {
	mem *MemoryMonitorRepository
	db  *db.DB
}

func NewPersistentMonitorRepository(mem *MemoryMonitorRepository, database *db.DB) *PersistentMonitorRepository {
	return &PersistentMonitorRepository{mem: mem, db: database}
}

func (r *PersistentMonitorRepository) Create(ctx context.Context, monitor *uptimer.Monitor) error {
	_ = r.mem.Create(ctx, monitor)
	if err := r.db.CreateMonitor(ctx, monitor); err != nil {
		slog.Warn("db create monitor failed, in-memory only", "err", err)
	}
	return nil
}

func (r *PersistentMonitorRepository) Get(ctx context.Context, id string) (*uptimer.Monitor, error) {
	m, err := r.mem.Get(ctx, id)
	if err == nil {
		return m, nil
	}

	dbMonitor, dbErr := r.db.GetMonitor(ctx, id)
	if dbErr != nil {
		return nil, err // return original ErrNotFound
	}

	_ = r.mem.Create(ctx, dbMonitor)
	return dbMonitor, nil
}

func (r *PersistentMonitorRepository) Update(ctx context.Context, monitor *uptimer.Monitor) error {
	_ = r.mem.Update(ctx, monitor)
	if err := r.db.UpdateMonitor(ctx, monitor); err != nil {
		slog.Warn("db update monitor failed, in-memory only", "err", err)
	}
	return nil
}

func (r *PersistentMonitorRepository) Delete(ctx context.Context, id string) error {
	_ = r.mem.Delete(ctx, id)
	if err := r.db.DeleteMonitor(ctx, id); err != nil {
		slog.Warn("db delete monitor failed", "err", err)
	}
	return nil
}

func (r *PersistentMonitorRepository) List(ctx context.Context, tag string) ([]*uptimer.Monitor, error) {
	monitors, err := r.db.ListMonitors(ctx, tag)
	if err == nil {
		return monitors, nil
	}
	slog.Warn("db list monitors failed, falling back to in-memory", "err", err)
	return r.mem.List(ctx, tag)
}

func (r *PersistentMonitorRepository) ListTags(ctx context.Context) ([]string, error) {
	tags, err := r.db.ListMonitorTags(ctx)
	if err == nil {
		return tags, nil
	}
	slog.Warn("db list tags failed, falling back to in-memory", "err", err)
	return r.mem.ListTags(ctx)
}

func (r *PersistentMonitorRepository) UpdateMirror(ctx context.Context, id string, lastCheck time.Time, lastStatus uptimer.Status) error {
	_ = r.mem.UpdateMirror(ctx, id, lastCheck, lastStatus)
	if err := r.db.UpdateMonitorMirror(ctx, id, lastCheck, lastStatus); err != nil {
		slog.Warn("db update monitor mirror failed", "err", err)
	}
	return nil
}
