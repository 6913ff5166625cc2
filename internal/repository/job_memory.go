package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// MemoryJobRepository stores scheduler jobs in memory.
type MemoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*uptimer.SchedulerJob
}

func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{jobs: make(map[string]*uptimer.SchedulerJob)}
}

func (r *MemoryJobRepository) Upsert(ctx context.Context, job *uptimer.SchedulerJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *job
	r.jobs[job.MonitorID] = &copied
	return nil
}

func (r *MemoryJobRepository) Delete(ctx context.Context, monitorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, monitorID)
	return nil
}

func (r *MemoryJobRepository) All(ctx context.Context) ([]*uptimer.SchedulerJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*uptimer.SchedulerJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		copied := *job
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonitorID < out[j].MonitorID })
	return out, nil
}
