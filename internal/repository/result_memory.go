package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// MemoryResultRepository stores check results in memory, newest first per
// monitor, bounded by the retention limit.
type MemoryResultRepository struct {
	mu        sync.RWMutex
	retention int
	results   map[string][]*uptimer.CheckResult // monitor ID -> newest first
	seen      map[string]bool                   // result IDs, for idempotent appends
}

func NewMemoryResultRepository(retention int) *MemoryResultRepository {
	if retention < 1 {
		retention = 1
	}
	return &MemoryResultRepository{
		retention: retention,
		results:   make(map[string][]*uptimer.CheckResult),
		seen:      make(map[string]bool),
	}
}

func (r *MemoryResultRepository) Append(ctx context.Context, result *uptimer.CheckResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seen[result.ID] {
		return nil
	}
	r.seen[result.ID] = true

	copied := *result
	list := append(r.results[result.MonitorID], &copied)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CheckedAt.After(list[j].CheckedAt)
	})
	for len(list) > r.retention {
		evicted := list[len(list)-1]
		delete(r.seen, evicted.ID)
		list = list[:len(list)-1]
	}
	r.results[result.MonitorID] = list
	return nil
}

func (r *MemoryResultRepository) List(ctx context.Context, monitorID string, limit int) ([]*uptimer.CheckResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit = uptimer.ClampResultLimit(limit)
	list := r.results[monitorID]
	if limit > len(list) {
		limit = len(list)
	}
	out := make([]*uptimer.CheckResult, limit)
	for i := 0; i < limit; i++ {
		copied := *list[i]
		out[i] = &copied
	}
	return out, nil
}
