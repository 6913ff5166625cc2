package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// MemoryMonitorRepository stores monitors in memory.
type MemoryMonitorRepository struct {
	mu       sync.RWMutex
	monitors map[string]*uptimer.Monitor
}

func NewMemoryMonitorRepository() *MemoryMonitorRepository {
	return &MemoryMonitorRepository{monitors: make(map[string]*uptimer.Monitor)}
}

func (r *MemoryMonitorRepository) Create(ctx context.Context, monitor *uptimer.Monitor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.monitors[monitor.ID] = cloneMonitor(monitor)
	return nil
}

func (r *MemoryMonitorRepository) Get(ctx context.Context, id string) (*uptimer.Monitor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.monitors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneMonitor(m), nil
}

func (r *MemoryMonitorRepository) Update(ctx context.Context, monitor *uptimer.Monitor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.monitors[monitor.ID]; !ok {
		return ErrNotFound
	}
	r.monitors[monitor.ID] = cloneMonitor(monitor)
	return nil
}

func (r *MemoryMonitorRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.monitors[id]; !ok {
		return ErrNotFound
	}
	delete(r.monitors, id)
	return nil
}

func (r *MemoryMonitorRepository) List(ctx context.Context, tag string) ([]*uptimer.Monitor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*uptimer.Monitor, 0, len(r.monitors))
	for _, m := range r.monitors {
		if tag != "" && !m.HasTag(tag) {
			continue
		}
		out = append(out, cloneMonitor(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryMonitorRepository) ListTags(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	for _, m := range r.monitors {
		for _, t := range m.Tags {
			seen[t] = true
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

func (r *MemoryMonitorRepository) UpdateMirror(ctx context.Context, id string, lastCheck time.Time, lastStatus uptimer.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.monitors[id]
	if !ok {
		return ErrNotFound
	}
	checked := lastCheck
	m.LastCheck = &checked
	m.LastStatus = lastStatus
	return nil
}

// cloneMonitor copies a monitor so callers cannot mutate stored state.
func cloneMonitor(m *uptimer.Monitor) *uptimer.Monitor {
	out := *m
	if m.Pipeline != nil {
		out.Pipeline = make([]uptimer.StageSpec, len(m.Pipeline))
		for i, spec := range m.Pipeline {
			copied := make(uptimer.StageSpec, len(spec))
			for k, v := range spec {
				copied[k] = v
			}
			out.Pipeline[i] = copied
		}
	}
	if m.Tags != nil {
		out.Tags = append([]string(nil), m.Tags...)
	}
	if m.LastCheck != nil {
		checked := *m.LastCheck
		out.LastCheck = &checked
	}
	return &out
}
