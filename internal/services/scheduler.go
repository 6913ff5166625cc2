package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mortenoh/uptimer/internal/repository"
	"github.com/mortenoh/uptimer/internal/uptimer"
)

// shutdownGrace bounds how long Stop waits for in-flight checks.
const shutdownGrace = 30 * time.Second

// Scheduler fires monitor checks on their interval or cron trigger. It wraps
// robfig/cron, persists job state so schedules survive restarts, and submits
// work through the shared CheckLimiter.
type Scheduler struct {
	cron     *cron.Cron
	monitors repository.MonitorRepository
	jobs     repository.JobRepository
	results  repository.ResultRepository
	executor *Executor
	limiter  *CheckLimiter

	mu       sync.Mutex
	entryMap map[string]cron.EntryID // monitor ID → cron entry
	running  map[string]bool         // overlap guard, one run per monitor
	overlaps map[string]int          // consecutive overlap skips per monitor

	wg      sync.WaitGroup
	baseCtx context.Context
}

func NewScheduler(
	monitors repository.MonitorRepository,
	jobs repository.JobRepository,
	results repository.ResultRepository,
	executor *Executor,
	limiter *CheckLimiter,
) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		monitors: monitors,
		jobs:     jobs,
		results:  results,
		executor: executor,
		limiter:  limiter,
		entryMap: make(map[string]cron.EntryID),
		running:  make(map[string]bool),
		overlaps: make(map[string]int),
		baseCtx:  context.Background(),
	}
}

// Start reconciles persisted jobs against the monitor collection, registers
// cron entries for every enabled monitor and begins firing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.baseCtx = ctx

	monitors, err := s.monitors.List(ctx, "")
	if err != nil {
		slog.Warn("scheduler: failed to load monitors", "err", err)
		monitors = nil
	}
	known := make(map[string]bool, len(monitors))
	scheduled := 0
	for _, m := range monitors {
		known[m.ID] = true
		if !m.Enabled {
			continue
		}
		if err := s.Schedule(ctx, m); err != nil {
			slog.Warn("scheduler: failed to register monitor", "id", m.ID, "err", err)
			continue
		}
		scheduled++
	}

	// Persisted jobs for unknown or disabled monitors are stale.
	jobs, err := s.jobs.All(ctx)
	if err != nil {
		slog.Warn("scheduler: failed to load jobs", "err", err)
	}
	for _, job := range jobs {
		s.mu.Lock()
		_, active := s.entryMap[job.MonitorID]
		s.mu.Unlock()
		if known[job.MonitorID] && active {
			continue
		}
		if err := s.jobs.Delete(ctx, job.MonitorID); err != nil {
			slog.Warn("scheduler: failed to drop stale job", "monitor", job.MonitorID, "err", err)
		}
	}

	s.cron.Start()
	slog.Info("scheduler: started", "monitors", scheduled)
	return nil
}

// Stop stops firing and waits up to 30s for in-flight checks to finish.
func (s *Scheduler) Stop() {
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("scheduler: stopped")
	case <-time.After(shutdownGrace):
		slog.Warn("scheduler: stopped with checks still in flight")
	}
}

// Schedule registers (or re-registers) a monitor's trigger and persists its
// job state. Disabled monitors are unscheduled instead.
func (s *Scheduler) Schedule(ctx context.Context, monitor *uptimer.Monitor) error {
	if !monitor.Enabled {
		return s.Unschedule(ctx, monitor.ID)
	}

	kind, spec, sched, err := triggerFor(monitor)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if entryID, ok := s.entryMap[monitor.ID]; ok {
		s.cron.Remove(entryID)
		delete(s.entryMap, monitor.ID)
	}
	id := monitor.ID
	entryID := s.cron.Schedule(sched, cron.FuncJob(func() { s.fire(id) }))
	s.entryMap[monitor.ID] = entryID
	s.mu.Unlock()

	job := &uptimer.SchedulerJob{
		MonitorID:   monitor.ID,
		TriggerKind: kind,
		TriggerSpec: spec,
		NextRunAt:   sched.Next(time.Now()),
		LastUpdated: time.Now().UTC(),
	}
	if err := s.jobs.Upsert(ctx, job); err != nil {
		slog.Warn("scheduler: failed to persist job", "monitor", monitor.ID, "err", err)
	}
	return nil
}

// Unschedule removes a monitor's cron entry and persisted job.
func (s *Scheduler) Unschedule(ctx context.Context, monitorID string) error {
	s.mu.Lock()
	if entryID, ok := s.entryMap[monitorID]; ok {
		s.cron.Remove(entryID)
		delete(s.entryMap, monitorID)
	}
	delete(s.running, monitorID)
	delete(s.overlaps, monitorID)
	s.mu.Unlock()

	return s.jobs.Delete(ctx, monitorID)
}

// fire runs one scheduled check. Overlapping fires are skipped; after two
// consecutive skips a single degraded "overlapped" result is recorded.
func (s *Scheduler) fire(monitorID string) {
	s.mu.Lock()
	if s.running[monitorID] {
		s.overlaps[monitorID]++
		count := s.overlaps[monitorID]
		if count >= 2 {
			s.overlaps[monitorID] = 0
			s.mu.Unlock()
			s.recordOverlap(monitorID)
			return
		}
		s.mu.Unlock()
		slog.Warn("scheduler: skipping overlapping fire", "monitor", monitorID)
		return
	}
	s.running[monitorID] = true
	s.overlaps[monitorID] = 0
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, monitorID)
			s.mu.Unlock()
		}()
		s.runScheduled(monitorID)
	}()
}

func (s *Scheduler) runScheduled(monitorID string) {
	ctx := s.baseCtx
	if err := s.limiter.Acquire(ctx); err != nil {
		slog.Warn("scheduler: limiter acquire failed", "monitor", monitorID, "err", err)
		return
	}
	defer s.limiter.Release()

	// Fresh snapshot: the monitor may have changed since registration.
	monitor, err := s.monitors.Get(ctx, monitorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Info("scheduler: monitor gone, unscheduling", "monitor", monitorID)
			_ = s.Unschedule(ctx, monitorID)
			return
		}
		slog.Warn("scheduler: load monitor failed", "monitor", monitorID, "err", err)
		return
	}
	if !monitor.Enabled {
		_ = s.Unschedule(ctx, monitorID)
		return
	}

	result := s.executor.RunCheck(ctx, monitor, false)
	slog.Info("scheduler: check complete",
		"monitor", monitor.ID, "name", monitor.Name,
		"status", result.Status, "elapsed_ms", result.ElapsedMS)

	s.refreshNextRun(ctx, monitor)
}

// refreshNextRun updates the persisted next-run hint after a fire.
func (s *Scheduler) refreshNextRun(ctx context.Context, monitor *uptimer.Monitor) {
	s.mu.Lock()
	entryID, ok := s.entryMap[monitor.ID]
	s.mu.Unlock()
	if !ok {
		return
	}
	entry := s.cron.Entry(entryID)
	if !entry.Valid() {
		return
	}

	kind, spec := triggerKindSpec(monitor)
	job := &uptimer.SchedulerJob{
		MonitorID:   monitor.ID,
		TriggerKind: kind,
		TriggerSpec: spec,
		NextRunAt:   entry.Next,
		LastUpdated: time.Now().UTC(),
	}
	if err := s.jobs.Upsert(ctx, job); err != nil {
		slog.Warn("scheduler: failed to refresh job", "monitor", monitor.ID, "err", err)
	}
}

// recordOverlap stores the degraded marker result for a persistently
// overlapping monitor.
func (s *Scheduler) recordOverlap(monitorID string) {
	now := time.Now().UTC()
	result := &uptimer.CheckResult{
		ID:        uptimer.NewID(),
		MonitorID: monitorID,
		Status:    uptimer.StatusDegraded,
		Message:   "overlapped",
		Details:   map[string]any{},
		CheckedAt: now,
	}
	if err := s.results.Append(s.baseCtx, result); err != nil {
		slog.Warn("scheduler: failed to record overlap", "monitor", monitorID, "err", err)
	}
	slog.Warn("scheduler: repeated overlapping fires", "monitor", monitorID)
}

// triggerFor derives the cron schedule for a monitor. A non-empty cron
// expression wins over the interval.
func triggerFor(monitor *uptimer.Monitor) (kind, spec string, sched cron.Schedule, err error) {
	if monitor.Schedule != "" {
		sched, err = cron.ParseStandard(monitor.Schedule)
		if err != nil {
			return "", "", nil, fmt.Errorf("invalid cron expression %q: %w", monitor.Schedule, err)
		}
		return uptimer.TriggerCron, monitor.Schedule, sched, nil
	}
	if monitor.Interval <= 0 {
		return "", "", nil, fmt.Errorf("monitor %s has no usable trigger", monitor.ID)
	}
	every := cron.Every(time.Duration(monitor.Interval) * time.Second)
	return uptimer.TriggerInterval, strconv.Itoa(monitor.Interval), every, nil
}

func triggerKindSpec(monitor *uptimer.Monitor) (string, string) {
	if monitor.Schedule != "" {
		return uptimer.TriggerCron, monitor.Schedule
	}
	return uptimer.TriggerInterval, strconv.Itoa(monitor.Interval)
}
