package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/mortenoh/uptimer/internal/repository"
	"github.com/mortenoh/uptimer/internal/uptimer"
)

// defaultInterval is applied when a monitor has neither an interval nor a
// cron schedule.
const defaultInterval = 60

// MonitorService owns monitor CRUD, validation and the scheduler sync that
// follows every mutating call.
type MonitorService struct {
	monitors  repository.MonitorRepository
	results   repository.ResultRepository
	executor  *Executor
	scheduler *Scheduler
}

func NewMonitorService(
	monitors repository.MonitorRepository,
	results repository.ResultRepository,
	executor *Executor,
	scheduler *Scheduler,
) *MonitorService {
	return &MonitorService{
		monitors:  monitors,
		results:   results,
		executor:  executor,
		scheduler: scheduler,
	}
}

// Create validates and stores a new monitor, scheduling it when enabled.
func (s *MonitorService) Create(ctx context.Context, monitor *uptimer.Monitor) (*uptimer.Monitor, error) {
	name, err := uptimer.ValidateName(monitor.Name)
	if err != nil {
		return nil, err
	}
	monitor.Name = name

	normalized, err := uptimer.NormalizeURL(monitor.URL)
	if err != nil {
		return nil, err
	}
	monitor.URL = normalized

	if monitor.Interval == 0 && monitor.Schedule == "" {
		monitor.Interval = defaultInterval
	}
	if monitor.Schedule != "" {
		if err := uptimer.ValidateSchedule(monitor.Schedule); err != nil {
			return nil, err
		}
	} else if err := uptimer.ValidateInterval(monitor.Interval); err != nil {
		return nil, err
	}

	if err := s.executor.ValidatePipeline(monitor.Pipeline); err != nil {
		return nil, err
	}

	monitor.ID = uptimer.NewID()
	monitor.Tags = uptimer.DedupeTags(monitor.Tags)
	now := time.Now().UTC()
	monitor.CreatedAt = now
	monitor.UpdatedAt = now

	if err := s.monitors.Create(ctx, monitor); err != nil {
		return nil, err
	}

	if monitor.Enabled {
		if err := s.scheduler.Schedule(ctx, monitor); err != nil {
			slog.Warn("monitors: scheduling after create failed", "id", monitor.ID, "err", err)
		}
	}
	return monitor, nil
}

// Get retrieves a monitor by ID.
func (s *MonitorService) Get(ctx context.Context, id string) (*uptimer.Monitor, error) {
	return s.monitors.Get(ctx, id)
}

// List returns monitors, optionally filtered by tag.
func (s *MonitorService) List(ctx context.Context, tag string) ([]*uptimer.Monitor, error) {
	return s.monitors.List(ctx, tag)
}

// ListTags returns the union of all monitors' tags, sorted.
func (s *MonitorService) ListTags(ctx context.Context) ([]string, error) {
	return s.monitors.ListTags(ctx)
}

// Update applies a partial update. Trigger-affecting changes re-register the
// monitor with the scheduler; cosmetic changes do not.
func (s *MonitorService) Update(ctx context.Context, id string, patch *uptimer.MonitorPatch) (*uptimer.Monitor, error) {
	monitor, err := s.monitors.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name, err := uptimer.ValidateName(*patch.Name)
		if err != nil {
			return nil, err
		}
		monitor.Name = name
	}
	if patch.URL != nil {
		normalized, err := uptimer.NormalizeURL(*patch.URL)
		if err != nil {
			return nil, err
		}
		monitor.URL = normalized
	}
	if patch.Interval != nil {
		if err := uptimer.ValidateInterval(*patch.Interval); err != nil {
			return nil, err
		}
		monitor.Interval = *patch.Interval
	}
	if patch.Schedule != nil {
		if err := uptimer.ValidateSchedule(*patch.Schedule); err != nil {
			return nil, err
		}
		monitor.Schedule = *patch.Schedule
	}
	if patch.Enabled != nil {
		monitor.Enabled = *patch.Enabled
	}
	if patch.Pipeline != nil {
		if err := s.executor.ValidatePipeline(patch.Pipeline); err != nil {
			return nil, err
		}
		monitor.Pipeline = patch.Pipeline
	}
	if patch.Tags != nil {
		monitor.Tags = uptimer.DedupeTags(patch.Tags)
	}
	monitor.UpdatedAt = time.Now().UTC()

	if err := s.monitors.Update(ctx, monitor); err != nil {
		return nil, err
	}

	if patch.TouchesTrigger() {
		if err := s.scheduler.Schedule(ctx, monitor); err != nil {
			slog.Warn("monitors: rescheduling after update failed", "id", monitor.ID, "err", err)
		}
	}
	return monitor, nil
}

// Delete removes a monitor and its scheduler job. Existing results are kept
// as orphan history.
func (s *MonitorService) Delete(ctx context.Context, id string) error {
	if _, err := s.monitors.Get(ctx, id); err != nil {
		return err
	}
	if err := s.scheduler.Unschedule(ctx, id); err != nil {
		slog.Warn("monitors: unschedule on delete failed", "id", id, "err", err)
	}
	return s.monitors.Delete(ctx, id)
}

// RunCheck executes a monitor's pipeline immediately, bypassing the
// scheduler, and returns the persisted result.
func (s *MonitorService) RunCheck(ctx context.Context, id string, verbose bool) (*uptimer.CheckResult, error) {
	monitor, err := s.monitors.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.executor.RunCheck(ctx, monitor, verbose), nil
}

// Results returns up to limit historical results for a monitor, newest
// first.
func (s *MonitorService) Results(ctx context.Context, id string, limit int) ([]*uptimer.CheckResult, error) {
	if _, err := s.monitors.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.results.List(ctx, id, limit)
}
