package uptimer

import "time"

// Status is the outcome of a check, for a single stage or a whole pipeline.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// rank orders statuses for worst-of aggregation: up < degraded < down.
func (s Status) rank() int {
	switch s {
	case StatusDown:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// Worst returns the more severe of two statuses.
func Worst(a, b Status) Status {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// StageSpec is one entry of a monitor pipeline: an open key/value map with a
// required "type" key naming a registered stage. Remaining keys are
// stage-specific options validated by the stage constructor.
type StageSpec map[string]any

// Type returns the stage type named by the spec, or "" if absent.
func (s StageSpec) Type() string {
	t, _ := s["type"].(string)
	return t
}

// Options returns a copy of the spec without the "type" key.
func (s StageSpec) Options() map[string]any {
	opts := make(map[string]any, len(s))
	for k, v := range s {
		if k != "type" {
			opts[k] = v
		}
	}
	return opts
}

// Monitor binds a target URL to a pipeline of stages and a check cadence.
type Monitor struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	URL      string      `json:"url"`
	Pipeline []StageSpec `json:"pipeline"`
	Interval int         `json:"interval"`           // seconds; used when Schedule is empty
	Schedule string      `json:"schedule,omitempty"` // 5-field cron; wins over Interval
	Enabled  bool        `json:"enabled"`
	Tags     []string    `json:"tags"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Denormalized mirror of the newest result, for cheap listing. May lag.
	LastCheck  *time.Time `json:"last_check,omitempty"`
	LastStatus Status     `json:"last_status,omitempty"`
}

// HasTag reports whether the monitor carries the given tag.
func (m *Monitor) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MonitorPatch is a partial monitor update. Nil fields are left unchanged.
type MonitorPatch struct {
	Name     *string     `json:"name,omitempty"`
	URL      *string     `json:"url,omitempty"`
	Pipeline []StageSpec `json:"pipeline,omitempty"`
	Interval *int        `json:"interval,omitempty"`
	Schedule *string     `json:"schedule,omitempty"`
	Enabled  *bool       `json:"enabled,omitempty"`
	Tags     []string    `json:"tags,omitempty"`
}

// TouchesTrigger reports whether applying the patch can change when or
// whether the monitor is scheduled. Cosmetic updates (name, tags) do not
// require a scheduler re-sync.
func (p *MonitorPatch) TouchesTrigger() bool {
	return p.Interval != nil || p.Schedule != nil || p.Enabled != nil
}

// CheckResult is the durable outcome of one pipeline execution.
type CheckResult struct {
	ID        string         `json:"id"`
	MonitorID string         `json:"monitor_id"`
	Status    Status         `json:"status"`
	Message   string         `json:"message"`
	ElapsedMS float64        `json:"elapsed_ms"`
	Details   map[string]any `json:"details"`
	CheckedAt time.Time      `json:"checked_at"`
}

// Trigger kinds persisted in SchedulerJob records.
const (
	TriggerCron     = "cron"
	TriggerInterval = "interval"
)

// SchedulerJob is the persisted state of one scheduled monitor. The scheduler
// owns this collection; it exists so schedules survive restarts.
type SchedulerJob struct {
	MonitorID   string    `json:"monitor_id"`
	TriggerKind string    `json:"trigger_kind"` // "cron" | "interval"
	TriggerSpec string    `json:"trigger_spec"` // cron expression or seconds
	NextRunAt   time.Time `json:"next_run_at"`
	LastUpdated time.Time `json:"last_updated"`
}
