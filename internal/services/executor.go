package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mortenoh/uptimer/internal/repository"
	"github.com/mortenoh/uptimer/internal/stages"
	"github.com/mortenoh/uptimer/internal/uptimer"
)

const (
	// defaultStageTimeout bounds stages that do not hint their own timeout.
	defaultStageTimeout = 30 * time.Second

	// pipelineSlack is the fraction added to the sum of stage timeouts to
	// form the whole-pipeline budget.
	pipelineSlack = 0.1

	// maxMessageLen truncates the aggregate result message.
	maxMessageLen = 1024
)

// Executor instantiates pipeline stages, runs them in order and merges their
// verdicts into one CheckResult. Both the scheduler workers and ad-hoc API
// calls run through here.
type Executor struct {
	registry *stages.Registry
	monitors repository.MonitorRepository
	results  repository.ResultRepository
}

func NewExecutor(registry *stages.Registry, monitors repository.MonitorRepository, results repository.ResultRepository) *Executor {
	return &Executor{registry: registry, monitors: monitors, results: results}
}

// ValidatePipeline checks a pipeline at monitor ingestion time: every stage
// must construct, and at least one stage must be a network stage.
func (e *Executor) ValidatePipeline(pipeline []uptimer.StageSpec) error {
	if len(pipeline) == 0 {
		return &uptimer.BadPipelineError{Reason: "pipeline cannot be empty"}
	}
	hasNetwork := false
	for i, spec := range pipeline {
		st, err := e.registry.Build(spec, i)
		if err != nil {
			return err
		}
		if st.IsNetworkStage() {
			hasNetwork = true
		}
	}
	if !hasNetwork {
		return &uptimer.BadPipelineError{Reason: "pipeline needs at least one network stage"}
	}
	return nil
}

// stageOutcome carries one stage's verdict plus the goroutine-boundary error.
type stageOutcome struct {
	result *stages.Result
}

// RunCheck executes a monitor's pipeline, persists the result and updates
// the monitor's last_check/last_status mirror. Stage failures are data, not
// errors: they surface as down statuses inside the returned result.
func (e *Executor) RunCheck(ctx context.Context, monitor *uptimer.Monitor, verbose bool) *uptimer.CheckResult {
	started := time.Now().UTC()

	built, budget, invalid := e.buildPipeline(monitor.Pipeline)
	if invalid != "" {
		return e.finish(ctx, monitor, &uptimer.CheckResult{
			ID:        uptimer.NewID(),
			MonitorID: monitor.ID,
			Status:    uptimer.StatusDown,
			Message:   invalid,
			Details:   map[string]any{},
			CheckedAt: started,
		})
	}

	cc := uptimer.NewCheckContext(monitor.URL)
	deadline := time.Now().Add(budget)

	details := map[string]any{}
	var messages []string
	status := uptimer.StatusUp
	timedOut := false

	for i, b := range built {
		name := b.name
		key := detailKey(details, name, i)

		if b.err != nil {
			// Configuration errors at run time become a stage
			// verdict carrying the validation message.
			messages = append(messages, fmt.Sprintf("%s: %s", name, b.err.Error()))
			details[key] = map[string]any{"error": b.err.Error()}
			status = uptimer.StatusDown
			break
		}

		res, ok := e.runStage(ctx, b, monitor.URL, verbose, cc, deadline)
		if !ok {
			timedOut = true
			break
		}

		messages = append(messages, fmt.Sprintf("%s: %s", name, res.Message))
		if res.Details != nil {
			details[key] = res.Details
		}
		status = uptimer.Worst(status, res.Status)
		if res.Status == uptimer.StatusDown {
			break
		}
	}

	// Snapshot, never alias: a timed-out stage goroutine may still write to
	// the live map while the result is being encoded.
	if values := cc.SnapshotValues(); len(values) > 0 {
		details["_values"] = values
	}

	result := &uptimer.CheckResult{
		ID:        uptimer.NewID(),
		MonitorID: monitor.ID,
		Status:    status,
		Message:   truncate(strings.Join(messages, "; "), maxMessageLen),
		ElapsedMS: float64(time.Since(started)) / float64(time.Millisecond),
		Details:   details,
		CheckedAt: started,
	}
	if timedOut {
		result.Status = uptimer.StatusDown
		result.Message = "pipeline_timeout"
	}

	return e.finish(ctx, monitor, result)
}

// builtStage pairs a constructed stage with its spec position. A nil stage
// with a non-nil err records a construction failure surfaced at run time.
type builtStage struct {
	name    string
	stage   stages.Stage
	timeout time.Duration
	err     error
}

// buildPipeline constructs all stages up front so the pipeline budget can be
// computed from their timeouts. A structurally invalid pipeline (empty, or
// without any network stage) yields a non-empty invalid message.
func (e *Executor) buildPipeline(pipeline []uptimer.StageSpec) ([]builtStage, time.Duration, string) {
	if len(pipeline) == 0 {
		return nil, 0, "pipeline_invalid"
	}

	built := make([]builtStage, 0, len(pipeline))
	hasNetwork := false
	var sum time.Duration

	for i, spec := range pipeline {
		name := spec.Type()
		if info, ok := e.registry.Info(name); ok && info.IsNetworkStage {
			hasNetwork = true
		}

		st, err := e.registry.Build(spec, i)
		if err != nil {
			built = append(built, builtStage{name: name, err: err, timeout: defaultStageTimeout})
			sum += defaultStageTimeout
			continue
		}

		timeout := defaultStageTimeout
		if h, ok := st.(stages.TimeoutHinter); ok {
			timeout = h.Timeout()
		}
		built = append(built, builtStage{name: name, stage: st, timeout: timeout})
		sum += timeout
	}

	if !hasNetwork {
		return nil, 0, "pipeline_invalid"
	}

	budget := time.Duration(float64(sum) * (1 + pipelineSlack))
	return built, budget, ""
}

// runStage executes one stage under its hard timeout. The second return is
// false when the whole-pipeline budget expired. Panics inside a stage become
// down verdicts.
func (e *Executor) runStage(ctx context.Context, b builtStage, url string, verbose bool, cc *uptimer.CheckContext, deadline time.Time) (res *stages.Result, ok bool) {
	// The per-stage context is cancelled when runStage returns, so a stage
	// that overran its hard timeout gets told to stop instead of running on.
	stageCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	done := make(chan stageOutcome, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("executor: stage panicked", "stage", b.name, "panic", r)
				done <- stageOutcome{result: &stages.Result{
					Status:  uptimer.StatusDown,
					Message: fmt.Sprintf("panic: %v", r),
				}}
			}
		}()
		done <- stageOutcome{result: b.stage.Check(stageCtx, url, verbose, cc)}
	}()

	remaining := time.Until(deadline)
	stageTimer := time.NewTimer(b.timeout)
	defer stageTimer.Stop()
	pipelineTimer := time.NewTimer(remaining)
	defer pipelineTimer.Stop()

	select {
	case out := <-done:
		if out.result.ElapsedMS == 0 {
			out.result.ElapsedMS = float64(time.Since(start)) / float64(time.Millisecond)
		}
		return out.result, true
	case <-stageTimer.C:
		return &stages.Result{
			Status:    uptimer.StatusDown,
			Message:   "timeout",
			ElapsedMS: float64(time.Since(start)) / float64(time.Millisecond),
		}, true
	case <-pipelineTimer.C:
		return nil, false
	}
}

// finish persists the result and refreshes the monitor mirror. Storage
// failures are logged and the result is still returned; results are
// re-derivable and a single dropped append must not crash a worker.
func (e *Executor) finish(ctx context.Context, monitor *uptimer.Monitor, result *uptimer.CheckResult) *uptimer.CheckResult {
	if err := e.results.Append(ctx, result); err != nil {
		slog.Error("executor: append result failed", "monitor", monitor.ID, "err", err)
	}
	if err := e.monitors.UpdateMirror(ctx, monitor.ID, result.CheckedAt, result.Status); err != nil {
		slog.Warn("executor: update mirror failed", "monitor", monitor.ID, "err", err)
	}
	return result
}

// detailKey disambiguates repeated stage types with their pipeline index.
func detailKey(details map[string]any, name string, index int) string {
	if _, taken := details[name]; !taken {
		return name
	}
	return fmt.Sprintf("%s#%d", name, index)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
