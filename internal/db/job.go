package db

import (
	"context"
	"fmt"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// UpsertJob stores or replaces a scheduler job keyed by monitor ID.
func (d *DB) UpsertJob(ctx context.Context, j *uptimer.SchedulerJob) error {
	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO scheduler_jobs (monitor_id, trigger_kind, trigger_spec, next_run_at, last_updated)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (monitor_id) DO UPDATE SET
		     trigger_kind = EXCLUDED.trigger_kind,
		     trigger_spec = EXCLUDED.trigger_spec,
		     next_run_at = EXCLUDED.next_run_at,
		     last_updated = EXCLUDED.last_updated`,
		j.MonitorID, j.TriggerKind, j.TriggerSpec, j.NextRunAt, j.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}
	return nil
}

// DeleteJob removes a scheduler job by monitor ID.
func (d *DB) DeleteJob(ctx context.Context, monitorID string) error {
	_, err := d.Pool.ExecContext(ctx, `DELETE FROM scheduler_jobs WHERE monitor_id = $1`, monitorID)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// ListJobs returns all scheduler jobs.
func (d *DB) ListJobs(ctx context.Context) ([]*uptimer.SchedulerJob, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT monitor_id, trigger_kind, trigger_spec, next_run_at, last_updated
		 FROM scheduler_jobs ORDER BY monitor_id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var result []*uptimer.SchedulerJob
	for rows.Next() {
		j := &uptimer.SchedulerJob{}
		if err := rows.Scan(&j.MonitorID, &j.TriggerKind, &j.TriggerSpec, &j.NextRunAt, &j.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		result = append(result, j)
	}
	return result, rows.Err()
}
