package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// AppendResult stores a check result, idempotent by ID, then evicts the
// oldest results for the monitor beyond the retention limit.
func (d *DB) AppendResult(ctx context.Context, r *uptimer.CheckResult, retention int) error {
	detailsJSON, _ := json.Marshal(r.Details)

	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO results (id, monitor_id, status, message, elapsed_ms, details, checked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		r.ID, r.MonitorID, string(r.Status), r.Message, r.ElapsedMS, detailsJSON, r.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	_, err = d.Pool.ExecContext(ctx,
		`DELETE FROM results WHERE monitor_id = $1 AND id NOT IN (
		     SELECT id FROM results WHERE monitor_id = $1
		     ORDER BY checked_at DESC LIMIT $2
		 )`,
		r.MonitorID, retention,
	)
	if err != nil {
		return fmt.Errorf("evict results: %w", err)
	}
	return nil
}

// ListResults returns up to limit results for a monitor, newest first.
func (d *DB) ListResults(ctx context.Context, monitorID string, limit int) ([]*uptimer.CheckResult, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT id, monitor_id, status, message, elapsed_ms, details, checked_at
		 FROM results WHERE monitor_id = $1
		 ORDER BY checked_at DESC LIMIT $2`,
		monitorID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var result []*uptimer.CheckResult
	for rows.Next() {
		r := &uptimer.CheckResult{}
		var detailsJSON []byte
		var status string
		if err := rows.Scan(&r.ID, &r.MonitorID, &status, &r.Message, &r.ElapsedMS, &detailsJSON, &r.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Status = uptimer.Status(status)
		json.Unmarshal(detailsJSON, &r.Details)
		result = append(result, r)
	}
	return result, rows.Err()
}
