package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// CreateMonitor stores a new monitor.
func (d *DB) CreateMonitor(ctx context.Context, m *uptimer.Monitor) error {
	pipelineJSON, _ := json.Marshal(m.Pipeline)
	tagsJSON, _ := json.Marshal(m.Tags)

	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO monitors (id, name, url, pipeline, interval, schedule, enabled, tags, created_at, updated_at, last_check, last_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.ID, m.Name, m.URL, pipelineJSON, m.Interval, m.Schedule,
		m.Enabled, tagsJSON, m.CreatedAt, m.UpdatedAt, m.LastCheck, string(m.LastStatus),
	)
	if err != nil {
		return fmt.Errorf("insert monitor: %w", err)
	}
	return nil
}

// GetMonitor retrieves a monitor by ID.
func (d *DB) GetMonitor(ctx context.Context, id string) (*uptimer.Monitor, error) {
	row := d.Pool.QueryRowContext(ctx,
		`SELECT id, name, url, pipeline, interval, schedule, enabled, tags, created_at, updated_at, last_check, last_status
		 FROM monitors WHERE id = $1`, id,
	)
	m, err := scanMonitor(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("monitor not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get monitor: %w", err)
	}
	return m, nil
}

// UpdateMonitor updates an existing monitor.
func (d *DB) UpdateMonitor(ctx context.Context, m *uptimer.Monitor) error {
	pipelineJSON, _ := json.Marshal(m.Pipeline)
	tagsJSON, _ := json.Marshal(m.Tags)

	_, err := d.Pool.ExecContext(ctx,
		`UPDATE monitors SET name = $1, url = $2, pipeline = $3, interval = $4, schedule = $5, enabled = $6, tags = $7, updated_at = $8
		 WHERE id = $9`,
		m.Name, m.URL, pipelineJSON, m.Interval, m.Schedule, m.Enabled, tagsJSON, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("update monitor: %w", err)
	}
	return nil
}

// DeleteMonitor removes a monitor by ID. Results and scheduler jobs cascade.
func (d *DB) DeleteMonitor(ctx context.Context, id string) error {
	_, err := d.Pool.ExecContext(ctx, `DELETE FROM monitors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete monitor: %w", err)
	}
	return nil
}

// ListMonitors returns all monitors, optionally filtered by tag.
func (d *DB) ListMonitors(ctx context.Context, tag string) ([]*uptimer.Monitor, error) {
	query := `SELECT id, name, url, pipeline, interval, schedule, enabled, tags, created_at, updated_at, last_check, last_status
	          FROM monitors`
	args := []any{}
	if tag != "" {
		query += ` WHERE tags @> $1`
		tagJSON, _ := json.Marshal([]string{tag})
		args = append(args, tagJSON)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	defer rows.Close()

	var result []*uptimer.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan monitor: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// ListMonitorTags returns the union of all monitors' tags, sorted.
func (d *DB) ListMonitorTags(ctx context.Context) ([]string, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT DISTINCT t FROM monitors, jsonb_array_elements_text(tags) AS t ORDER BY t`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// UpdateMonitorMirror updates the denormalized last_check/last_status pair.
func (d *DB) UpdateMonitorMirror(ctx context.Context, id string, lastCheck time.Time, lastStatus uptimer.Status) error {
	_, err := d.Pool.ExecContext(ctx,
		`UPDATE monitors SET last_check = $1, last_status = $2 WHERE id = $3`,
		lastCheck, string(lastStatus), id,
	)
	if err != nil {
		return fmt.Errorf("update monitor mirror: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMonitor(row rowScanner) (*uptimer.Monitor, error) {
	m := &uptimer.Monitor{}
	var pipelineJSON, tagsJSON []byte
	var lastCheck sql.NullTime
	var lastStatus string

	if err := row.Scan(&m.ID, &m.Name, &m.URL, &pipelineJSON, &m.Interval, &m.Schedule,
		&m.Enabled, &tagsJSON, &m.CreatedAt, &m.UpdatedAt, &lastCheck, &lastStatus,
	); err != nil {
		return nil, err
	}

	json.Unmarshal(pipelineJSON, &m.Pipeline)
	json.Unmarshal(tagsJSON, &m.Tags)
	if lastCheck.Valid {
		t := lastCheck.Time
		m.LastCheck = &t
	}
	m.LastStatus = uptimer.Status(lastStatus)
	return m, nil
}
