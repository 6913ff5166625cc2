// Package repository defines the persistence contracts for monitors, check
// results and scheduler jobs, with in-memory and PostgreSQL-backed
// implementations. Persistent repositories write through to the database and
// fall back to memory on read failures, so the engine keeps running through
// transient database outages.
package repository

import "github.com/mortenoh/uptimer/internal/uptimer"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = uptimer.ErrNotFound
