package repository

import (
	"context"
	"testing"
	"time"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

func TestMemoryJobRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryJobRepository()

	job := &uptimer.SchedulerJob{
		MonitorID:   "m1",
		TriggerKind: uptimer.TriggerInterval,
		TriggerSpec: "60",
		NextRunAt:   time.Now().UTC().Add(time.Minute),
		LastUpdated: time.Now().UTC(),
	}
	if err := repo.Upsert(ctx, job); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// Upsert with the same monitor ID replaces, never duplicates.
	job.TriggerKind = uptimer.TriggerCron
	job.TriggerSpec = "*/5 * * * *"
	if err := repo.Upsert(ctx, job); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}

	jobs, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("len = %d", len(jobs))
	}
	if jobs[0].TriggerKind != uptimer.TriggerCron || jobs[0].TriggerSpec != "*/5 * * * *" {
		t.Fatalf("job not replaced: %+v", jobs[0])
	}
}

func TestMemoryJobRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryJobRepository()
	repo.Upsert(ctx, &uptimer.SchedulerJob{MonitorID: "m1", TriggerKind: uptimer.TriggerInterval, TriggerSpec: "30"})

	if err := repo.Delete(ctx, "m1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	// Deleting a missing job is not an error; the scheduler reconciler
	// calls this blindly.
	if err := repo.Delete(ctx, "m1"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	jobs, _ := repo.All(ctx)
	if len(jobs) != 0 {
		t.Fatalf("jobs remain: %v", jobs)
	}
}
