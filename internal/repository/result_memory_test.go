package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

func testResult(id, monitorID string, checkedAt time.Time) *uptimer.CheckResult {
	return &uptimer.CheckResult{
		ID:        id,
		MonitorID: monitorID,
		Status:    uptimer.StatusUp,
		Message:   "http: 200",
		CheckedAt: checkedAt,
	}
}

func TestMemoryResultRepositoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryResultRepository(100)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		repo.Append(ctx, testResult(fmt.Sprintf("r%d", i), "m1", base.Add(time.Duration(i)*time.Second)))
	}

	results, err := repo.List(ctx, "m1", 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len = %d", len(results))
	}
	if results[0].ID != "r4" || results[2].ID != "r2" {
		t.Fatalf("order wrong: %s, %s, %s", results[0].ID, results[1].ID, results[2].ID)
	}
}

func TestMemoryResultRepositoryRetention(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryResultRepository(3)

	base := time.Now().UTC()
	for i := 0; i < 10; i++ {
		repo.Append(ctx, testResult(fmt.Sprintf("r%d", i), "m1", base.Add(time.Duration(i)*time.Second)))
	}

	results, _ := repo.List(ctx, "m1", 100)
	if len(results) != 3 {
		t.Fatalf("len = %d, want retention cap 3", len(results))
	}
	if results[0].ID != "r9" || results[2].ID != "r7" {
		t.Fatalf("kept wrong results: %s..%s", results[0].ID, results[2].ID)
	}
}

func TestMemoryResultRepositoryIdempotentAppend(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryResultRepository(100)

	r := testResult("dup", "m1", time.Now().UTC())
	repo.Append(ctx, r)
	repo.Append(ctx, r)

	results, _ := repo.List(ctx, "m1", 100)
	if len(results) != 1 {
		t.Fatalf("len = %d, want 1 after duplicate append", len(results))
	}
}

func TestMemoryResultRepositoryIsolation(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryResultRepository(100)
	repo.Append(ctx, testResult("r1", "m1", time.Now().UTC()))

	results, _ := repo.List(ctx, "m1", 10)
	results[0].Message = "mutated"

	again, _ := repo.List(ctx, "m1", 10)
	if again[0].Message != "http: 200" {
		t.Fatalf("stored result mutated: %q", again[0].Message)
	}
}
