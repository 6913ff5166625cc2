package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mortenoh/uptimer/internal/repository"
	"github.com/mortenoh/uptimer/internal/services"
	"github.com/mortenoh/uptimer/internal/stages"
	"github.com/mortenoh/uptimer/internal/uptimer"
)

// newTestServer wires the full stack on in-memory repositories and returns
// the API behind an httptest server, plus the job repository so tests can
// observe scheduler registrations.
func newTestServer(t *testing.T) (*httptest.Server, *repository.MemoryJobRepository) {
	t.Helper()

	monitors := repository.NewMemoryMonitorRepository()
	jobs := repository.NewMemoryJobRepository()
	results := repository.NewMemoryResultRepository(100)
	registry := stages.DefaultRegistry()
	executor := services.NewExecutor(registry, monitors, results)
	limiter := services.NewCheckLimiter(4)
	scheduler := services.NewScheduler(monitors, jobs, results, executor, limiter)
	svc := services.NewMonitorService(monitors, results, executor, scheduler)

	ts := httptest.NewServer(NewServer(svc, limiter, registry).Handler())
	t.Cleanup(ts.Close)
	return ts, jobs
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

// createTestMonitor posts a monitor pointed at target and returns it.
func createTestMonitor(t *testing.T, ts *httptest.Server, name, target string, tags []string) *uptimer.Monitor {
	t.Helper()
	resp := postJSON(t, ts.URL+"/api/monitors", map[string]any{
		"name":     name,
		"url":      target,
		"pipeline": []map[string]any{{"type": "http"}},
		"interval": 60,
		"tags":     tags,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var m uptimer.Monitor
	decodeJSON(t, resp, &m)
	return &m
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["status"] != "healthy" {
		t.Fatalf("body = %v", body)
	}
}

func TestCreateMonitorDefaultsEnabled(t *testing.T) {
	ts, jobs := newTestServer(t)

	// No enabled field in the payload.
	m := createTestMonitor(t, ts, "defaulted", "example.com", nil)
	if !m.Enabled {
		t.Fatal("monitor without explicit enabled flag should default to enabled")
	}
	all, _ := jobs.All(context.Background())
	if len(all) != 1 || all[0].MonitorID != m.ID {
		t.Fatalf("jobs = %v, want one for the new monitor", all)
	}

	// An explicit false still wins.
	resp := postJSON(t, ts.URL+"/api/monitors", map[string]any{
		"name":     "off",
		"url":      "example.com",
		"pipeline": []map[string]any{{"type": "http"}},
		"enabled":  false,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var off uptimer.Monitor
	decodeJSON(t, resp, &off)
	if off.Enabled {
		t.Fatal("explicit enabled=false should be honored")
	}
	all, _ = jobs.All(context.Background())
	if len(all) != 1 {
		t.Fatalf("jobs = %v, disabled monitor must not be scheduled", all)
	}
}

func TestCreateMonitorValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	cases := []map[string]any{
		{"name": "", "url": "example.com", "pipeline": []map[string]any{{"type": "http"}}},
		{"name": "x", "url": "", "pipeline": []map[string]any{{"type": "http"}}},
		{"name": "x", "url": "example.com", "pipeline": []map[string]any{}},
		{"name": "x", "url": "example.com", "pipeline": []map[string]any{{"type": "nope"}}},
		{"name": "x", "url": "example.com", "pipeline": []map[string]any{{"type": "contains", "pattern": "ok"}}},
		{"name": "x", "url": "example.com", "pipeline": []map[string]any{{"type": "http"}}, "schedule": "not a cron"},
	}
	for i, body := range cases {
		resp := postJSON(t, ts.URL+"/api/monitors", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("case %d: status = %d, want 400", i, resp.StatusCode)
		}
	}
}

func TestMonitorCRUD(t *testing.T) {
	ts, _ := newTestServer(t)
	m := createTestMonitor(t, ts, "crud", "example.com", []string{"prod"})

	// Get
	resp, err := http.Get(ts.URL + "/api/monitors/" + m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var got uptimer.Monitor
	decodeJSON(t, resp, &got)
	if got.Name != "crud" || got.URL != "https://example.com" {
		t.Fatalf("got = %+v", got)
	}

	// Update
	patch, _ := json.Marshal(map[string]any{"name": "renamed"})
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/monitors/"+m.ID, bytes.NewReader(patch))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var updated uptimer.Monitor
	decodeJSON(t, resp, &updated)
	if updated.Name != "renamed" {
		t.Fatalf("updated name = %q", updated.Name)
	}

	// Delete
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/monitors/"+m.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/monitors/" + m.ID)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", resp.StatusCode)
	}
}

func TestGetMonitorNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/monitors/no-such-id")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestListMonitorsByTag(t *testing.T) {
	ts, _ := newTestServer(t)
	createTestMonitor(t, ts, "a", "a.example.com", []string{"prod"})
	createTestMonitor(t, ts, "b", "b.example.com", []string{"dev"})

	resp, err := http.Get(ts.URL + "/api/monitors?tag=prod")
	if err != nil {
		t.Fatal(err)
	}
	var monitors []*uptimer.Monitor
	decodeJSON(t, resp, &monitors)
	if len(monitors) != 1 || monitors[0].Name != "a" {
		t.Fatalf("monitors = %v", monitors)
	}

	resp, err = http.Get(ts.URL + "/api/monitors")
	if err != nil {
		t.Fatal(err)
	}
	decodeJSON(t, resp, &monitors)
	if len(monitors) != 2 {
		t.Fatalf("len = %d", len(monitors))
	}
}

func TestListTags(t *testing.T) {
	ts, _ := newTestServer(t)
	createTestMonitor(t, ts, "a", "a.example.com", []string{"web", "prod"})
	createTestMonitor(t, ts, "b", "b.example.com", []string{"prod"})

	resp, err := http.Get(ts.URL + "/api/monitors/tags")
	if err != nil {
		t.Fatal(err)
	}
	var tags []string
	decodeJSON(t, resp, &tags)
	if len(tags) != 2 || tags[0] != "prod" || tags[1] != "web" {
		t.Fatalf("tags = %v", tags)
	}
}

func TestCheckMonitor(t *testing.T) {
	ts, _ := newTestServer(t)
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer target.Close()

	m := createTestMonitor(t, ts, "check", target.URL, nil)

	resp, err := http.Post(ts.URL+"/api/monitors/"+m.ID+"/check", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	var result uptimer.CheckResult
	decodeJSON(t, resp, &result)
	if result.Status != uptimer.StatusUp {
		t.Fatalf("status = %q: %s", result.Status, result.Message)
	}
	if result.Message != "http: 200" {
		t.Fatalf("message = %q", result.Message)
	}
	if result.MonitorID != m.ID {
		t.Fatalf("monitor id = %q", result.MonitorID)
	}
}

func TestCheckAllMonitors(t *testing.T) {
	ts, _ := newTestServer(t)
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer target.Close()

	createTestMonitor(t, ts, "a", target.URL, []string{"batch"})
	createTestMonitor(t, ts, "b", target.URL, []string{"batch"})
	createTestMonitor(t, ts, "c", target.URL, []string{"other"})

	resp, err := http.Post(ts.URL+"/api/monitors/check-all?tag=batch", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	var results []*uptimer.CheckResult
	decodeJSON(t, resp, &results)
	if len(results) != 2 {
		t.Fatalf("len = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.Status != uptimer.StatusUp {
			t.Fatalf("status = %q: %s", r.Status, r.Message)
		}
	}
}

func TestListResults(t *testing.T) {
	ts, _ := newTestServer(t)
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer target.Close()

	m := createTestMonitor(t, ts, "history", target.URL, nil)
	for i := 0; i < 3; i++ {
		resp, err := http.Post(ts.URL+"/api/monitors/"+m.ID+"/check", "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
	}

	resp, err := http.Get(ts.URL + "/api/monitors/" + m.ID + "/results?limit=2")
	if err != nil {
		t.Fatal(err)
	}
	var results []*uptimer.CheckResult
	decodeJSON(t, resp, &results)
	if len(results) != 2 {
		t.Fatalf("len = %d, want 2", len(results))
	}
	if results[0].CheckedAt.Before(results[1].CheckedAt) {
		t.Fatal("results not newest first")
	}

	resp, err = http.Get(ts.URL + "/api/monitors/" + m.ID + "/results?limit=0")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("limit=0 status = %d", resp.StatusCode)
	}
}

func TestListStages(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/stages")
	if err != nil {
		t.Fatal(err)
	}
	var infos []stages.Info
	decodeJSON(t, resp, &infos)
	if len(infos) != 14 {
		t.Fatalf("len = %d, want 14", len(infos))
	}
	byType := make(map[string]stages.Info)
	for _, info := range infos {
		byType[info.Type] = info
	}
	if !byType["http"].IsNetworkStage {
		t.Fatal("http should be a network stage")
	}
	if byType["threshold"].IsNetworkStage {
		t.Fatal("threshold should not be a network stage")
	}
}

func TestSchedulerStats(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/scheduler/stats")
	if err != nil {
		t.Fatal(err)
	}
	var stats services.LimiterStats
	decodeJSON(t, resp, &stats)
	if stats.Max != 4 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestInvalidRequestBody(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/monitors", "application/json", bytes.NewReader([]byte("{")))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestMonitorNamesAreIndependent(t *testing.T) {
	ts, _ := newTestServer(t)
	for i := 0; i < 3; i++ {
		createTestMonitor(t, ts, fmt.Sprintf("m-%d", i), "example.com", nil)
	}

	resp, err := http.Get(ts.URL + "/api/monitors")
	if err != nil {
		t.Fatal(err)
	}
	var monitors []*uptimer.Monitor
	decodeJSON(t, resp, &monitors)
	if len(monitors) != 3 {
		t.Fatalf("len = %d", len(monitors))
	}
}
