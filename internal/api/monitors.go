package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// writeServiceError maps service errors onto HTTP statuses: validation and
// pipeline configuration problems are 400, missing records 404, the rest 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case uptimer.IsBadRequest(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, uptimer.ErrNotFound):
		http.Error(w, "monitor not found", http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// createMonitorRequest is the create payload. Enabled is a pointer so an
// omitted field defaults to true instead of the bool zero value, which would
// silently create a monitor the scheduler never picks up.
type createMonitorRequest struct {
	Name     string              `json:"name"`
	URL      string              `json:"url"`
	Pipeline []uptimer.StageSpec `json:"pipeline"`
	Interval int                 `json:"interval"`
	Schedule string              `json:"schedule"`
	Enabled  *bool               `json:"enabled"`
	Tags     []string            `json:"tags"`
}

// createMonitor registers a new monitor.
// POST /api/monitors
func (s *Server) createMonitor(w http.ResponseWriter, r *http.Request) {
	var req createMonitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	monitor := &uptimer.Monitor{
		Name:     req.Name,
		URL:      req.URL,
		Pipeline: req.Pipeline,
		Interval: req.Interval,
		Schedule: req.Schedule,
		Enabled:  enabled,
		Tags:     req.Tags,
	}

	created, err := s.monitorSvc.Create(r.Context(), monitor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// listMonitors returns all monitors, optionally filtered by tag.
// GET /api/monitors[?tag=T]
func (s *Server) listMonitors(w http.ResponseWriter, r *http.Request) {
	monitors, err := s.monitorSvc.List(r.Context(), r.URL.Query().Get("tag"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if monitors == nil {
		monitors = []*uptimer.Monitor{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(monitors)
}

// getMonitor returns a single monitor.
// GET /api/monitors/{id}
func (s *Server) getMonitor(w http.ResponseWriter, r *http.Request) {
	monitor, err := s.monitorSvc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(monitor)
}

// updateMonitor applies a partial update.
// PUT /api/monitors/{id}
func (s *Server) updateMonitor(w http.ResponseWriter, r *http.Request) {
	var patch uptimer.MonitorPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	monitor, err := s.monitorSvc.Update(r.Context(), chi.URLParam(r, "id"), &patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(monitor)
}

// deleteMonitor removes a monitor and its scheduler job. Result history is
// kept as orphan records.
// DELETE /api/monitors/{id}
func (s *Server) deleteMonitor(w http.ResponseWriter, r *http.Request) {
	if err := s.monitorSvc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkMonitor runs a monitor's pipeline immediately.
// POST /api/monitors/{id}/check
func (s *Server) checkMonitor(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"
	result, err := s.monitorSvc.RunCheck(r.Context(), chi.URLParam(r, "id"), verbose)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// checkAllMonitors runs every (optionally tag-filtered) monitor's pipeline,
// bounded by the shared worker pool limit.
// POST /api/monitors/check-all[?tag=T]
func (s *Server) checkAllMonitors(w http.ResponseWriter, r *http.Request) {
	monitors, err := s.monitorSvc.List(r.Context(), r.URL.Query().Get("tag"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	results := make([]*uptimer.CheckResult, 0, len(monitors))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(s.limiter.Stats().Max)
	for _, m := range monitors {
		id := m.ID
		g.Go(func() error {
			if err := s.limiter.Acquire(ctx); err != nil {
				return err
			}
			defer s.limiter.Release()

			result, err := s.monitorSvc.RunCheck(ctx, id, false)
			if err != nil {
				// A monitor deleted mid-run is not a batch failure.
				if errors.Is(err, uptimer.ErrNotFound) {
					return nil
				}
				return err
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// listResults returns a monitor's result history, newest first.
// GET /api/monitors/{id}/results[?limit=N]
func (s *Server) listResults(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	limit = uptimer.ClampResultLimit(limit)

	results, err := s.monitorSvc.Results(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if results == nil {
		results = []*uptimer.CheckResult{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// listTags returns the union of all monitors' tags, sorted.
// GET /api/monitors/tags
func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.monitorSvc.ListTags(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if tags == nil {
		tags = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tags)
}
