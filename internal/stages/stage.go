// Package stages implements the pluggable check stages that make up monitor
// pipelines: network probes, value extractors, and assertions.
package stages

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// Result is the outcome of a single stage execution.
type Result struct {
	Status    uptimer.Status `json:"status"`
	Message   string         `json:"message"`
	ElapsedMS float64        `json:"elapsed_ms"`
	Details   map[string]any `json:"details"`
}

func down(message string, details map[string]any) *Result {
	return &Result{Status: uptimer.StatusDown, Message: message, Details: details}
}

func up(message string, details map[string]any) *Result {
	return &Result{Status: uptimer.StatusUp, Message: message, Details: details}
}

func degraded(message string, details map[string]any) *Result {
	return &Result{Status: uptimer.StatusDegraded, Message: message, Details: details}
}

// Stage is one step of a pipeline. A stage may read and extend the shared
// CheckContext; network stages additionally seed the response body, headers
// and headline values for the stages that follow. A stage must never remove
// or rename context entries set by earlier stages.
type Stage interface {
	Name() string
	Description() string
	IsNetworkStage() bool
	Check(ctx context.Context, url string, verbose bool, cc *uptimer.CheckContext) *Result
}

// TimeoutHinter is implemented by stages with a configurable network timeout.
// The executor uses the hint for its stage-level hard timeout.
type TimeoutHinter interface {
	Timeout() time.Duration
}

// Option describes one configuration option of a stage type, for the stage
// metadata API.
type Option struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Type        string `json:"type"` // string, number, boolean, object
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description"`
}

// Info is the published metadata of a registered stage type.
type Info struct {
	Type           string   `json:"type"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	IsNetworkStage bool     `json:"is_network_stage"`
	Options        []Option `json:"options"`
}

// Constructor builds a stage instance from its spec options.
type Constructor func(opts map[string]any) (Stage, error)

// Registry maps stage type names to constructors and metadata. It is
// populated once at startup and read-only afterwards.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	infos        map[string]Info
}

func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
		infos:        make(map[string]Info),
	}
}

// Register adds a stage type to the registry.
func (r *Registry) Register(info Info, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[info.Type] = ctor
	r.infos[info.Type] = info
}

// Has reports whether a stage type is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[name]
	return ok
}

// Build constructs a stage from a pipeline spec. index is the stage's
// position in the pipeline, used in configuration error messages. Unknown
// option keys are tolerated for forward compatibility, but logged.
func (r *Registry) Build(spec uptimer.StageSpec, index int) (Stage, error) {
	name := spec.Type()

	r.mu.RLock()
	ctor, ok := r.constructors[name]
	info := r.infos[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &uptimer.UnknownStageError{Type: name}
	}

	opts := spec.Options()
	known := make(map[string]bool, len(info.Options))
	for _, o := range info.Options {
		known[o.Name] = true
	}
	for k := range opts {
		if !known[k] {
			slog.Warn("stage: ignoring unknown option", "stage", name, "option", k)
		}
	}

	st, err := ctor(opts)
	if err != nil {
		return nil, &uptimer.BadStageConfigError{Type: name, Index: index, Reason: err.Error()}
	}
	return st, nil
}

// Info returns the metadata for a stage type.
func (r *Registry) Info(name string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.infos[name]
	return info, ok
}

// List returns metadata for all registered stage types, sorted by type name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.infos))
	for _, info := range r.infos {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// DefaultRegistry returns a registry with all built-in stages registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	registerHTTP(r)
	registerSSL(r)
	registerTCP(r)
	registerDNS(r)
	registerJQ(r)
	registerJSONPath(r)
	registerRegex(r)
	registerHeader(r)
	registerHTML(r)
	registerThreshold(r)
	registerContains(r)
	registerAge(r)
	registerJSONSchema(r)
	registerExpr(r)
	return r
}
