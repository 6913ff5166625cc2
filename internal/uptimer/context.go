package uptimer

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// CheckContext is the scratch space carried between stages of one pipeline
// run. It is owned by the executor for the duration of the run and passed by
// reference to each stage. A stage goroutine that overruns its hard timeout
// may still hold the context, so the Values map is mutex-guarded and readers
// take snapshots instead of aliasing it.
type CheckContext struct {
	URL string

	// Latest network stage output.
	ResponseBody    string
	ResponseHeaders map[string]string // canonical lower-case keys
	StatusCode      int
	ElapsedMS       float64 // wall-clock of the most recent network stage

	mu sync.Mutex

	// Named values produced by extractor stages via store_as. Guarded by mu;
	// access through Store, Resolve and SnapshotValues.
	Values map[string]any
}

// NewCheckContext creates an empty context for one pipeline run.
func NewCheckContext(url string) *CheckContext {
	return &CheckContext{
		URL:             url,
		ResponseHeaders: map[string]string{},
		Values:          map[string]any{},
	}
}

// Header returns a response header by case-insensitive name.
func (c *CheckContext) Header(name string) (string, bool) {
	v, ok := c.ResponseHeaders[strings.ToLower(name)]
	return v, ok
}

// SetHeaders replaces the response headers, normalizing keys to lower case.
func (c *CheckContext) SetHeaders(headers map[string]string) {
	c.ResponseHeaders = make(map[string]string, len(headers))
	for k, v := range headers {
		c.ResponseHeaders[strings.ToLower(k)] = v
	}
}

// Resolve resolves a stage input that is either a literal or a "$name"
// reference into context values. Built-ins $elapsed_ms, $status_code and
// $body_length are always available once a network stage has run; other
// names must have been stored by an extractor. A missing name is an error
// ("unresolved $name") that stages surface as a down verdict.
func (c *CheckContext) Resolve(ref string) (any, error) {
	if !strings.HasPrefix(ref, "$") {
		// Literal; prefer numeric interpretation.
		if n, err := strconv.ParseFloat(ref, 64); err == nil {
			return n, nil
		}
		return ref, nil
	}

	key := strings.TrimPrefix(ref, "$")
	switch key {
	case "elapsed_ms":
		return c.ElapsedMS, nil
	case "status_code":
		return c.StatusCode, nil
	case "body_length":
		return len(c.ResponseBody), nil
	}

	c.mu.Lock()
	v, ok := c.Values[key]
	c.mu.Unlock()
	if ok {
		return v, nil
	}
	return nil, fmt.Errorf("unresolved $%s", key)
}

// Store records an extracted value under name. Empty names are ignored so
// extractors without store_as simply discard their value.
func (c *CheckContext) Store(name string, value any) {
	if name == "" {
		return
	}
	c.mu.Lock()
	c.Values[name] = value
	c.mu.Unlock()
}

// SnapshotValues returns a copy of the stored values, safe to retain after
// the run even if a timed-out stage goroutine keeps writing to the live map.
func (c *CheckContext) SnapshotValues() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Values) == 0 {
		return nil
	}
	out := make(map[string]any, len(c.Values))
	for k, v := range c.Values {
		out[k] = v
	}
	return out
}
