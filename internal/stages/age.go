package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// timestampLayouts are tried in order when parsing string timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// AgeStage asserts that a timestamp value is fresh. Up within max_age,
// degraded within twice max_age, down beyond that. A future timestamp is
// degraded, not down, since clock skew is the usual cause.
type AgeStage struct {
	value  string
	maxAge float64
}

func newAgeStage(opts map[string]any) (Stage, error) {
	value, err := optRequiredString(opts, "value")
	if err != nil {
		return nil, err
	}
	maxAge := optFloat(opts, "max_age", 3600)
	if maxAge < 0 {
		return nil, fmt.Errorf("max_age must not be negative")
	}
	return &AgeStage{value: value, maxAge: maxAge}, nil
}

func (s *AgeStage) Name() string         { return "age" }
func (s *AgeStage) Description() string  { return "Assert a timestamp value is fresh" }
func (s *AgeStage) IsNetworkStage() bool { return false }

func (s *AgeStage) Check(ctx context.Context, url string, verbose bool, cc *uptimer.CheckContext) *Result {
	resolved, err := cc.Resolve(s.value)
	if err != nil {
		return down(err.Error(), map[string]any{"value": s.value})
	}

	ts, ok := parseTimestamp(resolved)
	if !ok {
		return down(fmt.Sprintf("could not parse timestamp: %v", resolved), map[string]any{
			"value":    s.value,
			"resolved": resolved,
		})
	}

	age := time.Since(ts).Seconds()
	details := map[string]any{
		"value":       s.value,
		"timestamp":   ts.UTC().Format(time.RFC3339),
		"age_seconds": age,
		"max_age":     s.maxAge,
	}

	switch {
	case age < 0:
		return degraded(fmt.Sprintf("timestamp is in the future by %ds", int(-age)), details)
	case age <= s.maxAge:
		return up(fmt.Sprintf("age: %ds (max: %ds)", int(age), int(s.maxAge)), details)
	case age <= 2*s.maxAge:
		return degraded(fmt.Sprintf("stale: %ds > %ds", int(age), int(s.maxAge)), details)
	default:
		return down(fmt.Sprintf("too old: %ds > %ds", int(age), int(s.maxAge)), details)
	}
}

// parseTimestamp accepts RFC 3339 style strings and Unix second timestamps.
func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, true
			}
		}
	}
	if f, ok := toFloat(v); ok {
		return time.Unix(int64(f), 0), true
	}
	return time.Time{}, false
}

func registerAge(r *Registry) {
	r.Register(Info{
		Type:        "age",
		Name:        "Age",
		Description: "Assert a timestamp value is fresh",
		Options: []Option{
			{Name: "value", Label: "Value", Type: "string", Required: true, Description: "Timestamp literal or $name reference"},
			{Name: "max_age", Label: "Max Age", Type: "number", Default: 3600, Description: "Maximum allowed age in seconds"},
		},
	}, newAgeStage)
}
