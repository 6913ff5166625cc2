package uptimer

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

const (
	minInterval  = 10
	maxNameLen   = 100
	maxURLLen    = 2048
	MaxResultLim = 10000
)

// NormalizeURL validates a target URL and defaults the scheme to https when
// missing. Returns the normalized URL.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &ValidationError{Field: "url", Reason: "cannot be empty"}
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	if len(raw) > maxURLLen {
		return "", &ValidationError{Field: "url", Reason: fmt.Sprintf("exceeds %d characters", maxURLLen)}
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", &ValidationError{Field: "url", Reason: "no valid host"}
	}
	return raw, nil
}

// ValidateName checks the monitor display name (1-100 printable characters).
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: "name", Reason: "cannot be empty"}
	}
	if len(name) > maxNameLen {
		return "", &ValidationError{Field: "name", Reason: fmt.Sprintf("exceeds %d characters", maxNameLen)}
	}
	return name, nil
}

// ValidateInterval checks the check cadence in seconds.
func ValidateInterval(interval int) error {
	if interval < minInterval {
		return &ValidationError{
			Field:  "interval",
			Reason: fmt.Sprintf("must be at least %d seconds, got %d", minInterval, interval),
		}
	}
	return nil
}

// ValidateSchedule checks a cron expression in standard 5-field form.
func ValidateSchedule(schedule string) error {
	if schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return &ValidationError{Field: "schedule", Reason: fmt.Sprintf("invalid cron expression %q: %v", schedule, err)}
	}
	return nil
}

// DedupeTags removes duplicate tags preserving first occurrence.
func DedupeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ClampResultLimit bounds a list_results limit to [1, MaxResultLim].
func ClampResultLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxResultLim {
		return MaxResultLim
	}
	return limit
}
