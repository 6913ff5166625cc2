package stages

import (
	"fmt"
	"strconv"
)

// Option values arrive as generic JSON, so numbers are float64 and nested
// objects are map[string]any. These helpers coerce the common cases.

func optString(opts map[string]any, key, def string) string {
	if v, ok := opts[key].(string); ok {
		return v
	}
	return def
}

func optRequiredString(opts map[string]any, key string) (string, error) {
	v, ok := opts[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func optFloat(opts map[string]any, key string, def float64) float64 {
	f, ok := toFloat(opts[key])
	if !ok {
		return def
	}
	return f
}

// optFloatPtr returns nil when the option is absent, distinguishing "not set"
// from zero (threshold bounds need this).
func optFloatPtr(opts map[string]any, key string) (*float64, error) {
	v, present := opts[key]
	if !present || v == nil {
		return nil, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &f, nil
}

func optInt(opts map[string]any, key string, def int) int {
	f, ok := toFloat(opts[key])
	if !ok {
		return def
	}
	return int(f)
}

func optBool(opts map[string]any, key string, def bool) bool {
	if v, ok := opts[key].(bool); ok {
		return v
	}
	return def
}

func optStringMap(opts map[string]any, key string) map[string]string {
	raw, ok := opts[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

func optObject(opts map[string]any, key string) map[string]any {
	m, _ := opts[key].(map[string]any)
	return m
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
