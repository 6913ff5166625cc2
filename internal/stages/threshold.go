package stages

import (
	"context"
	"fmt"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// ThresholdStage asserts that a numeric value, usually an extractor output
// referenced as "$name", lies within configured bounds.
type ThresholdStage struct {
	value string
	min   *float64
	max   *float64
}

func newThresholdStage(opts map[string]any) (Stage, error) {
	value, err := optRequiredString(opts, "value")
	if err != nil {
		return nil, err
	}
	min, err := optFloatPtr(opts, "min")
	if err != nil {
		return nil, err
	}
	max, err := optFloatPtr(opts, "max")
	if err != nil {
		return nil, err
	}
	if min == nil && max == nil {
		return nil, fmt.Errorf("at least one of min or max is required")
	}
	if min != nil && max != nil && *min > *max {
		return nil, fmt.Errorf("min must not exceed max")
	}
	return &ThresholdStage{value: value, min: min, max: max}, nil
}

func (s *ThresholdStage) Name() string         { return "threshold" }
func (s *ThresholdStage) Description() string  { return "Assert a numeric value is within bounds" }
func (s *ThresholdStage) IsNetworkStage() bool { return false }

func (s *ThresholdStage) Check(ctx context.Context, url string, verbose bool, cc *uptimer.CheckContext) *Result {
	resolved, err := cc.Resolve(s.value)
	if err != nil {
		return down(err.Error(), map[string]any{"value": s.value})
	}
	v, ok := toFloat(resolved)
	if !ok {
		return down(fmt.Sprintf("value is not a number: %v", resolved), map[string]any{"value": s.value, "resolved": resolved})
	}

	details := map[string]any{"value": s.value, "resolved": v}
	if s.min != nil {
		details["min"] = *s.min
	}
	if s.max != nil {
		details["max"] = *s.max
	}

	if (s.min != nil && v < *s.min) || (s.max != nil && v > *s.max) {
		return down("out_of_range", details)
	}
	return up(fmt.Sprintf("%v within bounds", v), details)
}

func registerThreshold(r *Registry) {
	r.Register(Info{
		Type:        "threshold",
		Name:        "Threshold",
		Description: "Assert a numeric value is within bounds",
		Options: []Option{
			{Name: "value", Label: "Value", Type: "string", Required: true, Description: "Literal number or $name reference"},
			{Name: "min", Label: "Minimum", Type: "number", Description: "Lower bound, inclusive"},
			{Name: "max", Label: "Maximum", Type: "number", Description: "Upper bound, inclusive"},
		},
	}, newThresholdStage)
}
