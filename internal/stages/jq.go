package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
	"github.com/mortenoh/uptimer/internal/uptimer"
)

// JQStage extracts a value from a JSON response body with a jq program.
type JQStage struct {
	expr    string
	query   *gojq.Query
	storeAs string
}

func newJQStage(opts map[string]any) (Stage, error) {
	expr, err := optRequiredString(opts, "expr")
	if err != nil {
		return nil, err
	}
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %v", err)
	}
	return &JQStage{expr: expr, query: query, storeAs: optString(opts, "store_as", "")}, nil
}

func (s *JQStage) Name() string         { return "jq" }
func (s *JQStage) Description() string  { return "Extract values from JSON using jq expressions" }
func (s *JQStage) IsNetworkStage() bool { return false }

func (s *JQStage) Check(ctx context.Context, url string, verbose bool, cc *uptimer.CheckContext) *Result {
	if cc.ResponseBody == "" {
		return down("no response body to extract from", map[string]any{"expression": s.expr})
	}

	var data any
	if err := json.Unmarshal([]byte(cc.ResponseBody), &data); err != nil {
		return down("invalid JSON response", map[string]any{"expression": s.expr, "error": err.Error()})
	}

	iter := s.query.RunWithContext(ctx, data)
	value, ok := iter.Next()
	if !ok {
		return down("expression produced no value", map[string]any{"expression": s.expr})
	}
	if err, isErr := value.(error); isErr {
		return down(fmt.Sprintf("extraction failed: %v", err), map[string]any{"expression": s.expr, "error": err.Error()})
	}
	if _, more := iter.Next(); more {
		return down("expression produced multiple values", map[string]any{"expression": s.expr})
	}

	cc.Store(s.storeAs, value)
	return up(fmt.Sprintf("extracted: %v", value), map[string]any{
		"expression": s.expr,
		"value":      value,
	})
}

func registerJQ(r *Registry) {
	r.Register(Info{
		Type:        "jq",
		Name:        "JQ Extract",
		Description: "Extract values from JSON using jq expressions",
		Options: []Option{
			{Name: "expr", Label: "Expression", Type: "string", Required: true, Description: "jq program to apply to the JSON body"},
			{Name: "store_as", Label: "Store As", Type: "string", Description: "Context value name for the extracted value"},
		},
	}, newJQStage)
}
