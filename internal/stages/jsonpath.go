package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
	"github.com/mortenoh/uptimer/internal/uptimer"
)

// JSONPathStage extracts a value from a JSON response body with a JSONPath
// expression. A single match yields the value itself; multiple matches yield
// an array.
type JSONPathStage struct {
	expr    string
	storeAs string
}

func newJSONPathStage(opts map[string]any) (Stage, error) {
	expr, err := optRequiredString(opts, "expr")
	if err != nil {
		return nil, err
	}
	if _, err := jsonpath.New(expr); err != nil {
		return nil, fmt.Errorf("invalid jsonpath expression: %v", err)
	}
	return &JSONPathStage{expr: expr, storeAs: optString(opts, "store_as", "")}, nil
}

func (s *JSONPathStage) Name() string         { return "jsonpath" }
func (s *JSONPathStage) Description() string  { return "Extract values from JSON using JSONPath" }
func (s *JSONPathStage) IsNetworkStage() bool { return false }

func (s *JSONPathStage) Check(ctx context.Context, url string, verbose bool, cc *uptimer.CheckContext) *Result {
	if cc.ResponseBody == "" {
		return down("no response body to extract from", map[string]any{"expression": s.expr})
	}

	var data any
	if err := json.Unmarshal([]byte(cc.ResponseBody), &data); err != nil {
		return down("invalid JSON response", map[string]any{"expression": s.expr, "error": err.Error()})
	}

	value, err := jsonpath.Get(s.expr, data)
	if err != nil {
		return down(fmt.Sprintf("no match: %v", err), map[string]any{"expression": s.expr, "error": err.Error()})
	}
	if arr, ok := value.([]any); ok {
		if len(arr) == 0 {
			return down("no match", map[string]any{"expression": s.expr})
		}
		if len(arr) == 1 {
			value = arr[0]
		}
	}

	cc.Store(s.storeAs, value)
	return up(fmt.Sprintf("extracted: %v", value), map[string]any{
		"expression": s.expr,
		"value":      value,
	})
}

func registerJSONPath(r *Registry) {
	r.Register(Info{
		Type:        "jsonpath",
		Name:        "JSONPath Extract",
		Description: "Extract values from JSON using JSONPath",
		Options: []Option{
			{Name: "expr", Label: "Expression", Type: "string", Required: true, Description: "JSONPath expression to evaluate against the JSON body"},
			{Name: "store_as", Label: "Store As", Type: "string", Description: "Context value name for the extracted value"},
		},
	}, newJSONPathStage)
}
