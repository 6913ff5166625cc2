package stages

import (
	"context"
	"fmt"

	"github.com/mortenoh/uptimer/internal/uptimer"
	"github.com/xeipuuv/gojsonschema"
)

// JSONSchemaStage validates the JSON response body against a JSON Schema.
type JSONSchemaStage struct {
	schema *gojsonschema.Schema
}

func newJSONSchemaStage(opts map[string]any) (Stage, error) {
	raw := optObject(opts, "schema")
	if raw == nil {
		return nil, fmt.Errorf("schema is required")
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %v", err)
	}
	return &JSONSchemaStage{schema: schema}, nil
}

func (s *JSONSchemaStage) Name() string         { return "json-schema" }
func (s *JSONSchemaStage) Description() string  { return "Validate the JSON body against a JSON Schema" }
func (s *JSONSchemaStage) IsNetworkStage() bool { return false }

func (s *JSONSchemaStage) Check(ctx context.Context, url string, verbose bool, cc *uptimer.CheckContext) *Result {
	if cc.ResponseBody == "" {
		return down("no response body to validate", nil)
	}

	result, err := s.schema.Validate(gojsonschema.NewStringLoader(cc.ResponseBody))
	if err != nil {
		return down("invalid JSON response", map[string]any{"error": err.Error()})
	}

	if !result.Valid() {
		errs := result.Errors()
		first := errs[0]
		var violations []string
		for _, e := range errs {
			violations = append(violations, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return down(fmt.Sprintf("schema violation at %s: %s", first.Field(), first.Description()), map[string]any{
			"violations": violations,
		})
	}
	return up("schema valid", nil)
}

func registerJSONSchema(r *Registry) {
	r.Register(Info{
		Type:        "json-schema",
		Name:        "JSON Schema",
		Description: "Validate the JSON body against a JSON Schema",
		Options: []Option{
			{Name: "schema", Label: "Schema", Type: "object", Required: true, Description: "JSON Schema to validate the body against"},
		},
	}, newJSONSchemaStage)
}
