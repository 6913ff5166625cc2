package stages

import (
	"context"
	"fmt"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// HeaderStage extracts a response header value, optionally validating it
// against an expected value.
type HeaderStage struct {
	header   string
	storeAs  string
	expected string
	validate bool
}

func newHeaderStage(opts map[string]any) (Stage, error) {
	header, err := optRequiredString(opts, "pattern")
	if err != nil {
		return nil, err
	}
	_, validate := opts["expected"]
	return &HeaderStage{
		header:   header,
		storeAs:  optString(opts, "store_as", ""),
		expected: optString(opts, "expected", ""),
		validate: validate,
	}, nil
}

func (s *HeaderStage) Name() string         { return "header" }
func (s *HeaderStage) Description() string  { return "Extract or validate response headers" }
func (s *HeaderStage) IsNetworkStage() bool { return false }

func (s *HeaderStage) Check(ctx context.Context, url string, verbose bool, cc *uptimer.CheckContext) *Result {
	value, ok := cc.Header(s.header)
	if !ok {
		return down(fmt.Sprintf("header not found: %s", s.header), map[string]any{"header": s.header})
	}

	cc.Store(s.storeAs, value)

	if s.validate && value != s.expected {
		return down(fmt.Sprintf("expected %s, got %s", s.expected, value), map[string]any{
			"header":   s.header,
			"value":    value,
			"expected": s.expected,
		})
	}
	return up(fmt.Sprintf("%s=%s", s.header, value), map[string]any{
		"header": s.header,
		"value":  value,
	})
}

func registerHeader(r *Registry) {
	r.Register(Info{
		Type:        "header",
		Name:        "Header Extract",
		Description: "Extract or validate response headers",
		Options: []Option{
			{Name: "pattern", Label: "Header Name", Type: "string", Required: true, Description: "Header name, case-insensitive"},
			{Name: "store_as", Label: "Store As", Type: "string", Description: "Context value name for the header value"},
			{Name: "expected", Label: "Expected Value", Type: "string", Description: "Fail unless the header equals this value"},
		},
	}, newHeaderStage)
}
