package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// ContainsStage asserts that the response body contains (or, with negate,
// does not contain) a substring.
type ContainsStage struct {
	pattern string
	negate  bool
}

func newContainsStage(opts map[string]any) (Stage, error) {
	pattern, err := optRequiredString(opts, "pattern")
	if err != nil {
		return nil, err
	}
	return &ContainsStage{pattern: pattern, negate: optBool(opts, "negate", false)}, nil
}

func (s *ContainsStage) Name() string         { return "contains" }
func (s *ContainsStage) Description() string  { return "Assert the response body contains a substring" }
func (s *ContainsStage) IsNetworkStage() bool { return false }

func (s *ContainsStage) Check(ctx context.Context, url string, verbose bool, cc *uptimer.CheckContext) *Result {
	found := strings.Contains(cc.ResponseBody, s.pattern)
	details := map[string]any{"pattern": s.pattern, "found": found, "negate": s.negate}

	if found != s.negate {
		if s.negate {
			return up(fmt.Sprintf("%q absent", s.pattern), details)
		}
		return up(fmt.Sprintf("%q found", s.pattern), details)
	}
	if s.negate {
		return down(fmt.Sprintf("%q unexpectedly present", s.pattern), details)
	}
	return down(fmt.Sprintf("%q not found", s.pattern), details)
}

func registerContains(r *Registry) {
	r.Register(Info{
		Type:        "contains",
		Name:        "Contains",
		Description: "Assert the response body contains a substring",
		Options: []Option{
			{Name: "pattern", Label: "Pattern", Type: "string", Required: true, Description: "Substring to look for in the body"},
			{Name: "negate", Label: "Negate", Type: "boolean", Default: false, Description: "Fail when the substring is present"},
		},
	}, newContainsStage)
}
