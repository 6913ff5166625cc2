package stages

import (
	"context"
	"fmt"
	"regexp"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// RegexStage extracts a value from the textual response body with a regular
// expression. With capture groups the first group wins, otherwise the whole
// match.
type RegexStage struct {
	pattern *regexp.Regexp
	storeAs string
}

func newRegexStage(opts map[string]any) (Stage, error) {
	pattern, err := optRequiredString(opts, "pattern")
	if err != nil {
		return nil, err
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %v", err)
	}
	return &RegexStage{pattern: compiled, storeAs: optString(opts, "store_as", "")}, nil
}

func (s *RegexStage) Name() string         { return "regex" }
func (s *RegexStage) Description() string  { return "Extract values using regex capture groups" }
func (s *RegexStage) IsNetworkStage() bool { return false }

func (s *RegexStage) Check(ctx context.Context, url string, verbose bool, cc *uptimer.CheckContext) *Result {
	if cc.ResponseBody == "" {
		return down("no response body to extract from", map[string]any{"pattern": s.pattern.String()})
	}

	match := s.pattern.FindStringSubmatch(cc.ResponseBody)
	if match == nil {
		return down("pattern not matched", map[string]any{"pattern": s.pattern.String()})
	}

	value := match[0]
	if len(match) > 1 {
		value = match[1]
	}

	cc.Store(s.storeAs, value)
	return up(fmt.Sprintf("extracted: %s", value), map[string]any{
		"pattern": s.pattern.String(),
		"match":   match[0],
		"value":   value,
	})
}

func registerRegex(r *Registry) {
	r.Register(Info{
		Type:        "regex",
		Name:        "Regex Extract",
		Description: "Extract values using regex capture groups",
		Options: []Option{
			{Name: "pattern", Label: "Pattern", Type: "string", Required: true, Description: "Regular expression to match against the body"},
			{Name: "store_as", Label: "Store As", Type: "string", Description: "Context value name for the extracted value"},
		},
	}, newRegexStage)
}
