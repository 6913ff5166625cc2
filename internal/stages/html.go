package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mortenoh/uptimer/internal/uptimer"
)

// HTMLStage extracts a value from an HTML response body with a CSS selector.
// By default the text of the first match is taken; an attribute name switches
// to that attribute's value.
type HTMLStage struct {
	selector  string
	attribute string
	storeAs   string
}

func newHTMLStage(opts map[string]any) (Stage, error) {
	selector, err := optRequiredString(opts, "selector")
	if err != nil {
		return nil, err
	}
	return &HTMLStage{
		selector:  selector,
		attribute: optString(opts, "attribute", ""),
		storeAs:   optString(opts, "store_as", ""),
	}, nil
}

func (s *HTMLStage) Name() string         { return "html" }
func (s *HTMLStage) Description() string  { return "Extract values from HTML using CSS selectors" }
func (s *HTMLStage) IsNetworkStage() bool { return false }

func (s *HTMLStage) Check(ctx context.Context, url string, verbose bool, cc *uptimer.CheckContext) *Result {
	if cc.ResponseBody == "" {
		return down("no response body to extract from", map[string]any{"selector": s.selector})
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cc.ResponseBody))
	if err != nil {
		return down("invalid HTML response", map[string]any{"selector": s.selector, "error": err.Error()})
	}

	sel := doc.Find(s.selector)
	if sel.Length() == 0 {
		return down(fmt.Sprintf("selector not matched: %s", s.selector), map[string]any{"selector": s.selector})
	}

	var value string
	if s.attribute != "" {
		attr, ok := sel.First().Attr(s.attribute)
		if !ok {
			return down(fmt.Sprintf("attribute not found: %s", s.attribute), map[string]any{
				"selector":  s.selector,
				"attribute": s.attribute,
			})
		}
		value = attr
	} else {
		value = strings.TrimSpace(sel.First().Text())
	}

	cc.Store(s.storeAs, value)
	return up(fmt.Sprintf("extracted: %s", value), map[string]any{
		"selector": s.selector,
		"value":    value,
		"matches":  sel.Length(),
	})
}

func registerHTML(r *Registry) {
	r.Register(Info{
		Type:        "html",
		Name:        "HTML Extract",
		Description: "Extract values from HTML using CSS selectors",
		Options: []Option{
			{Name: "selector", Label: "CSS Selector", Type: "string", Required: true, Description: "CSS selector; the first match is taken"},
			{Name: "attribute", Label: "Attribute", Type: "string", Description: "Attribute to extract instead of element text"},
			{Name: "store_as", Label: "Store As", Type: "string", Description: "Context value name for the extracted value"},
		},
	}, newHTMLStage)
}
