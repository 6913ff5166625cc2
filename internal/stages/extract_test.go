package stages

import (
	"context"
	"testing"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

func ctxWithBody(body string) *uptimer.CheckContext {
	cc := uptimer.NewCheckContext("https://example.com")
	cc.ResponseBody = body
	cc.StatusCode = 200
	return cc
}

func TestJQStageExtracts(t *testing.T) {
	st, err := newJQStage(map[string]any{"expr": ".count", "store_as": "c"})
	if err != nil {
		t.Fatalf("newJQStage: %v", err)
	}
	cc := ctxWithBody(`{"count": 42}`)
	res := st.Check(context.Background(), cc.URL, false, cc)
	if res.Status != uptimer.StatusUp {
		t.Fatalf("status = %s: %s", res.Status, res.Message)
	}
	v, err := cc.Resolve("$c")
	if err != nil {
		t.Fatalf("resolve $c: %v", err)
	}
	if f, ok := toFloat(v); !ok || f != 42 {
		t.Fatalf("$c = %v, want 42", v)
	}
}

func TestJQStageInvalidJSON(t *testing.T) {
	st, _ := newJQStage(map[string]any{"expr": ".count"})
	cc := ctxWithBody("<html>")
	res := st.Check(context.Background(), cc.URL, false, cc)
	if res.Status != uptimer.StatusDown {
		t.Fatalf("status = %s, want down", res.Status)
	}
}

func TestJQStageMultipleValues(t *testing.T) {
	st, _ := newJQStage(map[string]any{"expr": ".items[]"})
	cc := ctxWithBody(`{"items": [1, 2]}`)
	res := st.Check(context.Background(), cc.URL, false, cc)
	if res.Status != uptimer.StatusDown {
		t.Fatalf("status = %s, want down for multi-value result", res.Status)
	}
}

func TestJQStageRejectsBadExpr(t *testing.T) {
	if _, err := newJQStage(map[string]any{"expr": ".["}); err == nil {
		t.Fatal("expected error for malformed jq program")
	}
	if _, err := newJQStage(map[string]any{}); err == nil {
		t.Fatal("expected error for missing expr")
	}
}

func TestJSONPathStageExtracts(t *testing.T) {
	st, err := newJSONPathStage(map[string]any{"expr": "$.data.name", "store_as": "n"})
	if err != nil {
		t.Fatalf("newJSONPathStage: %v", err)
	}
	cc := ctxWithBody(`{"data": {"name": "prod"}}`)
	res := st.Check(context.Background(), cc.URL, false, cc)
	if res.Status != uptimer.StatusUp {
		t.Fatalf("status = %s: %s", res.Status, res.Message)
	}
	if v, _ := cc.Resolve("$n"); v != "prod" {
		t.Fatalf("$n = %v", v)
	}
}

func TestJSONPathStageNoMatch(t *testing.T) {
	st, _ := newJSONPathStage(map[string]any{"expr": "$.missing.deep"})
	cc := ctxWithBody(`{"data": 1}`)
	res := st.Check(context.Background(), cc.URL, false, cc)
	if res.Status != uptimer.StatusDown {
		t.Fatalf("status = %s, want down", res.Status)
	}
}

func TestRegexStageGroupCapture(t *testing.T) {
	st, err := newRegexStage(map[string]any{"pattern": `version (\d+\.\d+)`, "store_as": "v"})
	if err != nil {
		t.Fatalf("newRegexStage: %v", err)
	}
	cc := ctxWithBody("running version 2.14 now")
	res := st.Check(context.Background(), cc.URL, false, cc)
	if res.Status != uptimer.StatusUp {
		t.Fatalf("status = %s: %s", res.Status, res.Message)
	}
	if v, _ := cc.Resolve("$v"); v != "2.14" {
		t.Fatalf("$v = %v, want group 1", v)
	}
}

func TestRegexStageWholeMatchWithoutGroups(t *testing.T) {
	st, _ := newRegexStage(map[string]any{"pattern": `ok=\w+`, "store_as": "m"})
	cc := ctxWithBody("ok=yes")
	res := st.Check(context.Background(), cc.URL, false, cc)
	if res.Status != uptimer.StatusUp {
		t.Fatalf("status = %s", res.Status)
	}
	if v, _ := cc.Resolve("$m"); v != "ok=yes" {
		t.Fatalf("$m = %v", v)
	}
}

func TestRegexStageNoMatch(t *testing.T) {
	st, _ := newRegexStage(map[string]any{"pattern": "absent"})
	cc := ctxWithBody("something else")
	res := st.Check(context.Background(), cc.URL, false, cc)
	if res.Status != uptimer.StatusDown {
		t.Fatalf("status = %s, want down", res.Status)
	}
}

func TestHeaderStage(t *testing.T) {
	st, err := newHeaderStage(map[string]any{"pattern": "X-Request-Id", "store_as": "rid"})
	if err != nil {
		t.Fatalf("newHeaderStage: %v", err)
	}
	cc := ctxWithBody("")
	cc.SetHeaders(map[string]string{"X-Request-ID": "abc123"})
	res := st.Check(context.Background(), cc.URL, false, cc)
	if res.Status != uptimer.StatusUp {
		t.Fatalf("status = %s: %s", res.Status, res.Message)
	}
	if v, _ := cc.Resolve("$rid"); v != "abc123" {
		t.Fatalf("$rid = %v", v)
	}
}

func TestHeaderStageMissing(t *testing.T) {
	st, _ := newHeaderStage(map[string]any{"pattern": "X-Missing"})
	cc := ctxWithBody("")
	res := st.Check(context.Background(), cc.URL, false, cc)
	if res.Status != uptimer.StatusDown {
		t.Fatalf("status = %s, want down", res.Status)
	}
}

func TestHeaderStageExpectedMismatch(t *testing.T) {
	st, _ := newHeaderStage(map[string]any{"pattern": "Server", "expected": "nginx"})
	cc := ctxWithBody("")
	cc.SetHeaders(map[string]string{"Server": "apache"})
	res := st.Check(context.Background(), cc.URL, false, cc)
	if res.Status != uptimer.StatusDown {
		t.Fatalf("status = %s, want down on mismatch", res.Status)
	}
}

func TestHTMLStageText(t *testing.T) {
	st, err := newHTMLStage(map[string]any{"selector": "h1.title", "store_as": "title"})
	if err != nil {
		t.Fatalf("newHTMLStage: %v", err)
	}
	cc := ctxWithBody(`<html><body><h1 class="title"> Status Page </h1></body></html>`)
	res := st.Check(context.Background(), cc.URL, false, cc)
	if res.Status != uptimer.StatusUp {
		t.Fatalf("status = %s: %s", res.Status, res.Message)
	}
	if v, _ := cc.Resolve("$title"); v != "Status Page" {
		t.Fatalf("$title = %q", v)
	}
}

func TestHTMLStageAttribute(t *testing.T) {
	st, _ := newHTMLStage(map[string]any{"selector": "meta[name=generator]", "attribute": "content", "store_as": "gen"})
	cc := ctxWithBody(`<html><head><meta name="generator" content="hugo"></head></html>`)
	res := st.Check(context.Background(), cc.URL, false, cc)
	if res.Status != uptimer.StatusUp {
		t.Fatalf("status = %s: %s", res.Status, res.Message)
	}
	if v, _ := cc.Resolve("$gen"); v != "hugo" {
		t.Fatalf("$gen = %v", v)
	}
}

func TestHTMLStageSelectorNotMatched(t *testing.T) {
	st, _ := newHTMLStage(map[string]any{"selector": "#nope"})
	cc := ctxWithBody("<html><body></body></html>")
	res := st.Check(context.Background(), cc.URL, false, cc)
	if res.Status != uptimer.StatusDown {
		t.Fatalf("status = %s, want down", res.Status)
	}
}
