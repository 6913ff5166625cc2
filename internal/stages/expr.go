package stages

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/mortenoh/uptimer/internal/uptimer"
)

// ExprStage evaluates a boolean expression over the extracted context values.
// Values stored by extractors are addressable by name, alongside the
// built-ins elapsed_ms, status_code and body_length.
type ExprStage struct {
	source  string
	program *vm.Program
}

func newExprStage(opts map[string]any) (Stage, error) {
	source, err := optRequiredString(opts, "expr")
	if err != nil {
		return nil, err
	}
	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("invalid expression: %v", err)
	}
	return &ExprStage{source: source, program: program}, nil
}

func (s *ExprStage) Name() string         { return "expr" }
func (s *ExprStage) Description() string  { return "Assert a boolean expression over extracted values" }
func (s *ExprStage) IsNetworkStage() bool { return false }

func (s *ExprStage) Check(ctx context.Context, url string, verbose bool, cc *uptimer.CheckContext) *Result {
	values := cc.SnapshotValues()
	env := make(map[string]any, len(values)+3)
	for k, v := range values {
		env[k] = v
	}
	env["elapsed_ms"] = cc.ElapsedMS
	env["status_code"] = cc.StatusCode
	env["body_length"] = len(cc.ResponseBody)

	out, err := expr.Run(s.program, env)
	if err != nil {
		return down(fmt.Sprintf("evaluation failed: %v", err), map[string]any{"expression": s.source, "error": err.Error()})
	}

	ok, isBool := out.(bool)
	if !isBool {
		return down(fmt.Sprintf("expression is not boolean: %v", out), map[string]any{"expression": s.source, "result": out})
	}

	details := map[string]any{"expression": s.source, "result": ok}
	if !ok {
		return down("expression false", details)
	}
	return up("expression true", details)
}

func registerExpr(r *Registry) {
	r.Register(Info{
		Type:        "expr",
		Name:        "Expression",
		Description: "Assert a boolean expression over extracted values",
		Options: []Option{
			{Name: "expr", Label: "Expression", Type: "string", Required: true, Description: "Boolean expression over context values"},
		},
	}, newExprStage)
}
