// Package rules evaluates small boolean expressions that let operators tune
// runtime decisions, such as whether a failed reload should be retried,
// without rebuilding the binary. Three engines are supported: expr (default),
// CEL, and JavaScript via goja when built with the js_eval tag.
package rules

import (
	"fmt"
	"strings"
	"time"
)

const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// Context carries the variables a rule is evaluated against.
type Context struct {
	Vars  map[string]any
	Now   *time.Time
	Label string
}

func (ctx Context) withDefaults() Context {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Vars == nil {
		ctx.Vars = map[string]any{}
	}
	if ctx.Label == "" {
		ctx.Label = "unknown"
	}
	return ctx
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx Context, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx Context) (any, error)
}

// New returns the evaluator for engine. An empty engine selects expr.
func New(engine string, opts ...Option) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: %s", ErrEngineUnavailable, EngineJS)
		}
		return NewJSEvaluator(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}

// Rule is a compiled boolean expression bound to its engine.
type Rule struct {
	Engine string
	Expr   string

	compiled CompiledRule
	logger   EvaluatorLogger
}

// Compile prepares expr for repeated evaluation with the named engine.
func Compile(engine, expr string, opts ...Option) (*Rule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("rules: expression must not be empty")
	}
	if engine == "" {
		engine = EngineExpr
	}
	evaluator, err := New(engine, opts...)
	if err != nil {
		return nil, err
	}
	compiled, err := evaluator.Compile(expr)
	if err != nil {
		return nil, err
	}
	cfg := applyOptions(opts)
	return &Rule{
		Engine:   strings.ToLower(engine),
		Expr:     expr,
		compiled: compiled,
		logger:   cfg.logger,
	}, nil
}

// Eval runs the rule and returns its raw result.
func (r *Rule) Eval(ctx Context) (any, error) {
	if r == nil || r.compiled == nil {
		return nil, fmt.Errorf("rules: rule not compiled")
	}
	ctx = ctx.withDefaults()
	start := time.Now()
	value, err := r.compiled.Evaluate(ctx)
	err = wrapEvaluationError(r.Engine, r.Expr, ctx.Label, err)
	r.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   r.Engine,
		Expr:     r.Expr,
		Label:    ctx.Label,
		Duration: time.Since(start),
		Result:   value,
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Bool runs the rule and requires a boolean result.
func (r *Rule) Bool(ctx Context) (bool, error) {
	value, err := r.Eval(ctx)
	if err != nil {
		return false, err
	}
	b, ok := value.(bool)
	if !ok {
		return false, wrapEvaluationError(r.Engine, r.Expr, ctx.Label, fmt.Errorf("%w: got %T", ErrNotBool, value))
	}
	return b, nil
}
