package rules

import (
	"fmt"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
)

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEvaluator struct {
	cache ProgramCache
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Every variable is
// declared dynamic, so the declared set is derived from the context the rule
// is first evaluated with.
func NewCELEvaluator(opts ...Option) Evaluator {
	cfg := applyOptions(opts)
	return &celEvaluator{cache: cfg.cache}
}

func (e *celEvaluator) Evaluate(ctx Context, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(EngineCEL, fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression, ctx.Vars)
	if err != nil {
		return nil, err
	}
	out, _, err := program.program.Eval(e.activation(ctx))
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, ctx.Label, err)
	}
	return out.Value(), nil
}

// Compile checks the expression against an environment holding only "now";
// variable references are resolved when the rule is evaluated.
func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(EngineCEL, fmt.Errorf("expression must not be empty"))
	}
	env, err := e.buildEnv(nil)
	if err != nil {
		return nil, wrapEvaluatorError(EngineCEL, err)
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", issues.Err())
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
	}, nil
}

func (e *celEvaluator) loadOrCompile(expression string, vars map[string]any) (*celProgram, error) {
	key := EngineCEL + ":" + varsSignature(vars) + ":" + expression
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(vars)
	if err != nil {
		return nil, wrapEvaluatorError(EngineCEL, err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", err)
	}

	bundle := &celProgram{env: env, program: prg}
	if e.cache != nil {
		e.cache.Set(key, bundle)
	}
	return bundle, nil
}

func (e *celEvaluator) buildEnv(vars map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
	}
	for _, key := range sortedKeys(vars) {
		if key == "now" {
			continue
		}
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(ctx Context) map[string]any {
	activation := map[string]any{
		"now": *ctx.Now,
	}
	for key, value := range ctx.Vars {
		if key == "now" {
			continue
		}
		activation[key] = value
	}
	return activation
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx Context) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError(EngineCEL, fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.Evaluate(ctx, r.expression)
}

func sortedKeys(vars map[string]any) []string {
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func varsSignature(vars map[string]any) string {
	return strings.Join(sortedKeys(vars), ",")
}
