package rules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownEngine is returned by New for an unsupported engine name.
	ErrUnknownEngine = errors.New("rules: unknown engine")
	// ErrEngineUnavailable reports an engine compiled out of this binary.
	ErrEngineUnavailable = errors.New("rules: engine not available in this build")
	// ErrNotBool reports a rule whose result is not a boolean.
	ErrNotBool = errors.New("rules: result is not a boolean")
	// ErrInvalidFunction rejects a helper registration.
	ErrInvalidFunction = errors.New("rules: invalid function")
	// ErrUnknownFunction reports a call to a helper that was never registered.
	ErrUnknownFunction = errors.New("rules: unknown function")
)

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Label  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("rules: %s evaluator %s label=%s: %v", e.Engine, describeExpression(e.Expr), e.Label, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "rules:") {
		return err
	}
	return fmt.Errorf("rules: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, label string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Label == "" {
			evalErr.Label = label
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Label:  label,
		Err:    err,
	}
}
