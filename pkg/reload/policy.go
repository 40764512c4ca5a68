package reload

import (
	"fmt"

	"github.com/goliatone/go-markers/pkg/rules"
)

// Attempt describes a failed run handed to a RetryPolicy.
type Attempt struct {
	// Failures counts consecutive failures, including this one.
	Failures int
	// TotalFailures counts every failure since the scheduler started.
	TotalFailures int
	// Pending is the number of writes the failed run covered.
	Pending int
	Err     error
}

// RetryPolicy decides whether a failed run re-arms the tracker.
type RetryPolicy interface {
	Retry(attempt Attempt) bool
}

// RetryFunc adapts a function to RetryPolicy.
type RetryFunc func(attempt Attempt) bool

func (fn RetryFunc) Retry(attempt Attempt) bool {
	return fn(attempt)
}

// AlwaysRetry re-arms after every failure.
func AlwaysRetry() RetryPolicy {
	return RetryFunc(func(Attempt) bool { return true })
}

// MaxAttempts retries until n consecutive failures have occurred. n <= 0 means
// unlimited.
func MaxAttempts(n int) RetryPolicy {
	if n <= 0 {
		return AlwaysRetry()
	}
	return RetryFunc(func(attempt Attempt) bool {
		return attempt.Failures < n
	})
}

// RulePolicy evaluates a boolean rule with the variables failures,
// total_failures, pending and error. Evaluation errors count as "do not retry"
// and are reported through onError when set.
type RulePolicy struct {
	Rule    *rules.Rule
	OnError func(error)
}

// NewRulePolicy compiles expr with engine. The retry helper functions and a
// shared program cache are installed first, so opts may replace either.
func NewRulePolicy(engine, expr string, opts ...rules.Option) (*RulePolicy, error) {
	opts = append([]rules.Option{
		rules.WithProgramCache(ruleCache),
		rules.WithFunctionRegistry(retryFunctions),
	}, opts...)
	rule, err := rules.Compile(engine, expr, opts...)
	if err != nil {
		return nil, fmt.Errorf("reload: retry rule: %w", err)
	}
	return &RulePolicy{Rule: rule}, nil
}

func (p *RulePolicy) Retry(attempt Attempt) bool {
	if p == nil || p.Rule == nil {
		return true
	}
	errText := ""
	if attempt.Err != nil {
		errText = attempt.Err.Error()
	}
	ok, err := p.Rule.Bool(rules.Context{
		Label: "reload.retry",
		Vars: map[string]any{
			"failures":       attempt.Failures,
			"total_failures": attempt.TotalFailures,
			"pending":        attempt.Pending,
			"error":          errText,
		},
	})
	if err != nil {
		if p.OnError != nil {
			p.OnError(err)
		}
		return false
	}
	return ok
}
