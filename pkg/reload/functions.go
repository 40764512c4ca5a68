package reload

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-markers/pkg/rules"
)

var exitStatus = regexp.MustCompile(`exit status (-?\d+)`)

// retryFunctions are available to retry rules on the expr and js engines:
//
//	exit_code(error)              exit status of the failed command, -1 if none
//	timed_out(error)              true when the run hit the action timeout
//	error_matches(error, pattern) regular expression match against the error
var retryFunctions = newRetryFunctions()

// ruleCache shares compiled retry rules across policies.
var ruleCache = rules.NewMapCache()

func newRetryFunctions() *rules.FunctionRegistry {
	registry := rules.NewFunctionRegistry()
	mustRegister(registry, "exit_code", 1, func(args ...any) (any, error) {
		text, err := stringArg("exit_code", args, 0)
		if err != nil {
			return nil, err
		}
		return exitCode(text), nil
	})
	mustRegister(registry, "timed_out", 1, func(args ...any) (any, error) {
		text, err := stringArg("timed_out", args, 0)
		if err != nil {
			return nil, err
		}
		return strings.Contains(text, context.DeadlineExceeded.Error()), nil
	})
	mustRegister(registry, "error_matches", 2, func(args ...any) (any, error) {
		text, err := stringArg("error_matches", args, 0)
		if err != nil {
			return nil, err
		}
		pattern, err := stringArg("error_matches", args, 1)
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("error_matches: %w", err)
		}
		return re.MatchString(text), nil
	})
	return registry
}

func mustRegister(registry *rules.FunctionRegistry, name string, arity int, fn rules.Function) {
	if err := registry.Register(name, arity, fn); err != nil {
		panic(err)
	}
}

func stringArg(name string, args []any, index int) (string, error) {
	switch v := args[index].(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("%s: argument %d must be a string, got %T", name, index+1, v)
	}
}

// exitCode extracts the command exit status from a reload error message.
func exitCode(text string) int {
	match := exitStatus.FindStringSubmatch(text)
	if match == nil {
		return -1
	}
	code, err := strconv.Atoi(match[1])
	if err != nil {
		return -1
	}
	return code
}
