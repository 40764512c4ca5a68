package rules

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"sync"
)

// Function is a helper callable by name from expr and js rules.
type Function func(args ...any) (any, error)

// Variadic is the arity of a function that accepts any number of arguments.
const Variadic = -1

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedNames are already bound in every rule environment.
var reservedNames = map[string]bool{"now": true, "call": true}

type registeredFunction struct {
	fn    Function
	arity int
}

// FunctionRegistry holds helpers exposed to rules as globals. Names are case
// sensitive and must be valid identifiers in every engine.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]registeredFunction
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]registeredFunction),
	}
}

// Register adds fn under name. arity is the exact argument count Call
// enforces, or Variadic.
func (r *FunctionRegistry) Register(name string, arity int, fn Function) error {
	switch {
	case fn == nil:
		return fmt.Errorf("%w: %q has no implementation", ErrInvalidFunction, name)
	case !identifier.MatchString(name):
		return fmt.Errorf("%w: %q is not an identifier", ErrInvalidFunction, name)
	case reservedNames[name]:
		return fmt.Errorf("%w: %q is reserved", ErrInvalidFunction, name)
	case arity < Variadic:
		return fmt.Errorf("%w: %q has negative arity %d", ErrInvalidFunction, name, arity)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]registeredFunction)
	}
	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("%w: %q already registered", ErrInvalidFunction, name)
	}
	r.functions[name] = registeredFunction{fn: fn, arity: arity}
	return nil
}

// Clone snapshots the registry so later registrations do not leak into
// evaluators built from it.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &FunctionRegistry{functions: maps.Clone(r.functions)}
}

// Call checks the argument count and runs the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	r.mu.RLock()
	entry, ok := r.functions[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if entry.arity != Variadic && len(args) != entry.arity {
		return nil, fmt.Errorf("rules: %s takes %d argument(s), got %d", name, entry.arity, len(args))
	}
	return entry.fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.functions))
}
