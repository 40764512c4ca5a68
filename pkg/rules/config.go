package rules

// Option configures an evaluator.
type Option func(*evaluatorConfig)

type evaluatorConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
	logger   EvaluatorLogger
}

// WithProgramCache shares compiled programs across evaluations.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *evaluatorConfig) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry exposes registry functions to expressions. Not every
// engine supports custom functions; CEL ignores the registry.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *evaluatorConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

// WithLogger records every rule evaluation made through a Rule.
func WithLogger(logger EvaluatorLogger) Option {
	return func(cfg *evaluatorConfig) {
		cfg.logger = logger
	}
}

func applyOptions(opts []Option) evaluatorConfig {
	cfg := evaluatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopEvaluatorLogger{}
	}
	return cfg
}
