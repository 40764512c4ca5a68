// Package config loads the YAML settings file shared by every poimarkers
// command.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-markers"
	"github.com/goliatone/go-markers/internal/hydrate"
	"github.com/goliatone/go-markers/layering"
	"github.com/goliatone/go-markers/pkg/activity"
	"github.com/goliatone/go-markers/pkg/reload"
	"github.com/goliatone/go-markers/pkg/rules"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that overrides DefaultPath.
const EnvPath = "APP_CONFIG"

// DefaultPath is used when neither --config nor APP_CONFIG is set.
const DefaultPath = "config.yaml"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config mirrors the flat keys of the settings file.
type Config struct {
	MarkerFiles           map[string]string `json:"marker_files"`
	MarkerSet             string            `json:"marker_set"`
	MarkerSetLabel        string            `json:"marker_set_label"`
	GroupsKey             string            `json:"groups_key"`
	ReloadIntervalMinutes int               `json:"reload_interval_minutes"`
	ReloadCommand         string            `json:"reload_command"`
	ReloadTimeoutSeconds  int               `json:"reload_timeout_seconds"`
	ReloadMaxRetries      int               `json:"reload_max_retries"`
	ReloadRetryRule       string            `json:"reload_retry_rule"`
	ReloadRuleEngine      string            `json:"reload_rule_engine"`
	Listen                string            `json:"listen"`
	Activity              ActivityConfig    `json:"activity"`
	ActivityLog           string            `json:"activity_log"`
	LogLevel              string            `json:"log_level"`
	LogFormat             string            `json:"log_format"`
}

// ActivityConfig toggles activity events.
type ActivityConfig struct {
	Enabled bool   `json:"enabled"`
	Channel string `json:"channel"`
}

// Defaults returns the weakest configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"marker_set":              markers.DefaultSetKey,
		"marker_set_label":        markers.DefaultSetLabel,
		"groups_key":              markers.DefaultGroupsKey,
		"reload_interval_minutes": int(reload.DefaultInterval / time.Minute),
		"reload_command":          "",
		"reload_timeout_seconds":  int(reload.DefaultTimeout / time.Second),
		"reload_max_retries":      0,
		"reload_rule_engine":      rules.EngineExpr,
		"listen":                  ":5000",
		"activity": map[string]any{
			"enabled": false,
			"channel": activity.DefaultChannel,
		},
		"log_level":  "info",
		"log_format": "text",
	}
}

// ResolvePath picks the settings file: explicit wins, then APP_CONFIG, then
// DefaultPath.
func ResolvePath(explicit string) string {
	if path := strings.TrimSpace(explicit); path != "" {
		return path
	}
	if path := strings.TrimSpace(os.Getenv(EnvPath)); path != "" {
		return path
	}
	return DefaultPath
}

// Load reads and validates the settings file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse decodes YAML settings. source is only used in error messages.
func Parse(source string, data []byte) (Config, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", source, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	merged := layering.MergeLayers(raw, Defaults())

	decoder := hydrate.NewDecoder(
		hydrate.WithPreHook[Config](foldLegacyMarkerFile),
		hydrate.WithPostHook[Config](validate),
	)
	return decoder.Decode(hydrate.Context{Source: source}, merged)
}

// foldLegacyMarkerFile maps the single-world marker_file key onto
// marker_files when no explicit mapping is configured.
func foldLegacyMarkerFile(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	legacy, present := payload["marker_file"]
	delete(payload, "marker_file")
	if !present || legacy == nil {
		return payload, nil
	}
	file, ok := legacy.(string)
	if !ok {
		return nil, fmt.Errorf("%w: marker_file must be a string, got %T", ErrInvalid, legacy)
	}
	if files, ok := payload["marker_files"].(map[string]any); ok && len(files) > 0 {
		return payload, nil
	}
	if strings.TrimSpace(file) != "" {
		payload["marker_files"] = map[string]any{markers.DefaultWorld: file}
	}
	return payload, nil
}

func validate(_ hydrate.Context, cfg *Config) error {
	var problems []error
	if len(cfg.MarkerFiles) == 0 {
		problems = append(problems, fmt.Errorf("%w: marker_files or marker_file is required", ErrInvalid))
	}
	if strings.TrimSpace(cfg.MarkerSet) == "" {
		problems = append(problems, fmt.Errorf("%w: marker_set must not be empty", ErrInvalid))
	}
	if cfg.ReloadIntervalMinutes <= 0 {
		problems = append(problems, fmt.Errorf("%w: reload_interval_minutes must be positive", ErrInvalid))
	}
	if cfg.ReloadTimeoutSeconds <= 0 {
		problems = append(problems, fmt.Errorf("%w: reload_timeout_seconds must be positive", ErrInvalid))
	}
	if cfg.ReloadMaxRetries < 0 {
		problems = append(problems, fmt.Errorf("%w: reload_max_retries must not be negative", ErrInvalid))
	}
	switch strings.ToLower(cfg.ReloadRuleEngine) {
	case rules.EngineExpr, rules.EngineCEL, rules.EngineJS:
	default:
		problems = append(problems, fmt.Errorf("%w: unknown reload_rule_engine %q", ErrInvalid, cfg.ReloadRuleEngine))
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		problems = append(problems, err)
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalid, cfg.LogFormat))
	}
	return errors.Join(problems...)
}

// Registry builds the world registry.
func (c Config) Registry() (*markers.Registry, error) {
	return markers.NewRegistry(c.MarkerFiles, "")
}

// ReloadInterval is the scheduler tick period.
func (c Config) ReloadInterval() time.Duration {
	return time.Duration(c.ReloadIntervalMinutes) * time.Minute
}

// ReloadTimeout bounds each reload command run.
func (c Config) ReloadTimeout() time.Duration {
	return time.Duration(c.ReloadTimeoutSeconds) * time.Second
}

// RetryPolicy picks the reload retry policy: a rule when reload_retry_rule is
// set, a retry budget when reload_max_retries is positive, otherwise retry
// forever.
func (c Config) RetryPolicy(logger *slog.Logger) (reload.RetryPolicy, error) {
	if rule := strings.TrimSpace(c.ReloadRetryRule); rule != "" {
		var opts []rules.Option
		if logger != nil {
			opts = append(opts, rules.WithLogger(rules.EvaluatorLoggerFunc(func(event rules.EvaluatorLogEvent) {
				logger.Debug("retry rule evaluated",
					"engine", event.Engine, "result", event.Result, "duration", event.Duration, "error", event.Err)
			})))
		}
		policy, err := reload.NewRulePolicy(c.ReloadRuleEngine, rule, opts...)
		if err != nil {
			return nil, err
		}
		if logger != nil {
			policy.OnError = func(err error) {
				logger.Error("retry rule failed, not retrying", "error", err)
			}
		}
		return policy, nil
	}
	if c.ReloadMaxRetries > 0 {
		return reload.MaxAttempts(c.ReloadMaxRetries + 1), nil
	}
	return reload.AlwaysRetry(), nil
}

// Logger builds the process logger from log_level and log_format.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log_level %q", ErrInvalid, raw)
	}
	return level, nil
}
