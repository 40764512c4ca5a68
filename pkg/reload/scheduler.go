package reload

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/goliatone/go-markers/pkg/activity"
	"github.com/google/uuid"
)

const (
	DefaultInterval = 60 * time.Minute
	DefaultTimeout  = 30 * time.Second
)

// Outcome is the result of one scheduler tick.
type Outcome string

const (
	OutcomeIdle      Outcome = "idle"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeRetrying  Outcome = "retrying"
	OutcomeDropped   Outcome = "dropped"
)

// TickResult reports what a tick did.
type TickResult struct {
	RunID    string
	Outcome  Outcome
	Pending  int
	Duration time.Duration
	Err      error
}

// Stats is a point-in-time view of scheduler activity.
type Stats struct {
	Ticks               int        `json:"ticks"`
	Triggers            int        `json:"triggers"`
	Failures            int        `json:"failures"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	Pending             int        `json:"pending"`
	Dirty               bool       `json:"dirty"`
	LastError           string     `json:"last_error,omitempty"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	Interval            string     `json:"interval"`
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInterval overrides DefaultInterval. Non-positive values are ignored.
func WithInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithTimeout bounds each action run. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Scheduler) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithPolicy replaces the default AlwaysRetry policy.
func WithPolicy(policy RetryPolicy) Option {
	return func(s *Scheduler) {
		if policy != nil {
			s.policy = policy
		}
	}
}

// WithEmitter publishes reload.* activity events.
func WithEmitter(emitter *activity.Emitter) Option {
	return func(s *Scheduler) {
		s.emitter = emitter
	}
}

// Scheduler periodically drains a Tracker and runs an Action.
type Scheduler struct {
	tracker  *Tracker
	action   Action
	interval time.Duration
	timeout  time.Duration
	policy   RetryPolicy
	emitter  *activity.Emitter
	logger   *slog.Logger

	// run serialises ticks so TriggerNow cannot overlap the loop.
	run sync.Mutex

	mu    sync.Mutex
	stats Stats
}

// NewScheduler binds tracker to action.
func NewScheduler(tracker *Tracker, action Action, opts ...Option) *Scheduler {
	s := &Scheduler{
		tracker:  tracker,
		action:   action,
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		policy:   AlwaysRetry(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracker == nil {
		s.tracker = NewTracker()
	}
	if s.action == nil {
		s.action = CommandAction{}
	}
	return s
}

// Tracker returns the dirty flag writers should mark.
func (s *Scheduler) Tracker() *Tracker {
	return s.tracker
}

// Run ticks every interval until ctx is cancelled. The first tick happens one
// interval after Run starts.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("reload scheduler started", "interval", s.interval, "timeout", s.timeout)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reload scheduler stopped", "pending", s.tracker.Pending())
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs the action if any write happened since the last successful run.
func (s *Scheduler) Tick(ctx context.Context) TickResult {
	s.run.Lock()
	defer s.run.Unlock()

	s.mu.Lock()
	s.stats.Ticks++
	s.mu.Unlock()

	dirty, pending := s.tracker.TakeAndClear()
	if !dirty {
		return TickResult{Outcome: OutcomeIdle}
	}
	return s.trigger(ctx, pending)
}

// TriggerNow runs the action immediately, whether or not the tracker is dirty.
// Pending writes are consumed by the run.
func (s *Scheduler) TriggerNow(ctx context.Context) TickResult {
	s.run.Lock()
	defer s.run.Unlock()

	_, pending := s.tracker.TakeAndClear()
	return s.trigger(ctx, pending)
}

func (s *Scheduler) trigger(ctx context.Context, pending int) TickResult {
	result := TickResult{RunID: uuid.NewString(), Pending: pending}
	logger := s.logger.With("run_id", result.RunID, "pending", pending)

	s.mu.Lock()
	s.stats.Triggers++
	attempt := s.stats.ConsecutiveFailures + 1
	s.mu.Unlock()

	s.emit(ctx, activity.BuildReloadTriggeredEvent(activity.ReloadEventInput{
		RunID: result.RunID, Pending: pending, Attempt: attempt,
	}))

	// Shutdown must not kill a reload that is already running; the timeout
	// still bounds it.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	start := time.Now()
	err := s.action.Run(runCtx)
	cancel()
	result.Duration = time.Since(start)

	if err == nil {
		s.mu.Lock()
		s.stats.ConsecutiveFailures = 0
		s.stats.LastError = ""
		now := time.Now()
		s.stats.LastSuccess = &now
		s.mu.Unlock()

		logger.Info("reload succeeded", "duration", result.Duration)
		s.emit(ctx, activity.BuildReloadSucceededEvent(activity.ReloadEventInput{
			RunID: result.RunID, Pending: pending, Attempt: attempt, Duration: result.Duration,
		}))
		result.Outcome = OutcomeSucceeded
		return result
	}

	result.Err = err
	s.mu.Lock()
	s.stats.Failures++
	s.stats.ConsecutiveFailures++
	s.stats.LastError = err.Error()
	failed := Attempt{
		Failures:      s.stats.ConsecutiveFailures,
		TotalFailures: s.stats.Failures,
		Pending:       pending,
		Err:           err,
	}
	s.mu.Unlock()

	retry := s.policy.Retry(failed)
	if retry {
		s.tracker.Rearm(pending)
		result.Outcome = OutcomeRetrying
		logger.Warn("reload failed, will retry next tick", "error", err, "failures", failed.Failures)
	} else {
		s.mu.Lock()
		s.stats.ConsecutiveFailures = 0
		s.mu.Unlock()
		result.Outcome = OutcomeDropped
		logger.Error("reload failed, retry budget exhausted; waiting for next write", "error", err, "failures", failed.Failures)
	}
	s.emit(ctx, activity.BuildReloadFailedEvent(activity.ReloadEventInput{
		RunID: result.RunID, Pending: pending, Attempt: attempt, Duration: result.Duration, Err: err, Retrying: retry,
	}))
	return result
}

// Stats returns a snapshot of counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()
	if stats.LastSuccess != nil {
		last := *stats.LastSuccess
		stats.LastSuccess = &last
	}
	stats.Pending = s.tracker.Pending()
	stats.Dirty = s.tracker.Dirty()
	stats.Interval = s.interval.String()
	return stats
}

func (s *Scheduler) emit(ctx context.Context, event activity.Event) {
	if err := s.emitter.Emit(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("activity emit failed", "verb", event.Verb, "error", err)
	}
}
