package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/goliatone/go-markers"
	"github.com/goliatone/go-markers/internal/config"
	"github.com/goliatone/go-markers/pkg/activity"
	"github.com/goliatone/go-markers/pkg/activity/usersink"
	"github.com/goliatone/go-markers/pkg/document"
	"github.com/goliatone/go-markers/pkg/reload"
	"github.com/goliatone/go-markers/pkg/state"
)

// app holds the components every command shares.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	registry  *markers.Registry
	service   *markers.Service
	scheduler *reload.Scheduler
}

func newApp(logOutput io.Writer) (*app, error) {
	cfg, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger(logOutput)

	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	emitter := activity.NewEmitter(activityHooks(cfg, logger), activity.Config{
		Enabled: cfg.Activity.Enabled,
		Channel: cfg.Activity.Channel,
	})

	policy, err := cfg.RetryPolicy(logger)
	if err != nil {
		return nil, err
	}
	scheduler := reload.NewScheduler(
		reload.NewTracker(),
		reload.CommandAction{Command: cfg.ReloadCommand},
		reload.WithLogger(logger.With("component", "reload")),
		reload.WithInterval(cfg.ReloadInterval()),
		reload.WithTimeout(cfg.ReloadTimeout()),
		reload.WithPolicy(policy),
		reload.WithEmitter(emitter),
	)

	service, err := markers.NewService(registry, state.NewFileStore[document.Tree](document.HOCON),
		markers.WithLogger(logger.With("component", "markers")),
		markers.WithGroupsKey(cfg.GroupsKey),
		markers.WithMarkerSet(cfg.MarkerSet, cfg.MarkerSetLabel),
		markers.WithTracker(scheduler.Tracker()),
		markers.WithActivity(emitter),
	)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		service:   service,
		scheduler: scheduler,
	}, nil
}

func activityHooks(cfg config.Config, logger *slog.Logger) activity.Hooks {
	hooks := activity.Hooks{
		activity.HookFunc(func(_ context.Context, event activity.Event) error {
			logger.Debug("activity", "verb", event.Verb, "object", event.ObjectID, "channel", event.Channel)
			return nil
		}),
	}
	if cfg.ActivityLog != "" {
		hooks = append(hooks, usersink.Hook{Sink: usersink.NewFileSink(cfg.ActivityLog)})
	}
	return hooks
}
