package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-markers/internal/web"
	"github.com/spf13/cobra"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web form and the reload scheduler",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return a.serve(ctx, serveListen)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default from settings)")
	rootCmd.AddCommand(serveCmd)
}

func (a *app) serve(ctx context.Context, listen string) error {
	if listen == "" {
		listen = a.cfg.Listen
	}
	handler := web.NewServer(a.service, a.registry.Names(),
		web.WithLogger(a.logger.With("component", "web")),
		web.WithStats(a.scheduler),
	)
	server := &http.Server{
		Addr:              listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		_ = a.scheduler.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", listen, "worlds", a.registry.Names())
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	<-schedulerDone
	if pending := a.scheduler.Tracker().Pending(); pending > 0 {
		a.logger.Warn("exiting with writes not yet reloaded", "pending", pending)
	}
	return err
}
