package main

import (
	"fmt"
	"time"

	"github.com/goliatone/go-markers/pkg/reload"
	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Run the renderer reload command now",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		result := a.scheduler.TriggerNow(cmd.Context())
		if result.Outcome != reload.OutcomeSucceeded {
			return fmt.Errorf("reload failed: %w", result.Err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reload succeeded in %s\n", result.Duration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reloadCmd)
}
