package main

import (
	"fmt"

	"github.com/goliatone/go-markers"
	"github.com/goliatone/go-markers/pkg/reload"
	"github.com/spf13/cobra"
)

var (
	addWorld  string
	addReload bool
	addActor  string
)

var addCmd = &cobra.Command{
	Use:   "add LABEL X Y Z",
	Short: "Add a marker to a world",
	Long: `Add a marker to a world's marker file.

The marker ID is derived from LABEL and suffixed (-2, -3, ...) when it is
already taken. Pass --reload to run the reload command right away instead of
waiting for a running server's next tick.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		req, err := markers.ParseAddRequest(addWorld, args[0], args[1], args[2], args[3])
		if err != nil {
			return err
		}
		req.ActorID = addActor
		res, err := a.service.AddMarker(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.FlashMessage())

		if addReload {
			if result := a.scheduler.Tick(cmd.Context()); result.Outcome != reload.OutcomeSucceeded {
				return fmt.Errorf("marker saved but reload failed: %w", result.Err)
			}
		}
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addWorld, "world", "", "target world (default overworld or the only world)")
	addCmd.Flags().BoolVar(&addReload, "reload", false, "run the reload command after saving")
	addCmd.Flags().StringVar(&addActor, "actor", "", "actor ID recorded on the activity event")
	rootCmd.AddCommand(addCmd)
}
