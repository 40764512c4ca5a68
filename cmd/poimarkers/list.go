package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	listWorld string
	listJSON  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List markers per world",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		listing, err := a.service.ListMarkers(cmd.Context(), listWorld)
		if err != nil {
			return err
		}
		if listJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(listing)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "WORLD\tID\tLABEL\tX\tY\tZ")
		for _, world := range a.registry.Names() {
			for _, m := range listing[world] {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", world, m.ID, m.Label, m.X, m.Y, m.Z)
			}
		}
		return tw.Flush()
	},
}

func init() {
	listCmd.Flags().StringVar(&listWorld, "world", "", "only list this world")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON")
	rootCmd.AddCommand(listCmd)
}
