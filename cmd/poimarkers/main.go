// Command poimarkers adds points of interest to map renderer marker files and
// asks the renderer to reload them on a schedule.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "poimarkers",
	Short: "Manage user points of interest in map marker files",
	Long: `poimarkers keeps user-registered points of interest in the per-world
HOCON marker files read by a map renderer.

Writes land in the marker file immediately; the renderer reload command runs
at most once per reload interval, however many markers were added.

Settings are read from --config, then $APP_CONFIG, then ./config.yaml.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default $APP_CONFIG or config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
