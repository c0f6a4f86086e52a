package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configName string
	logLevel   string
	dumpDir    string
)

var rootCmd = &cobra.Command{
	Use:   "steamscrape",
	Short: "steamscrape is a CLI for fetching reviews, store pages and profiles from Steam and managing a curator.",

	SilenceUsage:      true,
	PersistentPreRunE: setupGlobals,
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		teardownGlobals(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configName, "config", "steamscrape.json5", "The config file, searched for in the working directory and its parents.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Overrides the log level of the config (debug, info, warn, error).")
	rootCmd.PersistentFlags().StringVar(&dumpDir, "dump", "", "Writes every http exchange into this directory.")
}

// ExecuteContext runs the CLI and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
