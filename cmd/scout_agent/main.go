// Package main provides the scout_agent CLI: evaluate a business idea from the
// terminal or serve the evaluation API over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "scout_agent",
		Short: "Business idea evaluation agent",
		Long: `scout_agent researches a business idea's market and competitors, stress-tests it
with a devil's-advocate critic or a three-persona debate, pivots weak ideas and
writes an investment memo or a market reality report.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file (env vars and flags override it)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging and per-stage details")

	cmd.AddCommand(
		newRunCmd(opts),
		newServeCmd(opts),
		newMigrateCmd(opts),
		newHistoryCmd(opts),
	)
	return cmd
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
