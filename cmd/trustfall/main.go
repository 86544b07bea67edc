// Command trustfall runs the iterated trust game simulation from the command
// line. State lives in a SQLite file between invocations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trustfall",
		Short: "Iterated trust game simulator",
		Long: `trustfall pits players with classic iterated prisoner's dilemma
strategies against each other. Matches move score, reputation and
simulated DeFi yield, and a protocol fee is taken from every match.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "trustfall.yaml", "Config file (YAML); missing files are ignored")
	rootCmd.PersistentFlags().String("db", "", "SQLite state file (overrides config)")
	rootCmd.PersistentFlags().Int64("seed", 0, "Random seed (overrides config; 0 picks one)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newRoundsCmd(),
		newMatchCmd(),
		newPlayersCmd(),
		newTokensCmd(),
		newYieldsCmd(),
		newReportCmd(),
		newStrategiesCmd(),
		newExportCmd(),
		newImportCmd(),
		newResetCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return writeJSON(cmd, map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "trustfall version %s\n", version)
			return nil
		},
	}
}
