package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/talgya/trustfall/internal/config"
	"github.com/talgya/trustfall/internal/persistence"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the roster, match log and config to a JSON scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			desc, _ := cmd.Flags().GetString("description")
			tags, _ := cmd.Flags().GetString("tags")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			scenario := persistence.ExportScenario(a.sim, name, desc, tags, time.Now())
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create scenario file: %w", err)
			}
			if err := scenario.Encode(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported scenario %s (%d players, %s matches) to %s.\n",
				scenario.ID, len(scenario.Players), count(len(scenario.Matches)), args[0])
			return nil
		},
	}
	cmd.Flags().String("name", "untitled", "Scenario name")
	cmd.Flags().String("description", "", "Scenario description")
	cmd.Flags().String("tags", "", "Comma separated tags")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the saved state with a scenario file",
		Long: `Replaces players, matches and config with the scenario's. Yield
calculations, token distributions, protocol revenue and the round
counter start over.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open scenario file: %w", err)
			}
			defer f.Close()
			scenario, err := persistence.DecodeScenario(f)
			if err != nil {
				return err
			}
			sim, err := scenario.Simulation()
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			a.sim = sim
			if err := a.save(); err != nil {
				return err
			}
			slog.Info("scenario imported", "id", scenario.ID, "name", scenario.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %q: %d players, %s matches.\n",
				scenario.Name, len(sim.Players), count(len(sim.Matches)))
			return nil
		},
	}
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard the saved simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			playersOnly, _ := cmd.Flags().GetBool("players")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if playersOnly {
				a.sim.ClearPlayers()
			} else {
				a.sim.Reset()
			}
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Simulation reset.")
			return nil
		},
	}
	cmd.Flags().Bool("players", false, "Only clear players and their records; keep reputation events and the calendar")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, create or apply the configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return writeJSON(cmd, cfg)
				}
				return yaml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			},
		},
		&cobra.Command{
			Use:   "init [file]",
			Short: "Write the default configuration to a file",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, _ := cmd.Flags().GetString("config")
				if len(args) == 1 {
					path = args[0]
				}
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists", path)
				} else if !errors.Is(err, os.ErrNotExist) {
					return err
				}
				if err := config.Default().Save(path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s.\n", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "apply",
			Short: "Replace the saved simulation's settings with the effective configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(cmd)
				if err != nil {
					return err
				}
				defer a.close()

				a.sim.Config = a.cfg.Simulation
				if err := a.save(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Settings applied.")
				return nil
			},
		},
	)
	return cmd
}
