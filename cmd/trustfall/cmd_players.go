package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/engine"
)

func newPlayersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "players",
		Short: "Manage the roster",
	}
	cmd.AddCommand(
		newPlayersAddCmd(),
		newPlayersBulkCmd(),
		newPlayersListCmd(),
		newPlayersEditCmd(),
		newPlayersAdjustCmd(),
		newPlayersResetCmd(),
		newPlayersRemoveCmd(),
		newPlayersHistoryCmd(),
	)
	return cmd
}

// mutatePlayer opens the app, applies fn to the referenced player, saves and
// prints the result.
func mutatePlayer(cmd *cobra.Command, ref string, fn func(a *app, p *agents.Player) (*agents.Player, error)) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.player(ref)
	if err != nil {
		return err
	}
	if p, err = fn(a, p); err != nil {
		return err
	}
	if err := a.save(); err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return writeJSON(cmd, p)
	}
	if p != nil {
		printPlayers(cmd.OutOrStdout(), []*agents.Player{p})
	}
	return nil
}

func newPlayersAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			principal, _ := cmd.Flags().GetFloat64("principal")
			reputation, _ := cmd.Flags().GetInt("reputation")
			key, _ := cmd.Flags().GetString("strategy")
			trust, _ := cmd.Flags().GetFloat64("trust")
			strategy, err := parseStrategy(key, trust)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			p, err := a.sim.AddPlayer(agents.PlayerSpec{
				Name:       args[0],
				Principal:  principal,
				Reputation: reputation,
				Strategy:   strategy,
			})
			if err != nil {
				return err
			}
			if err := a.save(); err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, p)
			}
			printPlayers(cmd.OutOrStdout(), []*agents.Player{p})
			return nil
		},
	}
	cmd.Flags().Float64("principal", 1000, "Simulated deposit")
	cmd.Flags().Int("reputation", 50, "Starting reputation (0-100)")
	cmd.Flags().String("strategy", "tit_for_tat", "Strategy key (see 'trustfall strategies')")
	cmd.Flags().Float64("trust", 50, "Trust percentage for the percentage strategy")
	return cmd
}

func newPlayersBulkCmd() *cobra.Command {
	def := agents.DefaultBulkSpec()
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Spawn a batch of randomized players",
		RunE: func(cmd *cobra.Command, args []string) error {
			b := agents.DefaultBulkSpec()
			f := cmd.Flags()
			b.Count, _ = f.GetInt("count")
			b.NamePrefix, _ = f.GetString("prefix")
			b.DepositMin, _ = f.GetFloat64("deposit-min")
			b.DepositMax, _ = f.GetFloat64("deposit-max")
			b.DepositVariance, _ = f.GetFloat64("variance")
			b.ReputationMin, _ = f.GetInt("rep-min")
			b.ReputationMax, _ = f.GetInt("rep-max")
			b.TrustMin, _ = f.GetFloat64("trust-min")
			b.TrustMax, _ = f.GetFloat64("trust-max")
			assign, _ := f.GetString("assign")
			b.Assignment = agents.StrategyAssignment(assign)
			if b.Assignment == agents.AssignSpecific {
				key, _ := f.GetString("strategy")
				kind, err := agents.ParseStrategyKind(key)
				if err != nil {
					return err
				}
				b.Specific = kind
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			added, err := a.sim.AddPlayers(b, a.rand())
			if err != nil {
				return err
			}
			if err := a.save(); err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, added)
			}
			printPlayers(cmd.OutOrStdout(), added)
			return nil
		},
	}
	cmd.Flags().Int("count", def.Count, "Number of players")
	cmd.Flags().String("prefix", def.NamePrefix, "Name prefix; numbering continues after existing players")
	cmd.Flags().Float64("deposit-min", def.DepositMin, "Smallest deposit")
	cmd.Flags().Float64("deposit-max", def.DepositMax, "Largest deposit")
	cmd.Flags().Float64("variance", def.DepositVariance, "Deposit jitter as a percent of the range")
	cmd.Flags().Int("rep-min", def.ReputationMin, "Lowest starting reputation")
	cmd.Flags().Int("rep-max", def.ReputationMax, "Highest starting reputation")
	cmd.Flags().String("assign", string(def.Assignment), "Strategy assignment: random, percentage, specific")
	cmd.Flags().String("strategy", "tit_for_tat", "Strategy key for specific assignment")
	cmd.Flags().Float64("trust-min", def.TrustMin, "Lowest trust percentage for percentage assignment")
	cmd.Flags().Float64("trust-max", def.TrustMax, "Highest trust percentage for percentage assignment")
	return cmd
}

func newPlayersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List players",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if jsonOutput(cmd) {
				return writeJSON(cmd, a.sim.Players)
			}
			printPlayers(cmd.OutOrStdout(), a.sim.Players)
			return nil
		},
	}
}

func newPlayersEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <player>",
		Short: "Change a player's name, principal, reputation or strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var u engine.PlayerUpdate
			if f.Changed("name") {
				v, _ := f.GetString("name")
				u.Name = &v
			}
			if f.Changed("principal") {
				v, _ := f.GetFloat64("principal")
				u.Principal = &v
			}
			if f.Changed("reputation") {
				v, _ := f.GetInt("reputation")
				u.Reputation = &v
			}
			if f.Changed("strategy") {
				key, _ := f.GetString("strategy")
				trust, _ := f.GetFloat64("trust")
				s, err := parseStrategy(key, trust)
				if err != nil {
					return err
				}
				u.Strategy = &s
			}
			return mutatePlayer(cmd, args[0], func(a *app, p *agents.Player) (*agents.Player, error) {
				return a.sim.UpdatePlayer(p.ID, u)
			})
		},
	}
	cmd.Flags().String("name", "", "New name")
	cmd.Flags().Float64("principal", 0, "New principal")
	cmd.Flags().Int("reputation", 0, "New reputation (recorded as a manual adjustment)")
	cmd.Flags().String("strategy", "", "New strategy key")
	cmd.Flags().Float64("trust", 50, "Trust percentage for the percentage strategy")
	return cmd
}

func newPlayersAdjustCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adjust <player> --delta=<n>",
		Short: "Shift a player's reputation, clamped to 0-100",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, _ := cmd.Flags().GetInt("delta")
			details, _ := cmd.Flags().GetString("details")
			return mutatePlayer(cmd, args[0], func(a *app, p *agents.Player) (*agents.Player, error) {
				return a.sim.AdjustReputation(p.ID, delta, details)
			})
		},
	}
	cmd.Flags().Int("delta", 0, "Reputation change, e.g. --delta=-5")
	cmd.Flags().String("details", "", "Reason recorded with the reputation event")
	return cmd
}

func newPlayersResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <player>",
		Short: "Return a player to its starting principal with a clean record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutatePlayer(cmd, args[0], func(a *app, p *agents.Player) (*agents.Player, error) {
				return a.sim.ResetPlayer(p.ID)
			})
		},
	}
}

func newPlayersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <player>",
		Short: "Remove a player and its yield and token records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutatePlayer(cmd, args[0], func(a *app, p *agents.Player) (*agents.Player, error) {
				if err := a.sim.RemovePlayer(p.ID); err != nil {
					return nil, err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", p.Name)
				return nil, nil
			})
		},
	}
}

func newPlayersHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <player>",
		Short: "Show a player's reputation events and latest matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("matches")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			p, err := a.player(args[0])
			if err != nil {
				return err
			}
			events := a.sim.PlayerReputationHistory(p.ID)
			if jsonOutput(cmd) {
				return writeJSON(cmd, events)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s: %d opponents, %s trust\n\n", p.Name, p.Opponents(), percent(p.TrustRate()))
			rows := make([][]string, 0, len(events))
			for _, ev := range events {
				rows = append(rows, []string{
					ev.Timestamp.Format(time.DateTime),
					strconv.Itoa(ev.OldReputation),
					strconv.Itoa(ev.NewReputation),
					signed(ev.Change),
					string(ev.Reason),
					ev.Details,
				})
			}
			renderTable(w, []string{"Time", "Old", "New", "Change", "Reason", "Details"}, rows)
			if limit > 0 {
				fmt.Fprintln(w, "\nLatest matches")
				printMatches(w, a.sim.PlayerMatches(p.ID, limit))
			}
			return nil
		},
	}
	cmd.Flags().Int("matches", 5, "Also list this many of the player's latest matches")
	return cmd
}
