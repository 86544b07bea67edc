package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/talgya/trustfall/internal/economy"
	"github.com/talgya/trustfall/internal/engine"
	"github.com/talgya/trustfall/internal/social"
)

func newTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Distribute incentive tokens",
	}
	cmd.AddCommand(newTokensMonthlyCmd(), newTokensGrantCmd())
	return cmd
}

func newTokensMonthlyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monthly",
		Short: "Pay out the monthly incentive pool weighted by principal x score",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			dists := a.sim.DistributeMonthlyTokens()
			if dists == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing distributed: no player has a positive score.")
				return nil
			}
			if err := a.save(); err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, dists)
			}
			printDistributions(cmd.OutOrStdout(), a.sim, dists)
			return nil
		},
	}
}

func newTokensGrantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant <amount>",
		Short: "Split an ad hoc token grant evenly among its recipients",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[0], err)
			}
			f := cmd.Flags()
			g := economy.ExtraTokens{Amount: total}
			g.TokenType, _ = f.GetString("token")
			g.TokenSymbol, _ = f.GetString("symbol")
			target, _ := f.GetString("target")
			g.Target = economy.GrantTarget(target)
			g.TopCount, _ = f.GetInt("top")
			if g.TokenSymbol == "" {
				g.TokenSymbol = "$" + g.TokenType
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			switch g.Target {
			case economy.GrantSpecific:
				ref, _ := f.GetString("player")
				p, err := a.player(ref)
				if err != nil {
					return err
				}
				g.Player = p.ID
			case economy.GrantFaction:
				name, _ := f.GetString("faction")
				if g.Faction, err = social.ParseFaction(name); err != nil {
					return err
				}
			}

			dists, err := a.sim.GrantTokens(g)
			if err != nil {
				return err
			}
			if dists == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing distributed: no player matches the target.")
				return nil
			}
			if err := a.save(); err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, dists)
			}
			printDistributions(cmd.OutOrStdout(), a.sim, dists)
			return nil
		},
	}
	cmd.Flags().String("token", economy.IncentiveToken, "Token type")
	cmd.Flags().String("symbol", "", "Token symbol (defaults to $<token>)")
	cmd.Flags().String("target", string(economy.GrantAll), "Recipients: all, specific, top_performers, faction")
	cmd.Flags().String("player", "", "Recipient for specific grants")
	cmd.Flags().Int("top", economy.DefaultTopPerformers, "How many top performers receive the grant")
	cmd.Flags().String("faction", "", "Faction for faction grants, e.g. lumina_collective")
	return cmd
}

func printDistributions(w io.Writer, sim *engine.Simulation, dists []economy.TokenDistribution) {
	rows := make([][]string, 0, len(dists))
	total := 0.0
	for _, d := range dists {
		name := string(d.PlayerID)
		if p, ok := sim.Player(d.PlayerID); ok {
			name = p.Name
		}
		rows = append(rows, []string{name, amount(d.WeightedClaim), amount(d.TokenReward), d.TokenSymbol})
		total += d.TokenReward
	}
	renderTable(w, []string{"Player", "Claim", "Reward", "Token"}, rows)
	fmt.Fprintf(w, "Distributed %s tokens to %d players.\n", amount(total), len(dists))
}

func newYieldsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "yields [player]",
		Short: "Accrue standing deposit yield, or project one player's yield",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if len(args) == 1 {
				p, err := a.player(args[0])
				if err != nil {
					return err
				}
				days, _ := cmd.Flags().GetFloat64("days")
				y, err := a.sim.CalculateYield(p.ID, days)
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return writeJSON(cmd, map[string]any{"player_id": p.ID, "days": days, "yield": y})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s earns %s over %s days at %s%% APY.\n",
					p.Name, amount(y), strconv.FormatFloat(days, 'f', -1, 64), strconv.FormatFloat(a.sim.Config.APY, 'f', -1, 64))
				return nil
			}

			calcs := a.sim.UpdateAllYields(a.sim.CurrentDate)
			if err := a.save(); err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, calcs)
			}
			rows := make([][]string, 0, len(calcs))
			for _, c := range calcs {
				name := string(c.PlayerID)
				if p, ok := a.sim.Player(c.PlayerID); ok {
					name = p.Name
				}
				rows = append(rows, []string{name, amount(c.DailyYield), amount(c.TotalYieldAccrued), amount(c.YieldFromMatches)})
			}
			renderTable(cmd.OutOrStdout(), []string{"Player", "Daily", "Accrued", "From matches"}, rows)
			return nil
		},
	}
	cmd.Flags().Float64("days", 30, "Projection horizon for a single player")
	return cmd
}
