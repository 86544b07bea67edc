package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/economy"
	"github.com/talgya/trustfall/internal/engine"
)

// report is the JSON form of the report command.
type report struct {
	CurrentRound int                   `json:"current_round"`
	StartDate    time.Time             `json:"start_date"`
	CurrentDate  time.Time             `json:"current_date"`
	VaultValue   float64               `json:"vault_value"`
	VaultYield   float64               `json:"vault_yield_per_match"`
	Statistics   engine.Statistics     `json:"statistics"`
	Leaderboard  []*agents.Player      `json:"leaderboard"`
	Factions     []engine.GroupSummary `json:"factions"`
	Strategies   []engine.GroupSummary `json:"strategies"`
	Recent       []engine.Match        `json:"recent_matches,omitempty"`
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show statistics, the leaderboard and faction and strategy breakdowns",
		RunE: func(cmd *cobra.Command, args []string) error {
			top, _ := cmd.Flags().GetInt("top")
			recent, _ := cmd.Flags().GetInt("recent")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			sim := a.sim
			r := report{
				CurrentRound: sim.CurrentRound,
				StartDate:    sim.StartDate,
				CurrentDate:  sim.CurrentDate,
				VaultValue:   sim.TotalVaultValue(),
				VaultYield:   economy.VaultYield(sim.TotalVaultValue(), sim.Config.APY, float64(sim.Config.MatchDurationMinutes)),
				Statistics:   sim.Stats,
				Leaderboard:  sim.Leaderboard(top),
				Factions:     sim.FactionBreakdown(),
				Strategies:   sim.StrategyBreakdown(),
			}
			if recent > 0 {
				if r.Recent, err = a.db.RecentMatches(recent); err != nil {
					return fmt.Errorf("recent matches: %w", err)
				}
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, r)
			}
			printReport(cmd.OutOrStdout(), r)
			return nil
		},
	}
	cmd.Flags().Int("top", 10, "Leaderboard size (0 for everyone)")
	cmd.Flags().Int("recent", 0, "Also list this many of the latest matches")
	return cmd
}

func printReport(w io.Writer, r report) {
	st := r.Statistics
	fmt.Fprintf(w, "Round %d, %s (started %s)\n", r.CurrentRound,
		r.CurrentDate.Format(time.DateOnly), r.StartDate.Format(time.DateOnly))
	fmt.Fprintf(w, "Vault value: %s (%s yield per match)\n\n", amount(r.VaultValue), amount(r.VaultYield))

	ratio := func(n int) string {
		if st.TotalMatches == 0 {
			return "-"
		}
		return percent(float64(n) / float64(st.TotalMatches))
	}
	renderTable(w, []string{"Statistic", "Value"}, [][]string{
		{"Matches", count(st.TotalMatches)},
		{"Trust-trust", count(st.TrustTrustMatches) + " (" + ratio(st.TrustTrustMatches) + ")"},
		{"Mixed", count(st.MixedMatches) + " (" + ratio(st.MixedMatches) + ")"},
		{"Betray-betray", count(st.BetrayBetrayMatches) + " (" + ratio(st.BetrayBetrayMatches) + ")"},
		{"Against the Arbiter", count(st.ArbiterMatches)},
		{"Yield generated", amount(st.TotalYieldGenerated)},
		{"Yield burned", amount(st.TotalYieldBurned)},
		{"Tokens distributed", amount(st.TotalTokensDistributed)},
		{"Protocol revenue", amount(st.TotalProtocolRevenue)},
		{"Buybacks", amount(st.TotalBuybacks)},
		{"Burns", amount(st.TotalBurns)},
		{"Net revenue", amount(st.TotalNetRevenue)},
	})

	fmt.Fprintln(w, "\nLeaderboard")
	printPlayers(w, r.Leaderboard)

	fmt.Fprintln(w, "\nFactions")
	printGroups(w, r.Factions)
	fmt.Fprintln(w, "\nStrategies")
	printGroups(w, r.Strategies)

	if len(r.Recent) > 0 {
		fmt.Fprintln(w, "\nRecent matches")
		printMatches(w, r.Recent)
	}
}

func printGroups(w io.Writer, groups []engine.GroupSummary) {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			g.Label,
			strconv.Itoa(g.Players),
			strconv.FormatFloat(g.AvgReputation, 'f', 1, 64),
			strconv.FormatFloat(g.AvgScore, 'f', 1, 64),
			amount(g.TotalPrincipal),
			amount(g.TotalYield),
			percent(g.TrustRate),
		})
	}
	renderTable(w, []string{"Group", "Players", "Avg rep", "Avg score", "Principal", "Yield", "Trust"}, rows)
}

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the strategy catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := agents.Strategies()
			if jsonOutput(cmd) {
				return writeJSON(cmd, infos)
			}
			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				rows = append(rows, []string{info.Key, info.Name, info.Description})
			}
			renderTable(cmd.OutOrStdout(), []string{"Key", "Name", "Description"}, rows)
			return nil
		},
	}
}
