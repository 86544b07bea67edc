package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/engine"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [amount]",
		Short: "Advance the simulation by rounds, days, weeks or months",
		Long: `Runs randomly paired matches for the given amount of simulated time.

Rounds mode plays amount x players/2 matches. Calendar modes play
amount x days x matches_per_day matches. Progress is logged between
batches; Ctrl+C abandons the run without saving any of it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modeStr, _ := cmd.Flags().GetString("mode")
			mode, err := engine.ParseMode(modeStr)
			if err != nil {
				return err
			}
			amount, _ := cmd.Flags().GetFloat64("amount")
			if len(args) == 1 {
				if amount, err = strconv.ParseFloat(args[0], 64); err != nil {
					return fmt.Errorf("amount %q: %w", args[0], err)
				}
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := a.sim.ExecuteContext(ctx, mode, amount, a.rand(), func(p engine.BatchProgress) {
				if p.Batch%10 == 0 {
					slog.Info("progress", "completed", p.Completed, "total", p.Total)
				}
			})
			if err != nil {
				return err
			}
			if err := a.save(); err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd, summary)
			}
			printSummary(cmd.OutOrStdout(), summary, a.sim)
			return nil
		},
	}

	cmd.Flags().String("mode", string(engine.ModeDays), "Simulation mode: rounds, days, weeks, months")
	cmd.Flags().Float64("amount", 1, "How many units of mode to simulate")
	return cmd
}

func newRoundsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rounds <n>",
		Short: "Play full rounds in which every player plays exactly once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("rounds %q: %w", args[0], err)
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			summary, err := a.sim.PlayRounds(n, a.rand())
			if err != nil {
				return err
			}
			if err := a.save(); err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, summary)
			}
			printSummary(cmd.OutOrStdout(), summary, a.sim)
			return nil
		},
	}
}

func printSummary(w io.Writer, s engine.RunSummary, sim *engine.Simulation) {
	fmt.Fprintf(w, "Played %s matches over %s %s (%s to %s).\n",
		count(s.Matches), strconv.FormatFloat(s.Amount, 'f', -1, 64), s.Mode,
		s.From.Format(time.DateOnly), s.To.Format(time.DateOnly))
	fmt.Fprintf(w, "Round %d, %s matches in total.\n", sim.CurrentRound, count(sim.Stats.TotalMatches))
	if s.OverAllocated {
		fmt.Fprintln(w, "Warning: buyback and burn exceed the protocol fee; net revenue is negative.")
	}
}

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <player> [opponent]",
		Short: "Play a single match, against the Arbiter when no opponent is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			pa, err := a.player(args[0])
			if err != nil {
				return err
			}
			var opponent agents.PlayerID
			if len(args) == 2 {
				pb, err := a.player(args[1])
				if err != nil {
					return err
				}
				opponent = pb.ID
			}

			forced, err := forcedActions(cmd)
			if err != nil {
				return err
			}
			m, err := a.sim.SimulateMatch(pa.ID, opponent, forced, a.rand())
			if err != nil {
				return err
			}
			if err := a.save(); err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd, m)
			}
			printMatches(cmd.OutOrStdout(), []engine.Match{m})
			return nil
		},
	}
	cmd.Flags().String("action-a", "", "Force the first player's action (trust or betray)")
	cmd.Flags().String("action-b", "", "Force the opponent's action (trust or betray)")
	return cmd
}

// forcedActions reads --action-a/--action-b. Both or neither must be set.
func forcedActions(cmd *cobra.Command) (*engine.ForcedActions, error) {
	as, _ := cmd.Flags().GetString("action-a")
	bs, _ := cmd.Flags().GetString("action-b")
	if as == "" && bs == "" {
		return nil, nil
	}
	if as == "" || bs == "" {
		return nil, fmt.Errorf("--action-a and --action-b must be given together")
	}
	actA, err := agents.ParseAction(as)
	if err != nil {
		return nil, err
	}
	actB, err := agents.ParseAction(bs)
	if err != nil {
		return nil, err
	}
	return &engine.ForcedActions{A: actA, B: actB}, nil
}

func printMatches(w io.Writer, matches []engine.Match) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches played yet.")
		return
	}
	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		b := "Arbiter"
		if m.PlayerB != nil {
			b = m.PlayerB.Name
		}
		rows = append(rows, []string{
			strconv.Itoa(m.Round),
			m.Timestamp.Format("2006-01-02 15:04"),
			m.PlayerA.Name,
			b,
			m.Result.String(),
			signed(m.ScoreChangeA) + " / " + signed(m.ScoreChangeB),
			signed(m.ReputationChangeA) + " / " + signed(m.ReputationChangeB),
			amount(m.TotalYieldGenerated),
		})
	}
	renderTable(w, []string{"Round", "Time", "Player A", "Player B", "Result", "Score", "Rep", "Yield"}, rows)
}
