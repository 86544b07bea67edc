// Direct interventions: single matches, full rounds, token grants and yield
// accrual, each applied on top of the current state.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/economy"
	"github.com/talgya/trustfall/internal/entropy"
)

// SimulateMatch plays one match between a and b, or a and the Arbiter when b
// is empty. forced, when set, replaces both strategies. The calendar moves by
// one match duration.
func (s *Simulation) SimulateMatch(a, b agents.PlayerID, forced *ForcedActions, src entropy.Source) (Match, error) {
	pa, err := s.player(a)
	if err != nil {
		return Match{}, err
	}
	var pb *agents.Player
	if b != "" {
		if b == a {
			return Match{}, newError(CodeInvalidPlayer, "a player cannot play against itself")
		}
		if pb, err = s.player(b); err != nil {
			return Match{}, err
		}
	}
	if forced != nil {
		for _, act := range []agents.Action{forced.A, forced.B} {
			if act != agents.Trust && act != agents.Betray {
				return Match{}, fmt.Errorf("simulate match: unknown forced action %d", uint8(act))
			}
		}
	}
	if err := s.Config.Validate(); err != nil {
		return Match{}, err
	}

	res, err := PlayMatch(pa, pb, forced, s.runOptions(src))
	if err != nil {
		return Match{}, err
	}
	if err := s.ApplyResult(res); err != nil {
		return Match{}, err
	}
	s.CurrentDate = res.End
	m := res.Matches[0]
	slog.Debug("match played", "id", m.ID, "result", m.Result, "arbiter", m.VsArbiter())
	return m, nil
}

// PlayRounds plays full rounds in which every player plays exactly once. The
// calendar moves by the duration of the matches played.
func (s *Simulation) PlayRounds(rounds int, src entropy.Source) (RunSummary, error) {
	if err := s.Config.Validate(); err != nil {
		return RunSummary{}, err
	}
	from := s.CurrentDate
	res, err := RunRounds(s.Players, rounds, s.runOptions(src))
	if err != nil {
		return RunSummary{}, err
	}
	if err := s.ApplyResult(res); err != nil {
		return RunSummary{}, err
	}
	s.CurrentDate = res.End

	slog.Info("rounds complete", "rounds", rounds, "matches", len(res.Matches), "round", s.CurrentRound)
	return RunSummary{
		Mode:          ModeRounds,
		Amount:        float64(rounds),
		Matches:       len(res.Matches),
		Rounds:        res.Rounds,
		Elapsed:       res.End.Sub(from),
		From:          from,
		To:            s.CurrentDate,
		OverAllocated: res.OverAllocated,
	}, nil
}

// DistributeMonthlyTokens pays out the monthly incentive pool by weighted
// claim. It returns the new distributions, or nil when no player has a
// positive claim.
func (s *Simulation) DistributeMonthlyTokens() []economy.TokenDistribution {
	dists := economy.MonthlyDistribution(s.Players, s.Config.MonthlyIncentivePool, s.CurrentDate)
	if dists == nil {
		slog.Warn("monthly distribution skipped, no positive claims")
		return nil
	}
	economy.Credit(s.Players, dists)
	s.TokenDistributions = append(s.TokenDistributions, dists...)
	s.UpdateStatistics()
	slog.Info("monthly tokens distributed", "pool", s.Config.MonthlyIncentivePool, "recipients", len(dists))
	return dists
}

// GrantTokens splits an ad hoc grant among its recipients.
func (s *Simulation) GrantTokens(g economy.ExtraTokens) ([]economy.TokenDistribution, error) {
	if err := g.Validate(); err != nil {
		return nil, classify(err)
	}
	if g.Target == economy.GrantSpecific {
		if _, err := s.player(g.Player); err != nil {
			return nil, err
		}
	}
	dists := g.Distribute(s.Players, s.CurrentDate)
	if dists == nil {
		return nil, nil
	}
	economy.Credit(s.Players, dists)
	s.TokenDistributions = append(s.TokenDistributions, dists...)
	s.UpdateStatistics()
	slog.Info("tokens granted", "token", g.TokenType, "amount", g.Amount, "target", g.Target, "recipients", len(dists))
	return dists, nil
}

// CalculateYield is what a player's current principal earns over days.
func (s *Simulation) CalculateYield(id agents.PlayerID, days float64) (float64, error) {
	p, err := s.player(id)
	if err != nil {
		return 0, err
	}
	return economy.DepositYield(p.CurrentPrincipal, s.Config.APY, days), nil
}

// UpdateAllYields rolls every player's standing yield calculation forward to now.
func (s *Simulation) UpdateAllYields(now time.Time) []economy.YieldCalculation {
	prev := make(map[agents.PlayerID]*economy.YieldCalculation, len(s.YieldCalculations))
	for i := range s.YieldCalculations {
		prev[s.YieldCalculations[i].PlayerID] = &s.YieldCalculations[i]
	}
	next := make([]economy.YieldCalculation, 0, len(s.Players))
	for _, p := range s.Players {
		next = append(next, economy.AccrueYield(p, prev[p.ID], s.Config.APY, now))
	}
	s.YieldCalculations = next
	return next
}
