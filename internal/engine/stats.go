package engine

import (
	"sort"

	"github.com/talgya/trustfall/internal/agents"
)

// UpdateStatistics recomputes Stats from the logs.
func (s *Simulation) UpdateStatistics() {
	var st Statistics
	st.TotalMatches = len(s.Matches)
	for i := range s.Matches {
		m := &s.Matches[i]
		switch m.Result {
		case agents.TrustTrust:
			st.TrustTrustMatches++
		case agents.BetrayBetray:
			st.BetrayBetrayMatches++
		default:
			st.MixedMatches++
		}
		if m.VsArbiter() {
			st.ArbiterMatches++
		}
		st.TotalYieldGenerated += m.TotalYieldGenerated
		st.TotalYieldBurned += m.YieldBurned
	}
	for _, d := range s.TokenDistributions {
		st.TotalTokensDistributed += d.TokenReward
	}
	for _, r := range s.Revenue {
		st.TotalProtocolRevenue += r.ProtocolFee
		st.TotalBuybacks += r.BuybackAmount
		st.TotalBurns += r.BurnAmount
		st.TotalNetRevenue += r.NetRevenue
	}
	s.Stats = st
}

// Leaderboard returns up to n players by score, highest first. Ties go to
// the higher reputation, then roster order. n <= 0 returns everyone.
func (s *Simulation) Leaderboard(n int) []*agents.Player {
	ranked := append([]*agents.Player(nil), s.Players...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Reputation > ranked[j].Reputation
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// PlayerReputationHistory returns the reputation events of one player, oldest
// first.
func (s *Simulation) PlayerReputationHistory(id agents.PlayerID) []agents.ReputationEvent {
	var out []agents.ReputationEvent
	for _, ev := range s.ReputationEvents {
		if ev.PlayerID == id {
			out = append(out, ev)
		}
	}
	return out
}

// PlayerMatches returns up to n of the latest matches id played in, newest
// first. n <= 0 returns all of them.
func (s *Simulation) PlayerMatches(id agents.PlayerID, n int) []Match {
	var out []Match
	for i := len(s.Matches) - 1; i >= 0; i-- {
		if n > 0 && len(out) == n {
			break
		}
		if s.Matches[i].Involves(id) {
			out = append(out, s.Matches[i])
		}
	}
	return out
}
