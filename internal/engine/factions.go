// Faction and strategy reporting. Membership is always derived from current
// reputation at the time of the call.
package engine

import (
	"sort"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/social"
)

// GroupSummary aggregates the players in one faction or strategy.
type GroupSummary struct {
	Label          string  `json:"label"`
	Players        int     `json:"players"`
	AvgReputation  float64 `json:"avg_reputation"`
	AvgScore       float64 `json:"avg_score"`
	TotalPrincipal float64 `json:"total_principal"`
	TotalYield     float64 `json:"total_yield"`
	TrustRate      float64 `json:"trust_rate"`
}

type groupAcc struct {
	summary          GroupSummary
	reputation       int
	score            int
	trusts, decision int
}

func (g *groupAcc) add(p *agents.Player) {
	g.summary.Players++
	g.reputation += p.Reputation
	g.score += p.Score
	g.summary.TotalPrincipal += p.CurrentPrincipal
	g.summary.TotalYield += p.CumulativeYield
	for _, h := range p.History {
		for _, in := range h {
			g.decision++
			if in.Own == agents.Trust {
				g.trusts++
			}
		}
	}
}

func (g *groupAcc) finish() GroupSummary {
	s := g.summary
	if s.Players > 0 {
		s.AvgReputation = float64(g.reputation) / float64(s.Players)
		s.AvgScore = float64(g.score) / float64(s.Players)
	}
	if g.decision > 0 {
		s.TrustRate = float64(g.trusts) / float64(g.decision)
	}
	return s
}

// FactionBreakdown summarizes every faction, lowest band first. Empty
// factions are included.
func (s *Simulation) FactionBreakdown() []GroupSummary {
	accs := make(map[social.Faction]*groupAcc)
	for _, f := range social.Factions() {
		accs[f] = &groupAcc{summary: GroupSummary{Label: f.String()}}
	}
	for _, p := range s.Players {
		accs[p.Faction()].add(p)
	}
	out := make([]GroupSummary, 0, len(accs))
	for _, f := range social.Factions() {
		out = append(out, accs[f].finish())
	}
	return out
}

// StrategyBreakdown summarizes players grouped by strategy label, best
// average score first.
func (s *Simulation) StrategyBreakdown() []GroupSummary {
	accs := make(map[string]*groupAcc)
	var order []string
	for _, p := range s.Players {
		label := p.Strategy.Label()
		acc, ok := accs[label]
		if !ok {
			acc = &groupAcc{summary: GroupSummary{Label: label}}
			accs[label] = acc
			order = append(order, label)
		}
		acc.add(p)
	}
	out := make([]GroupSummary, 0, len(order))
	for _, label := range order {
		out = append(out, accs[label].finish())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgScore > out[j].AvgScore })
	return out
}
