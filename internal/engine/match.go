// Match resolution: turns two actions into score, reputation and yield deltas.
// Resolution is pure; the scheduler and the store apply its output.
package engine

import (
	"fmt"
	"time"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/economy"
)

// Match is the immutable record of one resolved pairing. PlayerA and PlayerB
// are snapshots taken before the match; PlayerB is nil when A faced the
// Arbiter.
type Match struct {
	ID      string         `json:"id"`
	Round   int            `json:"round"`
	PlayerA *agents.Player `json:"player_a"`
	PlayerB *agents.Player `json:"player_b,omitempty"`

	ActionA agents.Action  `json:"action_a"`
	ActionB agents.Action  `json:"action_b"`
	Result  agents.Outcome `json:"result"`

	ScoreChangeA      int `json:"score_change_a"`
	ScoreChangeB      int `json:"score_change_b"`
	ReputationChangeA int `json:"reputation_change_a"`
	ReputationChangeB int `json:"reputation_change_b"`

	YieldShareA         float64 `json:"yield_share_a"`
	YieldShareB         float64 `json:"yield_share_b"`
	YieldBurned         float64 `json:"yield_burned"`
	TotalYieldGenerated float64 `json:"total_yield_generated"`

	Timestamp time.Time `json:"timestamp"`
}

// VsArbiter reports whether the match was played against the Arbiter.
func (m *Match) VsArbiter() bool {
	return m.PlayerB == nil
}

// Involves reports whether id played in the match.
func (m *Match) Involves(id agents.PlayerID) bool {
	return (m.PlayerA != nil && m.PlayerA.ID == id) || (m.PlayerB != nil && m.PlayerB.ID == id)
}

// ResolveInput is everything resolution depends on. PrincipalB is zero when
// the opponent is the Arbiter.
type ResolveInput struct {
	ActionA agents.Action
	ActionB agents.Action

	Payout     economy.PayoutMatrix
	Reputation economy.ReputationTable
	Protocol   economy.ProtocolConfig

	PrincipalA   float64
	PrincipalB   float64
	APY          float64
	MatchMinutes float64
}

// MatchOutcome holds the deltas of one resolved match, before clamping.
type MatchOutcome struct {
	Result agents.Outcome

	ScoreA, ScoreB           int
	ReputationA, ReputationB int

	BaseYield      float64
	YieldA, YieldB float64
	Burned         float64
	Fee            economy.FeeSplit
}

// Resolve validates the configuration in in and resolves the match.
func Resolve(in ResolveInput) (MatchOutcome, error) {
	for _, a := range []agents.Action{in.ActionA, in.ActionB} {
		if a != agents.Trust && a != agents.Betray {
			return MatchOutcome{}, fmt.Errorf("resolve match: unknown action %d", uint8(a))
		}
	}
	if err := in.Payout.Validate(); err != nil {
		return MatchOutcome{}, classify(err)
	}
	if err := in.Protocol.Validate(); err != nil {
		return MatchOutcome{}, classify(err)
	}
	return resolve(in), nil
}

// resolve assumes a validated input.
func resolve(in ResolveInput) MatchOutcome {
	result := agents.Classify(in.ActionA, in.ActionB)
	rule := in.Payout.Rule(result)
	rep := in.Reputation.Delta(result)

	base := economy.PairYield(in.PrincipalA, in.PrincipalB, in.APY, in.MatchMinutes)
	fee := economy.ComputeFee(base, in.PrincipalA, in.PrincipalB, in.Protocol)

	return MatchOutcome{
		Result:      result,
		ScoreA:      rule.ScoreA,
		ScoreB:      rule.ScoreB,
		ReputationA: rep.A,
		ReputationB: rep.B,
		BaseYield:   base,
		YieldA:      fee.PlayerYield * rule.YieldShareA / 100,
		YieldB:      fee.PlayerYield * rule.YieldShareB / 100,
		Burned:      fee.PlayerYield * in.Payout.Burn(result) / 100,
		Fee:         fee,
	}
}
