// Package economy holds the payout tables, the protocol fee pipeline, yield
// accrual and token distribution. Everything here is pure arithmetic over
// configuration values.
package economy

import (
	"errors"
	"fmt"

	"github.com/talgya/trustfall/internal/agents"
)

// ErrInvalidPayout is wrapped by every payout matrix validation failure.
var ErrInvalidPayout = errors.New("invalid payout configuration")

// OutcomeRule is the score and yield split applied for one outcome. Yield
// shares are percentages of the player yield, not fractions.
type OutcomeRule struct {
	ScoreA      int     `json:"score_a" yaml:"score_a"`
	ScoreB      int     `json:"score_b" yaml:"score_b"`
	YieldShareA float64 `json:"yield_share_a" yaml:"yield_share_a"`
	YieldShareB float64 `json:"yield_share_b" yaml:"yield_share_b"`
}

// PayoutMatrix maps each outcome onto its rule. Mutual betrayal also burns a
// percentage of the player yield.
type PayoutMatrix struct {
	TrustTrust     OutcomeRule `json:"trust_trust" yaml:"trust_trust"`
	BetrayTrust    OutcomeRule `json:"betray_trust" yaml:"betray_trust"`
	TrustBetray    OutcomeRule `json:"trust_betray" yaml:"trust_betray"`
	BetrayBetray   OutcomeRule `json:"betray_betray" yaml:"betray_betray"`
	BurnPercentage float64     `json:"burn_percentage" yaml:"burn_percentage"`
}

// DefaultPayoutMatrix returns the standard table.
func DefaultPayoutMatrix() PayoutMatrix {
	return PayoutMatrix{
		TrustTrust:     OutcomeRule{ScoreA: 2, ScoreB: 2, YieldShareA: 50, YieldShareB: 50},
		BetrayTrust:    OutcomeRule{ScoreA: 3, ScoreB: -3, YieldShareA: 100, YieldShareB: 0},
		TrustBetray:    OutcomeRule{ScoreA: -3, ScoreB: 3, YieldShareA: 0, YieldShareB: 100},
		BetrayBetray:   OutcomeRule{ScoreA: -1, ScoreB: -1, YieldShareA: 25, YieldShareB: 25},
		BurnPercentage: 50,
	}
}

// Rule returns the entry for o.
func (m PayoutMatrix) Rule(o agents.Outcome) OutcomeRule {
	switch o {
	case agents.BetrayTrust:
		return m.BetrayTrust
	case agents.TrustBetray:
		return m.TrustBetray
	case agents.BetrayBetray:
		return m.BetrayBetray
	default:
		return m.TrustTrust
	}
}

// Burn returns the burn percentage applied to o. Only mutual betrayal burns.
func (m PayoutMatrix) Burn(o agents.Outcome) float64 {
	if o == agents.BetrayBetray {
		return m.BurnPercentage
	}
	return 0
}

// Validate rejects negative shares, per-outcome share sums above 100 and a burn
// that would leave the mutual betrayal entry over-allocated.
func (m PayoutMatrix) Validate() error {
	rules := []struct {
		outcome agents.Outcome
		rule    OutcomeRule
	}{
		{agents.TrustTrust, m.TrustTrust},
		{agents.BetrayTrust, m.BetrayTrust},
		{agents.TrustBetray, m.TrustBetray},
		{agents.BetrayBetray, m.BetrayBetray},
	}
	for _, r := range rules {
		if r.rule.YieldShareA < 0 || r.rule.YieldShareB < 0 {
			return fmt.Errorf("%w: %s has a negative yield share", ErrInvalidPayout, r.outcome)
		}
		if r.rule.YieldShareA+r.rule.YieldShareB > 100 {
			return fmt.Errorf("%w: %s yield shares sum above 100", ErrInvalidPayout, r.outcome)
		}
	}
	if m.BurnPercentage < 0 || m.BurnPercentage > 100 {
		return fmt.Errorf("%w: burn percentage %v outside [0, 100]", ErrInvalidPayout, m.BurnPercentage)
	}
	if m.BetrayBetray.YieldShareA+m.BetrayBetray.YieldShareB+m.BurnPercentage > 100 {
		return fmt.Errorf("%w: betray-betray shares plus burn exceed 100", ErrInvalidPayout)
	}
	return nil
}

// ReputationDelta is the reputation change applied to each side for one outcome.
type ReputationDelta struct {
	A int `json:"a" yaml:"a"`
	B int `json:"b" yaml:"b"`
}

// ReputationTable holds fixed per-outcome reputation changes.
type ReputationTable struct {
	TrustTrust   ReputationDelta `json:"trust_trust" yaml:"trust_trust"`
	BetrayTrust  ReputationDelta `json:"betray_trust" yaml:"betray_trust"`
	TrustBetray  ReputationDelta `json:"trust_betray" yaml:"trust_betray"`
	BetrayBetray ReputationDelta `json:"betray_betray" yaml:"betray_betray"`
}

// DefaultReputationTable rewards trust and punishes the betrayer twice as hard
// as it rewards the trusting side.
func DefaultReputationTable() ReputationTable {
	return ReputationTable{
		TrustTrust:   ReputationDelta{A: 1, B: 1},
		BetrayTrust:  ReputationDelta{A: -2, B: 1},
		TrustBetray:  ReputationDelta{A: 1, B: -2},
		BetrayBetray: ReputationDelta{A: -1, B: -1},
	}
}

// Delta returns the entry for o.
func (t ReputationTable) Delta(o agents.Outcome) ReputationDelta {
	switch o {
	case agents.BetrayTrust:
		return t.BetrayTrust
	case agents.TrustBetray:
		return t.TrustBetray
	case agents.BetrayBetray:
		return t.BetrayBetray
	default:
		return t.TrustTrust
	}
}
