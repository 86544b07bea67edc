// Package agents provides the player data model, the strategy catalogue and the
// strategy evaluator that decides a player's action in a match.
package agents

import (
	"fmt"
	"time"

	"github.com/talgya/trustfall/internal/social"
)

// PlayerID is a unique identifier for a player.
type PlayerID string

// ArbiterID stands in for the synthetic opponent used when a player has no
// partner. It is never a key in the roster.
const ArbiterID PlayerID = "arbiter"

// Reputation bounds.
const (
	MinReputation = 0
	MaxReputation = 100
)

// Action is one side's move in a match.
type Action uint8

const (
	Trust Action = iota
	Betray
)

func (a Action) String() string {
	switch a {
	case Trust:
		return "trust"
	case Betray:
		return "betray"
	default:
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
}

// Flip returns the opposite action.
func (a Action) Flip() Action {
	if a == Trust {
		return Betray
	}
	return Trust
}

// ParseAction reads "trust" or "betray".
func ParseAction(s string) (Action, error) {
	switch s {
	case "trust":
		return Trust, nil
	case "betray":
		return Betray, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Action) UnmarshalText(b []byte) error {
	v, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Outcome is the ordered action pair of a match, read from the first side.
type Outcome uint8

const (
	TrustTrust Outcome = iota
	BetrayTrust
	TrustBetray
	BetrayBetray
)

var outcomeNames = [...]string{
	TrustTrust:   "trust-trust",
	BetrayTrust:  "betray-trust",
	TrustBetray:  "trust-betray",
	BetrayBetray: "betray-betray",
}

// Classify maps an action pair onto its outcome.
func Classify(a, b Action) Outcome {
	switch {
	case a == Trust && b == Trust:
		return TrustTrust
	case a == Betray && b == Trust:
		return BetrayTrust
	case a == Trust && b == Betray:
		return TrustBetray
	default:
		return BetrayBetray
	}
}

// Mirror returns the same outcome read from the other side.
func (o Outcome) Mirror() Outcome {
	switch o {
	case BetrayTrust:
		return TrustBetray
	case TrustBetray:
		return BetrayTrust
	default:
		return o
	}
}

// Mutual reports whether both sides chose the same action.
func (o Outcome) Mutual() bool {
	return o == TrustTrust || o == BetrayBetray
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

// ParseOutcome reads the hyphenated form, e.g. "betray-trust".
func ParseOutcome(s string) (Outcome, error) {
	for i, name := range outcomeNames {
		if name == s {
			return Outcome(i), nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(b []byte) error {
	v, err := ParseOutcome(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Interaction is one past match between a player and a specific opponent,
// recorded from the player's side.
type Interaction struct {
	Own      Action  `json:"own"`
	Opponent Action  `json:"opponent"`
	Outcome  Outcome `json:"outcome"`
}

// ReputationReason explains a reputation change.
type ReputationReason string

const (
	ReasonMatchResult      ReputationReason = "match_result"
	ReasonManualAdjustment ReputationReason = "manual_adjustment"
	ReasonInitialSetup     ReputationReason = "initial_setup"
)

// ReputationEvent is an append-only audit entry for a reputation change.
type ReputationEvent struct {
	ID            string           `json:"id"`
	PlayerID      PlayerID         `json:"player_id"`
	Timestamp     time.Time        `json:"timestamp"`
	OldReputation int              `json:"old_reputation"`
	NewReputation int              `json:"new_reputation"`
	Change        int              `json:"change"`
	Reason        ReputationReason `json:"reason"`
	MatchID       string           `json:"match_id,omitempty"`
	Details       string           `json:"details,omitempty"`
}

// Player is a participant in the trust game.
type Player struct {
	ID   PlayerID `json:"id"`
	Name string   `json:"name"`

	// Principal is the simulated deposit that yield is computed from.
	InitialPrincipal float64 `json:"initial_principal"`
	CurrentPrincipal float64 `json:"current_principal"`

	Reputation   int      `json:"reputation"` // 0–100
	Score        int      `json:"score"`
	Strategy     Strategy `json:"strategy"`
	TotalMatches int      `json:"total_matches"`

	CumulativeYield float64            `json:"cumulative_yield"`
	TokenBalances   map[string]float64 `json:"token_balances"`

	// History holds pairwise interactions keyed by opponent, oldest first.
	History           map[PlayerID][]Interaction `json:"history,omitempty"`
	ReputationHistory []ReputationEvent          `json:"reputation_history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Faction derives the player's faction from current reputation.
func (p *Player) Faction() social.Faction {
	return social.FactionForReputation(p.Reputation)
}

// SetReputation stores v clamped to [0, 100] and returns the stored value.
func (p *Player) SetReputation(v int) int {
	p.Reputation = ClampReputation(v)
	return p.Reputation
}

// ClampReputation bounds v to [0, 100].
func ClampReputation(v int) int {
	if v < MinReputation {
		return MinReputation
	}
	if v > MaxReputation {
		return MaxReputation
	}
	return v
}

// Clone returns a deep copy so that engine runs never alias caller state.
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	c := *p
	if p.TokenBalances != nil {
		c.TokenBalances = make(map[string]float64, len(p.TokenBalances))
		for k, v := range p.TokenBalances {
			c.TokenBalances[k] = v
		}
	}
	if p.History != nil {
		c.History = make(map[PlayerID][]Interaction, len(p.History))
		for k, v := range p.History {
			c.History[k] = append([]Interaction(nil), v...)
		}
	}
	if p.ReputationHistory != nil {
		c.ReputationHistory = append([]ReputationEvent(nil), p.ReputationHistory...)
	}
	return &c
}

// Snapshot is a copy without pairwise history or the reputation log, used when
// a match record embeds the players as they stood before the match.
func (p *Player) Snapshot() *Player {
	if p == nil {
		return nil
	}
	c := *p
	c.History = nil
	c.ReputationHistory = nil
	if p.TokenBalances != nil {
		c.TokenBalances = make(map[string]float64, len(p.TokenBalances))
		for k, v := range p.TokenBalances {
			c.TokenBalances[k] = v
		}
	}
	return &c
}

// CloneRoster deep copies a roster.
func CloneRoster(roster []*Player) []*Player {
	out := make([]*Player, len(roster))
	for i, p := range roster {
		out[i] = p.Clone()
	}
	return out
}
