// Strategy catalogue: the closed set of decision rules a player can follow.
package agents

import (
	"errors"
	"fmt"
)

// ErrUnknownStrategy is returned for a strategy kind outside the catalogue.
var ErrUnknownStrategy = errors.New("unknown strategy")

// ErrInvalidTrustPercentage is returned when a percentage strategy is outside 0–100.
var ErrInvalidTrustPercentage = errors.New("trust percentage must be between 0 and 100")

// StrategyKind selects a decision rule.
type StrategyKind uint8

const (
	StrategyUnknown StrategyKind = iota
	StrategyPercentage
	StrategyAlwaysCooperate
	StrategyAlwaysDefect
	StrategyRandom
	StrategyTitForTat
	StrategySuspiciousTitForTat
	StrategyTitForTwoTats
	StrategyGrimTrigger
	StrategyPavlov
	StrategyGenerousTitForTat
	StrategyFirmButFair
	StrategySoftMajority
	StrategyHardMajority
	StrategyProber
	StrategyRandomTitForTat
	StrategyContriteTitForTat
	StrategyAdaptive

	numStrategyKinds
)

// StrategyInfo describes a catalogue entry for listings and help output.
type StrategyInfo struct {
	Kind        StrategyKind
	Key         string
	Name        string
	Description string
}

var catalogue = [numStrategyKinds]StrategyInfo{
	StrategyPercentage:          {StrategyPercentage, "percentage", "Percentage Trust", "Trusts with a fixed probability each match."},
	StrategyAlwaysCooperate:     {StrategyAlwaysCooperate, "always_cooperate", "Always Cooperate", "Always trusts."},
	StrategyAlwaysDefect:        {StrategyAlwaysDefect, "always_defect", "Always Defect", "Always betrays."},
	StrategyRandom:              {StrategyRandom, "random", "Random", "Trusts or betrays with equal odds."},
	StrategyTitForTat:           {StrategyTitForTat, "tit_for_tat", "Tit for Tat", "Opens with trust, then copies the opponent's last move."},
	StrategySuspiciousTitForTat: {StrategySuspiciousTitForTat, "suspicious_tit_for_tat", "Suspicious Tit for Tat", "Opens with betrayal, then copies the opponent's last move."},
	StrategyTitForTwoTats:       {StrategyTitForTwoTats, "tit_for_two_tats", "Tit for Two Tats", "Betrays only after two betrayals in a row."},
	StrategyGrimTrigger:         {StrategyGrimTrigger, "grim_trigger", "Grim Trigger", "Trusts until betrayed once, then never again."},
	StrategyPavlov:              {StrategyPavlov, "pavlov", "Pavlov", "Win-stay, lose-shift."},
	StrategyGenerousTitForTat:   {StrategyGenerousTitForTat, "generous_tit_for_tat", "Generous Tit for Tat", "Tit for Tat that forgives a betrayal 10% of the time."},
	StrategyFirmButFair:         {StrategyFirmButFair, "firm_but_fair", "Firm but Fair", "Answers the first betrayal once, then goes back to trusting."},
	StrategySoftMajority:        {StrategySoftMajority, "soft_majority", "Soft Majority", "Trusts while the opponent has trusted at least half the time."},
	StrategyHardMajority:        {StrategyHardMajority, "hard_majority", "Hard Majority", "Trusts only while the opponent has trusted more than half the time."},
	StrategyProber:              {StrategyProber, "prober", "Prober", "Probes with betrayals early, then mirrors or exploits."},
	StrategyRandomTitForTat:     {StrategyRandomTitForTat, "random_tit_for_tat", "Random Tit for Tat", "Tit for Tat with a 10% chance to trust regardless."},
	StrategyContriteTitForTat:   {StrategyContriteTitForTat, "contrite_tit_for_tat", "Contrite Tit for Tat", "Tries to repair after mutual betrayal."},
	StrategyAdaptive:            {StrategyAdaptive, "adaptive", "Adaptive", "Tit for Tat that turns permanently hostile when exploited repeatedly."},
}

// Strategies lists the catalogue in declaration order.
func Strategies() []StrategyInfo {
	out := make([]StrategyInfo, 0, numStrategyKinds-1)
	for _, info := range catalogue[1:] {
		out = append(out, info)
	}
	return out
}

// Info returns the catalogue entry for k.
func (k StrategyKind) Info() (StrategyInfo, bool) {
	if !k.Valid() {
		return StrategyInfo{}, false
	}
	return catalogue[k], true
}

// Valid reports whether k is a catalogue entry.
func (k StrategyKind) Valid() bool {
	return k > StrategyUnknown && k < numStrategyKinds
}

func (k StrategyKind) String() string {
	if info, ok := k.Info(); ok {
		return info.Key
	}
	return fmt.Sprintf("StrategyKind(%d)", uint8(k))
}

// ParseStrategyKind reads a catalogue key such as "tit_for_tat".
func ParseStrategyKind(s string) (StrategyKind, error) {
	for _, info := range catalogue[1:] {
		if info.Key == s {
			return info.Kind, nil
		}
	}
	return StrategyUnknown, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

func (k StrategyKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *StrategyKind) UnmarshalText(b []byte) error {
	v, err := ParseStrategyKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Strategy is a player's configured decision rule. TrustPercentage only
// applies to StrategyPercentage.
type Strategy struct {
	Kind            StrategyKind `json:"kind" yaml:"kind"`
	TrustPercentage float64      `json:"trust_percentage,omitempty" yaml:"trust_percentage,omitempty"`
}

// Percentage builds a percentage strategy.
func Percentage(p float64) Strategy {
	return Strategy{Kind: StrategyPercentage, TrustPercentage: p}
}

// Fixed builds a strategy without parameters.
func Fixed(k StrategyKind) Strategy {
	return Strategy{Kind: k}
}

// Validate checks the kind and, for percentage strategies, the probability.
func (s Strategy) Validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownStrategy, uint8(s.Kind))
	}
	if s.Kind == StrategyPercentage && (s.TrustPercentage < 0 || s.TrustPercentage > 100) {
		return fmt.Errorf("%w: %v", ErrInvalidTrustPercentage, s.TrustPercentage)
	}
	return nil
}

// Label is the display name, with the percentage for percentage strategies.
func (s Strategy) Label() string {
	info, ok := s.Kind.Info()
	if !ok {
		return s.Kind.String()
	}
	if s.Kind == StrategyPercentage {
		return fmt.Sprintf("%s (%g%%)", info.Name, s.TrustPercentage)
	}
	return info.Name
}
