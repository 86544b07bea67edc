// Strategy evaluation: maps a strategy and the pairwise history against one
// opponent onto an action. Only the probabilistic strategies draw from src.
package agents

import (
	"fmt"

	"github.com/talgya/trustfall/internal/entropy"
)

// Probabilities for the stochastic variants.
const (
	RandomTrustChance   = 0.5
	GenerousForgiveness = 0.1
	RandomTFTTrust      = 0.1
)

// Adaptive strategy window.
const (
	adaptiveWindow    = 5
	adaptiveThreshold = 3
)

// proberOpening is the number of opening moves the prober inspects.
const proberOpening = 4

// Decide returns the action a player with strategy s takes against an opponent,
// given every prior interaction with that opponent (oldest first).
func Decide(history []Interaction, s Strategy, src entropy.Source) (Action, error) {
	switch s.Kind {
	case StrategyPercentage:
		if src.Float64()*100 < s.TrustPercentage {
			return Trust, nil
		}
		return Betray, nil
	case StrategyAlwaysCooperate:
		return Trust, nil
	case StrategyAlwaysDefect:
		return Betray, nil
	case StrategyRandom:
		if entropy.Chance(src, RandomTrustChance) {
			return Trust, nil
		}
		return Betray, nil
	case StrategyTitForTat:
		return titForTat(history, Trust), nil
	case StrategySuspiciousTitForTat:
		return titForTat(history, Betray), nil
	case StrategyTitForTwoTats:
		return titForTwoTats(history), nil
	case StrategyGrimTrigger:
		if opponentEverBetrayed(history) {
			return Betray, nil
		}
		return Trust, nil
	case StrategyPavlov:
		return pavlov(history), nil
	case StrategyGenerousTitForTat:
		move := titForTat(history, Trust)
		if move == Betray && entropy.Chance(src, GenerousForgiveness) {
			return Trust, nil
		}
		return move, nil
	case StrategyFirmButFair:
		return firmButFair(history), nil
	case StrategySoftMajority:
		if 2*opponentTrusts(history) >= len(history) {
			return Trust, nil
		}
		return Betray, nil
	case StrategyHardMajority:
		if 2*opponentTrusts(history) > len(history) {
			return Trust, nil
		}
		return Betray, nil
	case StrategyProber:
		return prober(history), nil
	case StrategyRandomTitForTat:
		if entropy.Chance(src, RandomTFTTrust) {
			return Trust, nil
		}
		return titForTat(history, Trust), nil
	case StrategyContriteTitForTat:
		if n := len(history); n > 0 && history[n-1].Outcome == BetrayBetray {
			return Trust, nil
		}
		return titForTat(history, Trust), nil
	case StrategyAdaptive:
		if adaptiveTriggered(history) {
			return Betray, nil
		}
		return titForTat(history, Trust), nil
	}
	return Trust, fmt.Errorf("%w: %d", ErrUnknownStrategy, uint8(s.Kind))
}

func titForTat(history []Interaction, opening Action) Action {
	if len(history) == 0 {
		return opening
	}
	return history[len(history)-1].Opponent
}

func titForTwoTats(history []Interaction) Action {
	n := len(history)
	if n >= 2 && history[n-1].Opponent == Betray && history[n-2].Opponent == Betray {
		return Betray
	}
	return Trust
}

func opponentEverBetrayed(history []Interaction) bool {
	for _, h := range history {
		if h.Opponent == Betray {
			return true
		}
	}
	return false
}

func opponentTrusts(history []Interaction) int {
	n := 0
	for _, h := range history {
		if h.Opponent == Trust {
			n++
		}
	}
	return n
}

// pavlov keeps its last move after a mutual outcome and switches otherwise.
func pavlov(history []Interaction) Action {
	if len(history) == 0 {
		return Trust
	}
	last := history[len(history)-1]
	if last.Outcome.Mutual() {
		return last.Own
	}
	return last.Own.Flip()
}

// firmButFair retaliates exactly once, immediately after the opponent's first
// betrayal, and trusts otherwise.
func firmButFair(history []Interaction) Action {
	for i, h := range history {
		if h.Opponent == Betray {
			if i == len(history)-1 {
				return Betray
			}
			return Trust
		}
	}
	return Trust
}

// prober betrays on its first, third and fourth moves and trusts on its
// second. Afterwards it mirrors the opponent if the opponent trusted at least
// once during that opening, and betrays forever if not.
func prober(history []Interaction) Action {
	switch len(history) {
	case 0, 2, 3:
		return Betray
	case 1:
		return Trust
	}
	for _, h := range history[:proberOpening] {
		if h.Opponent == Trust {
			return history[len(history)-1].Opponent
		}
	}
	return Betray
}

// adaptiveTriggered reports whether any run of five consecutive interactions
// held three or more sucker outcomes. Once true it stays true, since history
// only grows.
func adaptiveTriggered(history []Interaction) bool {
	suckers := 0
	for i, h := range history {
		if h.Outcome == TrustBetray {
			suckers++
		}
		if i >= adaptiveWindow && history[i-adaptiveWindow].Outcome == TrustBetray {
			suckers--
		}
		if suckers >= adaptiveThreshold {
			return true
		}
	}
	return false
}
