// Simulation modes: convert a requested amount of rounds or calendar time into
// a match count and an elapsed simulated duration.
package engine

import (
	"fmt"
	"math"
	"time"
)

// Mode is the unit a simulation amount is expressed in.
type Mode string

const (
	ModeRounds Mode = "rounds"
	ModeDays   Mode = "days"
	ModeWeeks  Mode = "weeks"
	ModeMonths Mode = "months"
)

// DaysPerMonth is the fixed month length used by ModeMonths.
const DaysPerMonth = 30

const day = 24 * time.Hour

// ParseMode reads a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeRounds, ModeDays, ModeWeeks, ModeMonths:
		return m, nil
	}
	return "", newError(CodeInvalidSimulationMode, fmt.Sprintf("unknown simulation mode %q", s))
}

// daysIn returns the number of calendar days one unit of a time mode spans.
func daysIn(mode Mode) float64 {
	switch mode {
	case ModeWeeks:
		return 7
	case ModeMonths:
		return DaysPerMonth
	default:
		return 1
	}
}

func checkAmount(mode Mode, amount float64) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return newError(CodeInvalidMatchCount, fmt.Sprintf("amount %v must be a non-negative number", amount))
	}
	return nil
}

// MatchesForMode converts amount into a match count. A round is worth
// floor(players/2) matches, at least one, and partial rounds round up; time
// modes play matchesPerDay matches per day and round down.
func MatchesForMode(mode Mode, amount float64, players, matchesPerDay int) (int, error) {
	if err := checkAmount(mode, amount); err != nil {
		return 0, err
	}
	if players == 0 {
		return 0, nil
	}
	var n float64
	if mode == ModeRounds {
		n = math.Ceil(amount * float64(matchesPerRound(players)))
	} else {
		n = math.Floor(amount * daysIn(mode) * float64(matchesPerDay))
	}
	if n >= math.MaxInt {
		return 0, newError(CodeInvalidMatchCount, fmt.Sprintf("%v %s is too many matches to simulate", amount, mode))
	}
	return int(n), nil
}

// ElapsedForMode is how far the simulated calendar moves for amount. Rounds
// advance by the duration of the matches they are worth; time modes advance
// by whole calendar units.
func ElapsedForMode(mode Mode, amount float64, players int, matchDuration time.Duration) (time.Duration, error) {
	if err := checkAmount(mode, amount); err != nil {
		return 0, err
	}
	var d float64
	if mode == ModeRounds {
		d = amount * float64(matchesPerRound(players)) * float64(matchDuration)
	} else {
		d = amount * daysIn(mode) * float64(day)
	}
	if d >= math.MaxInt64 {
		return 0, newError(CodeInvalidMatchCount, fmt.Sprintf("%v %s is past the end of the calendar", amount, mode))
	}
	return time.Duration(d), nil
}
