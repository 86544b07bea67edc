// Yield accrual. Match yield and standing deposit yield share one daily rate
// derived from the configured APY.
package economy

import (
	"math"
	"time"

	"github.com/talgya/trustfall/internal/agents"
)

const minutesPerDay = 1440

// DailyRate converts an APY percentage into a per-day fraction.
func DailyRate(apy float64) float64 {
	return apy / 100 / 365
}

// PairYield is the base yield a single pairing generates: the two principals
// earning the daily rate for the duration of the match.
func PairYield(principalA, principalB, apy float64, matchMinutes float64) float64 {
	return (principalA + principalB) * DailyRate(apy) * matchMinutes / minutesPerDay
}

// VaultYield is the same accrual over the whole vault. It is reported
// alongside match statistics and never feeds match resolution.
func VaultYield(vaultTotal, apy float64, matchMinutes float64) float64 {
	return vaultTotal * DailyRate(apy) * matchMinutes / minutesPerDay
}

// DepositYield is what principal earns over days.
func DepositYield(principal, apy float64, days float64) float64 {
	return principal * DailyRate(apy) * days
}

// YieldCalculation is the standing deposit yield tracked per player.
type YieldCalculation struct {
	PlayerID          agents.PlayerID `json:"player_id"`
	DailyYield        float64         `json:"daily_yield"`
	TotalYieldAccrued float64         `json:"total_yield_accrued"`
	YieldFromMatches  float64         `json:"yield_from_matches"`
	LastCalculated    time.Time       `json:"last_calculated"`
}

// AccrueYield rolls a player's yield calculation forward to now. Whole days
// since the previous calculation are credited; a player without one is
// credited a single day.
func AccrueYield(p *agents.Player, prev *YieldCalculation, apy float64, now time.Time) YieldCalculation {
	days := 1.0
	total := 0.0
	if prev != nil {
		days = math.Floor(now.Sub(prev.LastCalculated).Hours() / 24)
		if days < 0 {
			days = 0
		}
		total = prev.TotalYieldAccrued
	}
	daily := DepositYield(p.CurrentPrincipal, apy, 1)
	return YieldCalculation{
		PlayerID:          p.ID,
		DailyYield:        daily,
		TotalYieldAccrued: total + daily*days,
		YieldFromMatches:  p.CumulativeYield,
		LastCalculated:    now,
	}
}
