// Protocol fee pipeline: diverts part of each match's base yield to the
// protocol and splits the fee into buyback, burn and net revenue.
package economy

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidProtocol is wrapped by every protocol config validation failure.
var ErrInvalidProtocol = errors.New("invalid protocol configuration")

// FeeModel selects how the protocol fee is computed.
type FeeModel string

const (
	YieldSpread  FeeModel = "yield_spread"
	FlatFee      FeeModel = "flat_fee"
	IncentiveTax FeeModel = "incentive_tax"
)

// incentiveTaxPrincipalRate is the principal levy added on top of the yield
// fee under the incentive tax model.
const incentiveTaxPrincipalRate = 0.001

// ParseFeeModel reads a fee model name.
func ParseFeeModel(s string) (FeeModel, error) {
	switch m := FeeModel(s); m {
	case YieldSpread, FlatFee, IncentiveTax:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown fee model %q", ErrInvalidProtocol, s)
}

// ProtocolConfig controls the fee pipeline. Rates are fractions in [0, 1].
type ProtocolConfig struct {
	Enabled           bool     `json:"enabled" yaml:"enabled"`
	FeeModel          FeeModel `json:"fee_model" yaml:"fee_model"`
	FeeRate           float64  `json:"fee_rate" yaml:"fee_rate"`
	BuybackAllocation float64  `json:"buyback_allocation" yaml:"buyback_allocation"`
	BurnRate          float64  `json:"burn_rate" yaml:"burn_rate"`
}

// DefaultProtocolConfig returns a 5% yield spread with 20% buyback and 10% burn.
func DefaultProtocolConfig() ProtocolConfig {
	return ProtocolConfig{
		Enabled:           true,
		FeeModel:          YieldSpread,
		FeeRate:           0.05,
		BuybackAllocation: 0.2,
		BurnRate:          0.1,
	}
}

// Validate rejects an unknown model and any rate outside [0, 1]. Buyback plus
// burn above 1 is allowed and surfaces as FeeSplit.OverAllocated.
func (c ProtocolConfig) Validate() error {
	if _, err := ParseFeeModel(string(c.FeeModel)); err != nil {
		return err
	}
	for _, r := range []struct {
		name string
		v    float64
	}{
		{"fee rate", c.FeeRate},
		{"buyback allocation", c.BuybackAllocation},
		{"burn rate", c.BurnRate},
	} {
		if r.v < 0 || r.v > 1 {
			return fmt.Errorf("%w: %s %v outside [0, 1]", ErrInvalidProtocol, r.name, r.v)
		}
	}
	return nil
}

// OverAllocated reports whether buyback and burn together claim more than the
// whole fee.
func (c ProtocolConfig) OverAllocated() bool {
	return c.BuybackAllocation+c.BurnRate > 1
}

// FeeSplit is the result of routing one base yield through the protocol.
type FeeSplit struct {
	ProtocolFee   float64 `json:"protocol_fee"`
	PlayerYield   float64 `json:"player_yield"`
	BuybackAmount float64 `json:"buyback_amount"`
	BurnAmount    float64 `json:"burn_amount"`
	NetRevenue    float64 `json:"net_revenue"`

	// OverAllocated is set when buyback and burn exceed the fee, which drives
	// NetRevenue negative. It is a warning, not an error.
	OverAllocated bool `json:"over_allocated,omitempty"`
}

// ComputeFee applies cfg to baseYield. Nothing is clamped: a fee larger than
// the base yield leaves a negative player yield, and over-allocation leaves a
// negative net revenue.
func ComputeFee(baseYield, principalA, principalB float64, cfg ProtocolConfig) FeeSplit {
	if !cfg.Enabled {
		return FeeSplit{PlayerYield: baseYield}
	}

	var fee float64
	switch cfg.FeeModel {
	case FlatFee:
		fee = (principalA + principalB) * cfg.FeeRate
	case IncentiveTax:
		fee = baseYield*cfg.FeeRate + (principalA+principalB)*incentiveTaxPrincipalRate
	default:
		fee = baseYield * cfg.FeeRate
	}

	buyback := fee * cfg.BuybackAllocation
	burn := fee * cfg.BurnRate
	return FeeSplit{
		ProtocolFee:   fee,
		PlayerYield:   baseYield - fee,
		BuybackAmount: buyback,
		BurnAmount:    burn,
		NetRevenue:    fee - buyback - burn,
		OverAllocated: cfg.OverAllocated(),
	}
}

// ProtocolRevenue is the append-only record of one match's fee split.
type ProtocolRevenue struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"match_id"`
	Timestamp time.Time `json:"timestamp"`
	FeeModel  FeeModel  `json:"fee_model"`
	FeeRate   float64   `json:"fee_rate"`
	BaseYield float64   `json:"base_yield"`
	FeeSplit
}

// NewProtocolRevenue records split as the revenue of matchID.
func NewProtocolRevenue(id, matchID string, at time.Time, cfg ProtocolConfig, baseYield float64, split FeeSplit) ProtocolRevenue {
	return ProtocolRevenue{
		ID:        id,
		MatchID:   matchID,
		Timestamp: at,
		FeeModel:  cfg.FeeModel,
		FeeRate:   cfg.FeeRate,
		BaseYield: baseYield,
		FeeSplit:  split,
	}
}
