package economy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/social"
)

const eps = 1e-9

func TestComputeFeeYieldSpread(t *testing.T) {
	cfg := ProtocolConfig{Enabled: true, FeeModel: YieldSpread, FeeRate: 0.05, BuybackAllocation: 0.2, BurnRate: 0.1}
	got := ComputeFee(100, 1000, 1500, cfg)

	assert.InDelta(t, 5, got.ProtocolFee, eps)
	assert.InDelta(t, 95, got.PlayerYield, eps)
	assert.InDelta(t, 1, got.BuybackAmount, eps)
	assert.InDelta(t, 0.5, got.BurnAmount, eps)
	assert.InDelta(t, 3.5, got.NetRevenue, eps)
	assert.False(t, got.OverAllocated)
}

func TestComputeFeeDisabled(t *testing.T) {
	cfg := DefaultProtocolConfig()
	cfg.Enabled = false
	for _, base := range []float64{0, 0.37, 100, 12345.6} {
		got := ComputeFee(base, 10, 20, cfg)
		assert.Equal(t, FeeSplit{PlayerYield: base}, got)
	}
}

func TestComputeFeeModels(t *testing.T) {
	cfg := DefaultProtocolConfig()

	cfg.FeeModel = FlatFee
	cfg.FeeRate = 0.01
	got := ComputeFee(10, 1000, 1500, cfg)
	assert.InDelta(t, 25, got.ProtocolFee, eps)
	assert.InDelta(t, -15, got.PlayerYield, eps, "flat fee is not clamped to the base yield")

	cfg.FeeModel = IncentiveTax
	cfg.FeeRate = 0.05
	got = ComputeFee(100, 1000, 1500, cfg)
	assert.InDelta(t, 5+2.5, got.ProtocolFee, eps)
	assert.InDelta(t, 92.5, got.PlayerYield, eps)
}

func TestComputeFeeOverAllocated(t *testing.T) {
	cfg := ProtocolConfig{Enabled: true, FeeModel: YieldSpread, FeeRate: 0.1, BuybackAllocation: 0.8, BurnRate: 0.5}
	require.NoError(t, cfg.Validate())

	got := ComputeFee(100, 0, 0, cfg)
	assert.True(t, got.OverAllocated)
	assert.InDelta(t, 10, got.ProtocolFee, eps)
	assert.InDelta(t, 8, got.BuybackAmount, eps)
	assert.InDelta(t, 5, got.BurnAmount, eps)
	assert.InDelta(t, -3, got.NetRevenue, eps)
}

func TestProtocolConfigValidate(t *testing.T) {
	require.NoError(t, DefaultProtocolConfig().Validate())

	bad := DefaultProtocolConfig()
	bad.FeeModel = "tithe"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidProtocol)

	bad = DefaultProtocolConfig()
	bad.FeeRate = 1.5
	assert.ErrorIs(t, bad.Validate(), ErrInvalidProtocol)

	bad = DefaultProtocolConfig()
	bad.BurnRate = -0.1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidProtocol)
}

func TestPayoutMatrixValidate(t *testing.T) {
	require.NoError(t, DefaultPayoutMatrix().Validate())

	tests := []struct {
		name   string
		mutate func(*PayoutMatrix)
	}{
		{"negative share", func(m *PayoutMatrix) { m.TrustTrust.YieldShareA = -1 }},
		{"shares above 100", func(m *PayoutMatrix) { m.BetrayTrust.YieldShareB = 10 }},
		{"burn above 100", func(m *PayoutMatrix) { m.BurnPercentage = 120 }},
		{"burn plus shares above 100", func(m *PayoutMatrix) { m.BurnPercentage = 60 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DefaultPayoutMatrix()
			tt.mutate(&m)
			assert.ErrorIs(t, m.Validate(), ErrInvalidPayout)
		})
	}
}

func TestMatrixLookups(t *testing.T) {
	m := DefaultPayoutMatrix()
	assert.Equal(t, 3, m.Rule(agents.BetrayTrust).ScoreA)
	assert.Equal(t, -3, m.Rule(agents.BetrayTrust).ScoreB)
	assert.Equal(t, 50.0, m.Burn(agents.BetrayBetray))
	assert.Zero(t, m.Burn(agents.TrustTrust))

	r := DefaultReputationTable()
	assert.Equal(t, ReputationDelta{A: -2, B: 1}, r.Delta(agents.BetrayTrust))
	assert.Equal(t, ReputationDelta{A: 1, B: -2}, r.Delta(agents.TrustBetray))
}

func TestYieldFormulas(t *testing.T) {
	// 3650 at 10% earns 1 per day; a 144 minute match is a tenth of a day.
	assert.InDelta(t, 0.1, PairYield(1000, 2650, 10, 144), eps)
	assert.InDelta(t, 0.1, VaultYield(3650, 10, 144), eps)
	assert.InDelta(t, 3, DepositYield(3650, 10, 3), eps)
}

func TestAccrueYield(t *testing.T) {
	p := &agents.Player{ID: "p1", CurrentPrincipal: 3650, CumulativeYield: 4.2}
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := AccrueYield(p, nil, 10, t0)
	assert.InDelta(t, 1, first.DailyYield, eps)
	assert.InDelta(t, 1, first.TotalYieldAccrued, eps, "first calculation credits one day")
	assert.Equal(t, 4.2, first.YieldFromMatches)

	second := AccrueYield(p, &first, 10, t0.Add(75*time.Hour))
	assert.InDelta(t, 4, second.TotalYieldAccrued, eps, "three whole days since the last run")

	same := AccrueYield(p, &second, 10, second.LastCalculated.Add(time.Hour))
	assert.InDelta(t, second.TotalYieldAccrued, same.TotalYieldAccrued, eps)
}

func roster() []*agents.Player {
	return []*agents.Player{
		{ID: "a", CurrentPrincipal: 100, Score: 10, Reputation: 80},
		{ID: "b", CurrentPrincipal: 300, Score: 10, Reputation: 20},
		{ID: "c", CurrentPrincipal: 500, Score: -4, Reputation: 50},
		{ID: "d", CurrentPrincipal: 500, Score: 12, Reputation: 90},
	}
}

func TestMonthlyDistribution(t *testing.T) {
	now := time.Date(2026, 7, 9, 0, 0, 0, 0, time.UTC)
	dists := MonthlyDistribution(roster(), 10000, now)
	require.Len(t, dists, 4)

	// Claims: 1000, 3000, 0, 6000.
	assert.InDelta(t, 1000, dists[0].TokenReward, eps)
	assert.InDelta(t, 3000, dists[1].TokenReward, eps)
	assert.Zero(t, dists[2].TokenReward)
	assert.InDelta(t, 6000, dists[3].TokenReward, eps)
	assert.Equal(t, IncentiveToken, dists[0].TokenType)
	assert.Equal(t, 7, dists[0].Month)
	assert.Equal(t, 2026, dists[0].Year)

	idle := []*agents.Player{{ID: "x", CurrentPrincipal: 100}}
	assert.Nil(t, MonthlyDistribution(idle, 10000, now))
}

func TestExtraTokens(t *testing.T) {
	now := time.Now()
	players := roster()

	g := ExtraTokens{TokenType: "GEM", TokenSymbol: "$GEM", Amount: 90, Target: GrantTopPerformers, TopCount: 3}
	require.NoError(t, g.Validate())
	assert.Equal(t, []agents.PlayerID{"d", "a", "b"}, g.Recipients(players))

	g = ExtraTokens{TokenType: "GEM", Amount: 90, Target: GrantFaction, Faction: social.LuminaCollective}
	dists := g.Distribute(players, now)
	require.Len(t, dists, 2)
	assert.InDelta(t, 45, dists[0].TokenReward, eps)

	Credit(players, dists)
	assert.InDelta(t, 45, players[0].TokenBalances["GEM"], eps)
	assert.InDelta(t, 45, players[3].TokenBalances["GEM"], eps)
	assert.Nil(t, players[1].TokenBalances)

	g = ExtraTokens{TokenType: "GEM", Amount: 10, Target: GrantSpecific, Player: "missing"}
	assert.Nil(t, g.Distribute(players, now))

	assert.ErrorIs(t, ExtraTokens{TokenType: "GEM", Amount: 0, Target: GrantAll}.Validate(), ErrInvalidGrant)
	assert.ErrorIs(t, ExtraTokens{TokenType: "GEM", Amount: 1, Target: "friends"}.Validate(), ErrInvalidGrant)
	assert.ErrorIs(t, ExtraTokens{TokenType: "GEM", Amount: 1, Target: GrantSpecific}.Validate(), ErrInvalidGrant)
}
