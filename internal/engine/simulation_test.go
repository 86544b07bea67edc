package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/economy"
	"github.com/talgya/trustfall/internal/entropy"
	"github.com/talgya/trustfall/internal/social"
)

func newTestSim(t *testing.T) *Simulation {
	t.Helper()
	s := NewSimulation(DefaultConfig(), epoch)
	s.SetIDs(entropy.Sequential("t"))
	return s
}

func mustAdd(t *testing.T, s *Simulation, name string, rep int, st agents.Strategy) *agents.Player {
	t.Helper()
	p, err := s.AddPlayer(agents.PlayerSpec{Name: name, Principal: 1000, Reputation: rep, Strategy: st})
	require.NoError(t, err)
	return p
}

func TestAddPlayerRecordsInitialEvent(t *testing.T) {
	s := newTestSim(t)
	p := mustAdd(t, s, "Ana", 65, agents.Fixed(agents.StrategyPavlov))

	assert.Equal(t, social.LuminaCollective, p.Faction())
	hist := s.PlayerReputationHistory(p.ID)
	require.Len(t, hist, 1)
	assert.Equal(t, agents.ReasonInitialSetup, hist[0].Reason)
	assert.Equal(t, 65, hist[0].Change)

	_, err := s.AddPlayer(agents.PlayerSpec{Name: " ana ", Principal: 10, Reputation: 1, Strategy: agents.Fixed(agents.StrategyPavlov)})
	assert.ErrorIs(t, err, ErrInvalidPlayer, "names are unique ignoring case")

	_, err = s.AddPlayer(agents.PlayerSpec{Name: "Bo", Principal: 10, Reputation: 1})
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = s.AddPlayer(agents.PlayerSpec{Name: "Cy", Principal: -1, Reputation: 1, Strategy: agents.Fixed(agents.StrategyPavlov)})
	assert.ErrorIs(t, err, ErrInvalidPlayer)
	assert.Len(t, s.Players, 1)
}

func TestAddPlayersContinuesNumbering(t *testing.T) {
	s := newTestSim(t)
	mustAdd(t, s, "Player 3", 50, agents.Fixed(agents.StrategyTitForTat))

	b := agents.DefaultBulkSpec()
	b.Count = 4
	added, err := s.AddPlayers(b, entropy.NewSource(1))
	require.NoError(t, err)
	require.Len(t, added, 4)
	assert.Equal(t, "Player 4", added[0].Name)
	assert.Equal(t, "Player 7", added[3].Name)
	assert.Len(t, s.ReputationEvents, 5)
}

func TestExecuteDays(t *testing.T) {
	s := newTestSim(t)
	for i, k := range []agents.StrategyKind{agents.StrategyTitForTat, agents.StrategyAlwaysDefect, agents.StrategyGrimTrigger, agents.StrategyPavlov} {
		mustAdd(t, s, string(rune('A'+i)), 50, agents.Fixed(k))
	}

	var progress []BatchProgress
	sum, err := s.ExecuteContext(context.Background(), ModeDays, 2, entropy.NewSource(11), func(p BatchProgress) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	assert.Equal(t, 288, sum.Matches)
	assert.Len(t, s.Matches, 288)
	assert.Len(t, s.Revenue, 288)
	assert.Len(t, progress, 3)
	assert.Equal(t, 288, progress[2].Completed)
	assert.Equal(t, epoch.Add(48*time.Hour), s.CurrentDate)
	assert.Equal(t, 144, s.CurrentRound)
	assert.Equal(t, 288, s.Stats.TotalMatches)
	assert.Equal(t, 288, s.Stats.TrustTrustMatches+s.Stats.MixedMatches+s.Stats.BetrayBetrayMatches)
	assert.Greater(t, s.Stats.TotalProtocolRevenue, 0.0)

	total := 0
	for _, p := range s.Players {
		total += p.TotalMatches
		assert.GreaterOrEqual(t, p.Reputation, agents.MinReputation)
		assert.LessOrEqual(t, p.Reputation, agents.MaxReputation)
	}
	assert.Equal(t, 2*288, total)
	for i, p := range s.Players {
		got, ok := s.Player(p.ID)
		require.True(t, ok)
		assert.Same(t, s.Players[i], got, "index points at the committed players")
	}
}

func TestExecuteErrors(t *testing.T) {
	s := newTestSim(t)
	_, err := s.Execute(ModeRounds, 1, entropy.NewSource(1))
	assert.ErrorIs(t, err, ErrEmptyPopulation)

	mustAdd(t, s, "A", 50, agents.Fixed(agents.StrategyTitForTat))
	_, err = s.Execute("fortnights", 1, entropy.NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidSimulationMode)

	sum, err := s.Execute(ModeDays, 0, entropy.NewSource(1))
	require.NoError(t, err)
	assert.Zero(t, sum.Matches)
	assert.Equal(t, epoch, s.CurrentDate)

	_, err = s.Execute(ModeDays, 1e20, entropy.NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidMatchCount)
	assert.Empty(t, s.Matches)
	assert.Zero(t, s.CurrentRound)
}

func TestExecuteCancelledCommitsNothing(t *testing.T) {
	s := newTestSim(t)
	mustAdd(t, s, "A", 50, agents.Fixed(agents.StrategyTitForTat))
	mustAdd(t, s, "B", 50, agents.Fixed(agents.StrategyRandom))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := s.ExecuteContext(ctx, ModeDays, 5, entropy.NewSource(1), func(p BatchProgress) {
		if p.Batch == 2 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.Matches)
	assert.Zero(t, s.Players[0].TotalMatches)
	assert.Equal(t, epoch, s.CurrentDate)
}

func TestSimulateMatch(t *testing.T) {
	s := newTestSim(t)
	a := mustAdd(t, s, "A", 50, agents.Fixed(agents.StrategyTitForTat))
	b := mustAdd(t, s, "B", 50, agents.Fixed(agents.StrategyTitForTat))

	m, err := s.SimulateMatch(a.ID, b.ID, &ForcedActions{A: agents.Trust, B: agents.Betray}, entropy.NewSource(1))
	require.NoError(t, err)
	assert.Equal(t, agents.TrustBetray, m.Result)

	a, _ = s.Player(a.ID)
	b, _ = s.Player(b.ID)
	assert.Equal(t, 51, a.Reputation)
	assert.Equal(t, 3, b.Score)
	assert.Equal(t, 1, s.CurrentRound)
	assert.Equal(t, epoch.Add(10*time.Minute), s.CurrentDate)

	// Tit for tat now answers the betrayal.
	m, err = s.SimulateMatch(a.ID, b.ID, nil, entropy.NewSource(1))
	require.NoError(t, err)
	assert.Equal(t, agents.Betray, m.ActionA)
	assert.Equal(t, agents.Trust, m.ActionB)

	m, err = s.SimulateMatch(a.ID, "", nil, entropy.NewSource(1))
	require.NoError(t, err)
	assert.True(t, m.VsArbiter())

	_, err = s.SimulateMatch(a.ID, "nobody", nil, entropy.NewSource(1))
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	_, err = s.SimulateMatch(a.ID, a.ID, nil, entropy.NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidPlayer)
}

func TestPlayerLookups(t *testing.T) {
	s := newTestSim(t)
	a := mustAdd(t, s, "Ada Lovelace", 50, agents.Fixed(agents.StrategyAlwaysCooperate))
	b := mustAdd(t, s, "Bo", 50, agents.Fixed(agents.StrategyAlwaysDefect))
	c := mustAdd(t, s, "Cy", 50, agents.Fixed(agents.StrategyAlwaysDefect))

	p, ok := s.PlayerByName("  ada LOVELACE ")
	require.True(t, ok)
	assert.Same(t, s.Players[0], p)
	_, ok = s.PlayerByName("Ada")
	assert.False(t, ok)

	src := entropy.NewSource(1)
	for _, pair := range [][2]agents.PlayerID{{a.ID, b.ID}, {b.ID, c.ID}, {a.ID, ""}, {c.ID, a.ID}} {
		_, err := s.SimulateMatch(pair[0], pair[1], nil, src)
		require.NoError(t, err)
	}

	got := s.PlayerMatches(a.ID, 0)
	require.Len(t, got, 3)
	assert.Equal(t, s.Matches[3].ID, got[0].ID, "newest first")
	assert.True(t, got[1].VsArbiter())
	assert.Equal(t, s.Matches[0].ID, got[2].ID)

	assert.Len(t, s.PlayerMatches(a.ID, 2), 2)
	assert.Len(t, s.PlayerMatches(b.ID, 0), 2)
	assert.Empty(t, s.PlayerMatches("nobody", 0))
}

func TestPlayRounds(t *testing.T) {
	s := newTestSim(t)
	for _, name := range []string{"A", "B", "C"} {
		mustAdd(t, s, name, 50, agents.Fixed(agents.StrategyRandom))
	}
	sum, err := s.PlayRounds(4, entropy.NewSource(2))
	require.NoError(t, err)
	assert.Equal(t, 8, sum.Matches)
	assert.Equal(t, 4, s.CurrentRound)
	for _, p := range s.Players {
		assert.Equal(t, 4, p.TotalMatches)
	}
	assert.Equal(t, 4, s.Stats.ArbiterMatches)
}

func TestRemovePlayerPurgesDerivedRecords(t *testing.T) {
	s := newTestSim(t)
	a := mustAdd(t, s, "A", 50, agents.Fixed(agents.StrategyAlwaysDefect))
	b := mustAdd(t, s, "B", 50, agents.Fixed(agents.StrategyAlwaysCooperate))

	_, err := s.Execute(ModeRounds, 3, entropy.NewSource(1))
	require.NoError(t, err)
	s.UpdateAllYields(s.CurrentDate)
	require.NotNil(t, s.DistributeMonthlyTokens())
	require.Len(t, s.YieldCalculations, 2)

	require.NoError(t, s.RemovePlayer(a.ID))
	assert.Len(t, s.Players, 1)
	_, ok := s.Player(a.ID)
	assert.False(t, ok)
	for _, y := range s.YieldCalculations {
		assert.NotEqual(t, a.ID, y.PlayerID)
	}
	for _, d := range s.TokenDistributions {
		assert.NotEqual(t, a.ID, d.PlayerID)
	}
	assert.Len(t, s.Matches, 3, "matches survive removal")
	assert.Empty(t, s.Players[0].History[a.ID])
	assert.Equal(t, b.ID, s.Players[0].ID)

	assert.ErrorIs(t, s.RemovePlayer(a.ID), ErrPlayerNotFound)
}

func TestManualAdjustments(t *testing.T) {
	s := newTestSim(t)
	p := mustAdd(t, s, "A", 95, agents.Fixed(agents.StrategyTitForTat))

	_, err := s.AdjustReputation(p.ID, 10, "bonus")
	require.NoError(t, err)
	assert.Equal(t, 100, p.Reputation)

	_, err = s.AdjustReputation(p.ID, 5, "no-op at the ceiling")
	require.NoError(t, err)
	hist := s.PlayerReputationHistory(p.ID)
	require.Len(t, hist, 2)
	assert.Equal(t, 5, hist[1].Change)
	assert.Equal(t, agents.ReasonManualAdjustment, hist[1].Reason)

	name := "Alpha"
	rep := 30
	strat := agents.Percentage(25)
	_, err = s.UpdatePlayer(p.ID, PlayerUpdate{Name: &name, Reputation: &rep, Strategy: &strat})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", p.Name)
	assert.Equal(t, social.ShadowSyndicate, p.Faction())
	assert.Len(t, s.PlayerReputationHistory(p.ID), 3)

	bad := 101
	_, err = s.UpdatePlayer(p.ID, PlayerUpdate{Reputation: &bad})
	assert.ErrorIs(t, err, ErrInvalidPlayer)
	assert.Equal(t, 30, p.Reputation)
}

func TestResetPlayerKeepsLogs(t *testing.T) {
	s := newTestSim(t)
	a := mustAdd(t, s, "A", 50, agents.Fixed(agents.StrategyAlwaysDefect))
	mustAdd(t, s, "B", 50, agents.Fixed(agents.StrategyAlwaysCooperate))
	_, err := s.Execute(ModeRounds, 5, entropy.NewSource(1))
	require.NoError(t, err)

	p, err := s.ResetPlayer(a.ID)
	require.NoError(t, err)
	assert.Zero(t, p.Score)
	assert.Zero(t, p.TotalMatches)
	assert.Zero(t, p.CumulativeYield)
	assert.Empty(t, p.History)
	assert.Len(t, s.Matches, 5)
}

func TestTokenGrants(t *testing.T) {
	s := newTestSim(t)
	a := mustAdd(t, s, "A", 80, agents.Fixed(agents.StrategyTitForTat))
	mustAdd(t, s, "B", 20, agents.Fixed(agents.StrategyTitForTat))

	assert.Nil(t, s.DistributeMonthlyTokens(), "nobody has scored yet")

	dists, err := s.GrantTokens(economy.ExtraTokens{TokenType: "GEM", TokenSymbol: "$GEM", Amount: 50, Target: economy.GrantAll})
	require.NoError(t, err)
	assert.Len(t, dists, 2)
	assert.InDelta(t, 25, a.TokenBalances["GEM"], 1e-9)
	assert.InDelta(t, 50, s.Stats.TotalTokensDistributed, 1e-9)

	_, err = s.GrantTokens(economy.ExtraTokens{TokenType: "GEM", Amount: 5, Target: economy.GrantSpecific, Player: "ghost"})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	_, err = s.GrantTokens(economy.ExtraTokens{TokenType: "GEM", Amount: -5, Target: economy.GrantAll})
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestYields(t *testing.T) {
	s := newTestSim(t)
	a := mustAdd(t, s, "A", 50, agents.Fixed(agents.StrategyTitForTat))

	y, err := s.CalculateYield(a.ID, 365)
	require.NoError(t, err)
	assert.InDelta(t, 100, y, 1e-9)

	calcs := s.UpdateAllYields(epoch)
	require.Len(t, calcs, 1)
	calcs = s.UpdateAllYields(epoch.Add(72 * time.Hour))
	assert.InDelta(t, 4*1000*0.1/365, calcs[0].TotalYieldAccrued, 1e-9)
}

func TestLeaderboardAndBreakdowns(t *testing.T) {
	s := newTestSim(t)
	a := mustAdd(t, s, "A", 90, agents.Fixed(agents.StrategyTitForTat))
	b := mustAdd(t, s, "B", 10, agents.Fixed(agents.StrategyAlwaysDefect))
	c := mustAdd(t, s, "C", 50, agents.Fixed(agents.StrategyTitForTat))
	a.Score, b.Score, c.Score = 5, 9, 5

	board := s.Leaderboard(2)
	require.Len(t, board, 2)
	assert.Equal(t, b.ID, board[0].ID)
	assert.Equal(t, a.ID, board[1].ID, "ties go to higher reputation")

	factions := s.FactionBreakdown()
	require.Len(t, factions, 3)
	for _, f := range factions {
		assert.Equal(t, 1, f.Players, f.Label)
	}

	strategies := s.StrategyBreakdown()
	require.Len(t, strategies, 2)
	assert.Equal(t, "Always Defect", strategies[0].Label)
	assert.Equal(t, 2, strategies[1].Players)
}

func TestClearAndReset(t *testing.T) {
	s := newTestSim(t)
	mustAdd(t, s, "A", 50, agents.Fixed(agents.StrategyTitForTat))
	mustAdd(t, s, "B", 50, agents.Fixed(agents.StrategyTitForTat))
	_, err := s.Execute(ModeWeeks, 1, entropy.NewSource(1))
	require.NoError(t, err)

	s.ClearPlayers()
	assert.Empty(t, s.Players)
	assert.Empty(t, s.Matches)
	assert.Zero(t, s.CurrentRound)
	assert.NotEmpty(t, s.ReputationEvents)
	assert.NotEqual(t, epoch, s.CurrentDate)

	s.Reset()
	assert.Empty(t, s.ReputationEvents)
	assert.Equal(t, epoch, s.CurrentDate)
	assert.Equal(t, Statistics{}, s.Stats)
}
