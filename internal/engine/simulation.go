// Simulation is the state container: it holds the roster, the append-only logs
// and the simulated calendar, and is the only place engine output is applied.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/economy"
	"github.com/talgya/trustfall/internal/entropy"
)

// Config is the tunable part of a simulation.
type Config struct {
	APY                  float64 `json:"apy" yaml:"apy" env:"APY"`
	MatchDurationMinutes int     `json:"match_duration_minutes" yaml:"match_duration_minutes" env:"MATCH_DURATION_MINUTES"`
	MatchesPerDay        int     `json:"matches_per_day" yaml:"matches_per_day" env:"MATCHES_PER_DAY"`
	MonthlyIncentivePool float64 `json:"monthly_incentive_pool" yaml:"monthly_incentive_pool" env:"MONTHLY_INCENTIVE_POOL"`
	BatchSize            int     `json:"batch_size" yaml:"batch_size" env:"BATCH_SIZE"`

	Payout     economy.PayoutMatrix    `json:"payout_matrix" yaml:"payout_matrix"`
	Reputation economy.ReputationTable `json:"reputation_table" yaml:"reputation_table"`
	Protocol   economy.ProtocolConfig  `json:"protocol" yaml:"protocol"`
}

// DefaultConfig returns a 10% APY, 10 minute matches (144 a day) and a 10000
// token monthly pool.
func DefaultConfig() Config {
	return Config{
		APY:                  10,
		MatchDurationMinutes: 10,
		MatchesPerDay:        144,
		MonthlyIncentivePool: 10000,
		BatchSize:            DefaultBatchSize,
		Payout:               economy.DefaultPayoutMatrix(),
		Reputation:           economy.DefaultReputationTable(),
		Protocol:             economy.DefaultProtocolConfig(),
	}
}

// Validate checks the tables and the numeric settings.
func (c Config) Validate() error {
	if err := c.Payout.Validate(); err != nil {
		return classify(err)
	}
	if err := c.Protocol.Validate(); err != nil {
		return classify(err)
	}
	if c.APY < 0 {
		return newError(CodeInvalidPayoutConfiguration, fmt.Sprintf("apy %v is negative", c.APY))
	}
	if c.MatchDurationMinutes <= 0 {
		return newError(CodeInvalidPayoutConfiguration, fmt.Sprintf("match duration %d must be positive", c.MatchDurationMinutes))
	}
	if c.MatchesPerDay < 0 {
		return newError(CodeInvalidPayoutConfiguration, fmt.Sprintf("matches per day %d is negative", c.MatchesPerDay))
	}
	return nil
}

// MatchDuration returns the match length as a duration.
func (c Config) MatchDuration() time.Duration {
	return time.Duration(c.MatchDurationMinutes) * time.Minute
}

// Statistics are aggregates over the logs, recomputed by UpdateStatistics.
type Statistics struct {
	TotalMatches           int     `json:"total_matches"`
	TrustTrustMatches      int     `json:"trust_trust_matches"`
	MixedMatches           int     `json:"mixed_matches"` // betray-trust and trust-betray
	BetrayBetrayMatches    int     `json:"betray_betray_matches"`
	ArbiterMatches         int     `json:"arbiter_matches"`
	TotalYieldGenerated    float64 `json:"total_yield_generated"`
	TotalYieldBurned       float64 `json:"total_yield_burned"`
	TotalTokensDistributed float64 `json:"total_tokens_distributed"`
	TotalProtocolRevenue   float64 `json:"total_protocol_revenue"`
	TotalBuybacks          float64 `json:"total_buybacks"`
	TotalBurns             float64 `json:"total_burns"`
	TotalNetRevenue        float64 `json:"total_net_revenue"`
}

// Simulation holds the complete state of a trust game.
type Simulation struct {
	Config Config

	Players            []*agents.Player
	Matches            []Match
	ReputationEvents   []agents.ReputationEvent
	Revenue            []economy.ProtocolRevenue
	YieldCalculations  []economy.YieldCalculation
	TokenDistributions []economy.TokenDistribution

	CurrentRound int
	StartDate    time.Time
	CurrentDate  time.Time

	Stats Statistics

	index map[agents.PlayerID]*agents.Player
	ids   entropy.IDFunc
}

// NewSimulation creates an empty simulation whose calendar starts at start.
func NewSimulation(cfg Config, start time.Time) *Simulation {
	return &Simulation{
		Config:      cfg,
		StartDate:   start,
		CurrentDate: start,
		index:       make(map[agents.PlayerID]*agents.Player),
		ids:         entropy.UUIDs(),
	}
}

// SetIDs replaces the identifier source, e.g. with entropy.Sequential in tests.
func (s *Simulation) SetIDs(ids entropy.IDFunc) {
	s.ids = ids
}

// Reindex rebuilds the player lookup after Players was assigned directly, as
// persistence does when loading.
func (s *Simulation) Reindex() {
	s.index = make(map[agents.PlayerID]*agents.Player, len(s.Players))
	for _, p := range s.Players {
		s.index[p.ID] = p
	}
	if s.ids == nil {
		s.ids = entropy.UUIDs()
	}
}

// Player looks a player up by id.
func (s *Simulation) Player(id agents.PlayerID) (*agents.Player, bool) {
	p, ok := s.index[id]
	return p, ok
}

func (s *Simulation) player(id agents.PlayerID) (*agents.Player, error) {
	p, ok := s.index[id]
	if !ok {
		return nil, newError(CodePlayerNotFound, fmt.Sprintf("player %q not found", id))
	}
	return p, nil
}

// PlayerByName finds a player by name, ignoring case and surrounding space.
func (s *Simulation) PlayerByName(name string) (*agents.Player, bool) {
	name = strings.TrimSpace(name)
	for _, p := range s.Players {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return nil, false
}

// TotalVaultValue is the sum of current principals.
func (s *Simulation) TotalVaultValue() float64 {
	total := 0.0
	for _, p := range s.Players {
		total += p.CurrentPrincipal
	}
	return total
}

// runOptions builds scheduler options from the config and the current
// calendar position.
func (s *Simulation) runOptions(src entropy.Source) RunOptions {
	return RunOptions{
		Payout:        s.Config.Payout,
		Reputation:    s.Config.Reputation,
		Protocol:      s.Config.Protocol,
		APY:           s.Config.APY,
		MatchDuration: s.Config.MatchDuration(),
		BatchSize:     s.Config.BatchSize,
		Start:         s.CurrentDate,
		StartRound:    s.CurrentRound,
		Rand:          src,
		IDs:           s.ids,
	}
}

// ApplyResult commits scheduler output: updated players replace their
// originals and the records are appended to the logs. The round counter
// advances; the calendar does not.
func (s *Simulation) ApplyResult(res Result) error {
	for _, p := range res.Roster {
		if _, ok := s.index[p.ID]; !ok {
			return newError(CodePlayerNotFound, fmt.Sprintf("result player %q is not in the roster", p.ID))
		}
	}
	for _, p := range res.Roster {
		for i, existing := range s.Players {
			if existing.ID == p.ID {
				s.Players[i] = p
				break
			}
		}
		s.index[p.ID] = p
	}

	s.Matches = append(s.Matches, res.Matches...)
	s.ReputationEvents = append(s.ReputationEvents, res.ReputationEvents...)
	s.Revenue = append(s.Revenue, res.Revenue...)
	s.CurrentRound += res.Rounds

	if res.OverAllocated {
		slog.Warn("protocol fee over-allocated, net revenue is negative",
			"buyback_allocation", s.Config.Protocol.BuybackAllocation,
			"burn_rate", s.Config.Protocol.BurnRate,
		)
	}
	s.UpdateStatistics()
	return nil
}

// RunSummary reports what Execute did.
type RunSummary struct {
	Mode          Mode          `json:"mode"`
	Amount        float64       `json:"amount"`
	Matches       int           `json:"matches"`
	Rounds        int           `json:"rounds"`
	Elapsed       time.Duration `json:"elapsed"`
	From          time.Time     `json:"from"`
	To            time.Time     `json:"to"`
	OverAllocated bool          `json:"over_allocated,omitempty"`
}

// Execute runs amount units of mode to completion.
func (s *Simulation) Execute(mode Mode, amount float64, src entropy.Source) (RunSummary, error) {
	return s.ExecuteContext(context.Background(), mode, amount, src, nil)
}

// ExecuteContext runs amount units of mode in batches, calling onBatch between
// batches. Nothing is committed unless the whole run completes.
func (s *Simulation) ExecuteContext(ctx context.Context, mode Mode, amount float64, src entropy.Source, onBatch func(BatchProgress)) (RunSummary, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return RunSummary{}, err
	}
	if len(s.Players) == 0 {
		return RunSummary{}, newError(CodeEmptyPopulation, "no players to simulate")
	}
	if err := s.Config.Validate(); err != nil {
		return RunSummary{}, err
	}
	count, err := MatchesForMode(mode, amount, len(s.Players), s.Config.MatchesPerDay)
	if err != nil {
		return RunSummary{}, err
	}
	elapsed, err := ElapsedForMode(mode, amount, len(s.Players), s.Config.MatchDuration())
	if err != nil {
		return RunSummary{}, err
	}
	summary := RunSummary{Mode: mode, Amount: amount, From: s.CurrentDate, To: s.CurrentDate}
	if count == 0 {
		slog.Warn("no matches to simulate", "mode", mode, "amount", amount)
		return summary, nil
	}

	run, err := NewRun(s.Players, count, s.runOptions(src))
	if err != nil {
		return RunSummary{}, err
	}
	d := Driver{OnBatch: onBatch}
	if err := d.Drive(ctx, run); err != nil {
		return RunSummary{}, fmt.Errorf("simulate %v %s: %w", amount, mode, err)
	}

	res := run.Result()
	if err := s.ApplyResult(res); err != nil {
		return RunSummary{}, err
	}
	s.CurrentDate = s.CurrentDate.Add(elapsed)

	summary.Matches = len(res.Matches)
	summary.Rounds = res.Rounds
	summary.Elapsed = elapsed
	summary.To = s.CurrentDate
	summary.OverAllocated = res.OverAllocated

	slog.Info("simulation complete",
		"mode", mode,
		"amount", amount,
		"matches", summary.Matches,
		"round", s.CurrentRound,
		"date", s.CurrentDate.Format(time.DateOnly),
		"players", len(s.Players),
	)
	return summary, nil
}
