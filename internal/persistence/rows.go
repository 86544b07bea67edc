package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/economy"
	"github.com/talgya/trustfall/internal/engine"
)

// Row types mirror the tables. Nested values travel as JSON columns and times
// as RFC 3339 text.

type playerRow struct {
	Seq               int64   `db:"seq"`
	ID                string  `db:"id"`
	Name              string  `db:"name"`
	InitialPrincipal  float64 `db:"initial_principal"`
	CurrentPrincipal  float64 `db:"current_principal"`
	Reputation        int     `db:"reputation"`
	Faction           string  `db:"faction"`
	Score             int     `db:"score"`
	StrategyJSON      string  `db:"strategy_json"`
	TotalMatches      int     `db:"total_matches"`
	CumulativeYield   float64 `db:"cumulative_yield"`
	TokenBalancesJSON string  `db:"token_balances_json"`
	HistoryJSON       string  `db:"history_json"`
	CreatedAt         string  `db:"created_at"`
}

const insertPlayer = `INSERT INTO players
	(id, name, initial_principal, current_principal, reputation, faction, score,
	 strategy_json, total_matches, cumulative_yield, token_balances_json, history_json, created_at)
	VALUES (:id, :name, :initial_principal, :current_principal, :reputation, :faction, :score,
	 :strategy_json, :total_matches, :cumulative_yield, :token_balances_json, :history_json, :created_at)`

// playerToRow writes the faction as a derived column for readers of the
// database; it is never read back.
func playerToRow(p *agents.Player) (playerRow, error) {
	strategy, err := json.Marshal(p.Strategy)
	if err != nil {
		return playerRow{}, err
	}
	balances, err := json.Marshal(p.TokenBalances)
	if err != nil {
		return playerRow{}, err
	}
	history, err := json.Marshal(p.History)
	if err != nil {
		return playerRow{}, err
	}
	return playerRow{
		ID:                string(p.ID),
		Name:              p.Name,
		InitialPrincipal:  p.InitialPrincipal,
		CurrentPrincipal:  p.CurrentPrincipal,
		Reputation:        p.Reputation,
		Faction:           p.Faction().String(),
		Score:             p.Score,
		StrategyJSON:      string(strategy),
		TotalMatches:      p.TotalMatches,
		CumulativeYield:   p.CumulativeYield,
		TokenBalancesJSON: string(balances),
		HistoryJSON:       string(history),
		CreatedAt:         formatTime(p.CreatedAt),
	}, nil
}

func rowToPlayer(r playerRow) (*agents.Player, error) {
	p := &agents.Player{
		ID:               agents.PlayerID(r.ID),
		Name:             r.Name,
		InitialPrincipal: r.InitialPrincipal,
		CurrentPrincipal: r.CurrentPrincipal,
		Reputation:       r.Reputation,
		Score:            r.Score,
		TotalMatches:     r.TotalMatches,
		CumulativeYield:  r.CumulativeYield,
	}
	if err := json.Unmarshal([]byte(r.StrategyJSON), &p.Strategy); err != nil {
		return nil, fmt.Errorf("player %s strategy: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.TokenBalancesJSON), &p.TokenBalances); err != nil {
		return nil, fmt.Errorf("player %s balances: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.HistoryJSON), &p.History); err != nil {
		return nil, fmt.Errorf("player %s history: %w", r.ID, err)
	}
	if p.TokenBalances == nil {
		p.TokenBalances = make(map[string]float64)
	}
	if p.History == nil {
		p.History = make(map[agents.PlayerID][]agents.Interaction)
	}
	var err error
	if p.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, fmt.Errorf("player %s created_at: %w", r.ID, err)
	}
	return p, nil
}

type matchRow struct {
	Seq                 int64          `db:"seq"`
	ID                  string         `db:"id"`
	Round               int            `db:"round"`
	PlayerAID           string         `db:"player_a_id"`
	PlayerBID           sql.NullString `db:"player_b_id"`
	ActionA             string         `db:"action_a"`
	ActionB             string         `db:"action_b"`
	Result              string         `db:"result"`
	ScoreChangeA        int            `db:"score_change_a"`
	ScoreChangeB        int            `db:"score_change_b"`
	ReputationChangeA   int            `db:"reputation_change_a"`
	ReputationChangeB   int            `db:"reputation_change_b"`
	YieldShareA         float64        `db:"yield_share_a"`
	YieldShareB         float64        `db:"yield_share_b"`
	YieldBurned         float64        `db:"yield_burned"`
	TotalYieldGenerated float64        `db:"total_yield_generated"`
	PlayerAJSON         string         `db:"player_a_json"`
	PlayerBJSON         sql.NullString `db:"player_b_json"`
	Timestamp           string         `db:"timestamp"`
}

const insertMatch = `INSERT INTO matches
	(id, round, player_a_id, player_b_id, action_a, action_b, result,
	 score_change_a, score_change_b, reputation_change_a, reputation_change_b,
	 yield_share_a, yield_share_b, yield_burned, total_yield_generated,
	 player_a_json, player_b_json, timestamp)
	VALUES (:id, :round, :player_a_id, :player_b_id, :action_a, :action_b, :result,
	 :score_change_a, :score_change_b, :reputation_change_a, :reputation_change_b,
	 :yield_share_a, :yield_share_b, :yield_burned, :total_yield_generated,
	 :player_a_json, :player_b_json, :timestamp)`

func matchToRow(m engine.Match) (matchRow, error) {
	a, err := json.Marshal(m.PlayerA)
	if err != nil {
		return matchRow{}, err
	}
	row := matchRow{
		ID:                  m.ID,
		Round:               m.Round,
		PlayerAID:           string(m.PlayerA.ID),
		ActionA:             m.ActionA.String(),
		ActionB:             m.ActionB.String(),
		Result:              m.Result.String(),
		ScoreChangeA:        m.ScoreChangeA,
		ScoreChangeB:        m.ScoreChangeB,
		ReputationChangeA:   m.ReputationChangeA,
		ReputationChangeB:   m.ReputationChangeB,
		YieldShareA:         m.YieldShareA,
		YieldShareB:         m.YieldShareB,
		YieldBurned:         m.YieldBurned,
		TotalYieldGenerated: m.TotalYieldGenerated,
		PlayerAJSON:         string(a),
		Timestamp:           formatTime(m.Timestamp),
	}
	if m.PlayerB != nil {
		b, err := json.Marshal(m.PlayerB)
		if err != nil {
			return matchRow{}, err
		}
		row.PlayerBID = sql.NullString{String: string(m.PlayerB.ID), Valid: true}
		row.PlayerBJSON = sql.NullString{String: string(b), Valid: true}
	}
	return row, nil
}

func rowToMatch(r matchRow) (engine.Match, error) {
	m := engine.Match{
		ID:                  r.ID,
		Round:               r.Round,
		ScoreChangeA:        r.ScoreChangeA,
		ScoreChangeB:        r.ScoreChangeB,
		ReputationChangeA:   r.ReputationChangeA,
		ReputationChangeB:   r.ReputationChangeB,
		YieldShareA:         r.YieldShareA,
		YieldShareB:         r.YieldShareB,
		YieldBurned:         r.YieldBurned,
		TotalYieldGenerated: r.TotalYieldGenerated,
	}
	var err error
	if m.ActionA, err = agents.ParseAction(r.ActionA); err != nil {
		return m, fmt.Errorf("match %s: %w", r.ID, err)
	}
	if m.ActionB, err = agents.ParseAction(r.ActionB); err != nil {
		return m, fmt.Errorf("match %s: %w", r.ID, err)
	}
	if m.Result, err = agents.ParseOutcome(r.Result); err != nil {
		return m, fmt.Errorf("match %s: %w", r.ID, err)
	}
	if m.Timestamp, err = parseTime(r.Timestamp); err != nil {
		return m, fmt.Errorf("match %s timestamp: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.PlayerAJSON), &m.PlayerA); err != nil {
		return m, fmt.Errorf("match %s player a: %w", r.ID, err)
	}
	if r.PlayerBJSON.Valid {
		if err := json.Unmarshal([]byte(r.PlayerBJSON.String), &m.PlayerB); err != nil {
			return m, fmt.Errorf("match %s player b: %w", r.ID, err)
		}
	}
	return m, nil
}

type eventRow struct {
	Seq           int64  `db:"seq"`
	ID            string `db:"id"`
	PlayerID      string `db:"player_id"`
	Timestamp     string `db:"timestamp"`
	OldReputation int    `db:"old_reputation"`
	NewReputation int    `db:"new_reputation"`
	Change        int    `db:"change"`
	Reason        string `db:"reason"`
	MatchID       string `db:"match_id"`
	Details       string `db:"details"`
}

const insertEvent = `INSERT INTO reputation_events
	(id, player_id, timestamp, old_reputation, new_reputation, change, reason, match_id, details)
	VALUES (:id, :player_id, :timestamp, :old_reputation, :new_reputation, :change, :reason, :match_id, :details)`

func eventToRow(ev agents.ReputationEvent) (eventRow, error) {
	return eventRow{
		ID:            ev.ID,
		PlayerID:      string(ev.PlayerID),
		Timestamp:     formatTime(ev.Timestamp),
		OldReputation: ev.OldReputation,
		NewReputation: ev.NewReputation,
		Change:        ev.Change,
		Reason:        string(ev.Reason),
		MatchID:       ev.MatchID,
		Details:       ev.Details,
	}, nil
}

func rowToEvent(r eventRow) (agents.ReputationEvent, error) {
	at, err := parseTime(r.Timestamp)
	if err != nil {
		return agents.ReputationEvent{}, fmt.Errorf("event %s timestamp: %w", r.ID, err)
	}
	return agents.ReputationEvent{
		ID:            r.ID,
		PlayerID:      agents.PlayerID(r.PlayerID),
		Timestamp:     at,
		OldReputation: r.OldReputation,
		NewReputation: r.NewReputation,
		Change:        r.Change,
		Reason:        agents.ReputationReason(r.Reason),
		MatchID:       r.MatchID,
		Details:       r.Details,
	}, nil
}

type revenueRow struct {
	Seq           int64   `db:"seq"`
	ID            string  `db:"id"`
	MatchID       string  `db:"match_id"`
	Timestamp     string  `db:"timestamp"`
	FeeModel      string  `db:"fee_model"`
	FeeRate       float64 `db:"fee_rate"`
	BaseYield     float64 `db:"base_yield"`
	ProtocolFee   float64 `db:"protocol_fee"`
	PlayerYield   float64 `db:"player_yield"`
	BuybackAmount float64 `db:"buyback_amount"`
	BurnAmount    float64 `db:"burn_amount"`
	NetRevenue    float64 `db:"net_revenue"`
	OverAllocated bool    `db:"over_allocated"`
}

const insertRevenue = `INSERT INTO protocol_revenue
	(id, match_id, timestamp, fee_model, fee_rate, base_yield, protocol_fee,
	 player_yield, buyback_amount, burn_amount, net_revenue, over_allocated)
	VALUES (:id, :match_id, :timestamp, :fee_model, :fee_rate, :base_yield, :protocol_fee,
	 :player_yield, :buyback_amount, :burn_amount, :net_revenue, :over_allocated)`

func revenueToRow(r economy.ProtocolRevenue) (revenueRow, error) {
	return revenueRow{
		ID:            r.ID,
		MatchID:       r.MatchID,
		Timestamp:     formatTime(r.Timestamp),
		FeeModel:      string(r.FeeModel),
		FeeRate:       r.FeeRate,
		BaseYield:     r.BaseYield,
		ProtocolFee:   r.ProtocolFee,
		PlayerYield:   r.PlayerYield,
		BuybackAmount: r.BuybackAmount,
		BurnAmount:    r.BurnAmount,
		NetRevenue:    r.NetRevenue,
		OverAllocated: r.OverAllocated,
	}, nil
}

func rowToRevenue(r revenueRow) (economy.ProtocolRevenue, error) {
	at, err := parseTime(r.Timestamp)
	if err != nil {
		return economy.ProtocolRevenue{}, fmt.Errorf("revenue %s timestamp: %w", r.ID, err)
	}
	return economy.ProtocolRevenue{
		ID:        r.ID,
		MatchID:   r.MatchID,
		Timestamp: at,
		FeeModel:  economy.FeeModel(r.FeeModel),
		FeeRate:   r.FeeRate,
		BaseYield: r.BaseYield,
		FeeSplit: economy.FeeSplit{
			ProtocolFee:   r.ProtocolFee,
			PlayerYield:   r.PlayerYield,
			BuybackAmount: r.BuybackAmount,
			BurnAmount:    r.BurnAmount,
			NetRevenue:    r.NetRevenue,
			OverAllocated: r.OverAllocated,
		},
	}, nil
}

type yieldRow struct {
	PlayerID          string  `db:"player_id"`
	DailyYield        float64 `db:"daily_yield"`
	TotalYieldAccrued float64 `db:"total_yield_accrued"`
	YieldFromMatches  float64 `db:"yield_from_matches"`
	LastCalculated    string  `db:"last_calculated"`
}

const insertYield = `INSERT INTO yield_calculations
	(player_id, daily_yield, total_yield_accrued, yield_from_matches, last_calculated)
	VALUES (:player_id, :daily_yield, :total_yield_accrued, :yield_from_matches, :last_calculated)`

func yieldToRow(y economy.YieldCalculation) (yieldRow, error) {
	return yieldRow{
		PlayerID:          string(y.PlayerID),
		DailyYield:        y.DailyYield,
		TotalYieldAccrued: y.TotalYieldAccrued,
		YieldFromMatches:  y.YieldFromMatches,
		LastCalculated:    formatTime(y.LastCalculated),
	}, nil
}

func rowToYield(r yieldRow) (economy.YieldCalculation, error) {
	at, err := parseTime(r.LastCalculated)
	if err != nil {
		return economy.YieldCalculation{}, fmt.Errorf("yield %s: %w", r.PlayerID, err)
	}
	return economy.YieldCalculation{
		PlayerID:          agents.PlayerID(r.PlayerID),
		DailyYield:        r.DailyYield,
		TotalYieldAccrued: r.TotalYieldAccrued,
		YieldFromMatches:  r.YieldFromMatches,
		LastCalculated:    at,
	}, nil
}

type tokenRow struct {
	Seq           int64   `db:"seq"`
	PlayerID      string  `db:"player_id"`
	WeightedClaim float64 `db:"weighted_claim"`
	TokenReward   float64 `db:"token_reward"`
	TokenType     string  `db:"token_type"`
	TokenSymbol   string  `db:"token_symbol"`
	Month         int     `db:"month"`
	Year          int     `db:"year"`
}

const insertToken = `INSERT INTO token_distributions
	(player_id, weighted_claim, token_reward, token_type, token_symbol, month, year)
	VALUES (:player_id, :weighted_claim, :token_reward, :token_type, :token_symbol, :month, :year)`

func tokenToRow(d economy.TokenDistribution) (tokenRow, error) {
	return tokenRow{
		PlayerID:      string(d.PlayerID),
		WeightedClaim: d.WeightedClaim,
		TokenReward:   d.TokenReward,
		TokenType:     d.TokenType,
		TokenSymbol:   d.TokenSymbol,
		Month:         d.Month,
		Year:          d.Year,
	}, nil
}

func rowToToken(r tokenRow) (economy.TokenDistribution, error) {
	return economy.TokenDistribution{
		PlayerID:      agents.PlayerID(r.PlayerID),
		WeightedClaim: r.WeightedClaim,
		TokenReward:   r.TokenReward,
		TokenType:     r.TokenType,
		TokenSymbol:   r.TokenSymbol,
		Month:         r.Month,
		Year:          r.Year,
	}, nil
}
