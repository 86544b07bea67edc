// Package persistence provides SQLite-based simulation state storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/engine"
)

// Meta keys.
const (
	metaConfig       = "config"
	metaCurrentRound = "current_round"
	metaStartDate    = "start_date"
	metaCurrentDate  = "current_date"
)

// DB wraps a SQLite connection for simulation state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		initial_principal REAL NOT NULL,
		current_principal REAL NOT NULL,
		reputation INTEGER NOT NULL,
		faction TEXT NOT NULL,
		score INTEGER NOT NULL,
		strategy_json TEXT NOT NULL,
		total_matches INTEGER NOT NULL,
		cumulative_yield REAL NOT NULL,
		token_balances_json TEXT NOT NULL,
		history_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS matches (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		round INTEGER NOT NULL,
		player_a_id TEXT NOT NULL,
		player_b_id TEXT,
		action_a TEXT NOT NULL,
		action_b TEXT NOT NULL,
		result TEXT NOT NULL,
		score_change_a INTEGER NOT NULL,
		score_change_b INTEGER NOT NULL,
		reputation_change_a INTEGER NOT NULL,
		reputation_change_b INTEGER NOT NULL,
		yield_share_a REAL NOT NULL,
		yield_share_b REAL NOT NULL,
		yield_burned REAL NOT NULL,
		total_yield_generated REAL NOT NULL,
		player_a_json TEXT NOT NULL,
		player_b_json TEXT,
		timestamp TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reputation_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		player_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		old_reputation INTEGER NOT NULL,
		new_reputation INTEGER NOT NULL,
		change INTEGER NOT NULL,
		reason TEXT NOT NULL,
		match_id TEXT NOT NULL,
		details TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS protocol_revenue (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		match_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		fee_model TEXT NOT NULL,
		fee_rate REAL NOT NULL,
		base_yield REAL NOT NULL,
		protocol_fee REAL NOT NULL,
		player_yield REAL NOT NULL,
		buyback_amount REAL NOT NULL,
		burn_amount REAL NOT NULL,
		net_revenue REAL NOT NULL,
		over_allocated INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS yield_calculations (
		player_id TEXT PRIMARY KEY,
		daily_yield REAL NOT NULL,
		total_yield_accrued REAL NOT NULL,
		yield_from_matches REAL NOT NULL,
		last_calculated TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS token_distributions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id TEXT NOT NULL,
		weighted_claim REAL NOT NULL,
		token_reward REAL NOT NULL,
		token_type TEXT NOT NULL,
		token_symbol TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sim_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_matches_round ON matches(round);
	CREATE INDEX IF NOT EXISTS idx_events_player ON reputation_events(player_id);
	CREATE INDEX IF NOT EXISTS idx_tokens_player ON token_distributions(player_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveMeta stores a key-value pair in simulation metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO sim_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM sim_meta WHERE key = ?", key)
	return value, err
}

// HasState reports whether a simulation has been saved.
func (db *DB) HasState() (bool, error) {
	_, err := db.GetMeta(metaCurrentDate)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// SaveState performs a full replace of the stored simulation in one
// transaction.
func (db *DB) SaveState(sim *engine.Simulation) error {
	slog.Info("saving simulation state", "players", len(sim.Players), "matches", len(sim.Matches))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"players", "matches", "reputation_events", "protocol_revenue", "yield_calculations", "token_distributions"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertAll(tx, insertPlayer, sim.Players, playerToRow); err != nil {
		return fmt.Errorf("save players: %w", err)
	}
	if err := insertAll(tx, insertMatch, sim.Matches, matchToRow); err != nil {
		return fmt.Errorf("save matches: %w", err)
	}
	if err := insertAll(tx, insertEvent, sim.ReputationEvents, eventToRow); err != nil {
		return fmt.Errorf("save reputation events: %w", err)
	}
	if err := insertAll(tx, insertRevenue, sim.Revenue, revenueToRow); err != nil {
		return fmt.Errorf("save revenue: %w", err)
	}
	if err := insertAll(tx, insertYield, sim.YieldCalculations, yieldToRow); err != nil {
		return fmt.Errorf("save yields: %w", err)
	}
	if err := insertAll(tx, insertToken, sim.TokenDistributions, tokenToRow); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}

	cfg, err := json.Marshal(sim.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	meta := map[string]string{
		metaConfig:       string(cfg),
		metaCurrentRound: strconv.Itoa(sim.CurrentRound),
		metaStartDate:    formatTime(sim.StartDate),
		metaCurrentDate:  formatTime(sim.CurrentDate),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO sim_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("simulation state saved")
	return nil
}

// insertAll converts every item with conv and inserts it with the named
// statement query.
func insertAll[T, R any](tx *sqlx.Tx, query string, items []T, conv func(T) (R, error)) error {
	if len(items) == 0 {
		return nil
	}
	stmt, err := tx.PrepareNamed(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, item := range items {
		row, err := conv(item)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if _, err := stmt.Exec(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// LoadState reads the stored simulation. It returns false when nothing has
// been saved yet.
func (db *DB) LoadState() (*engine.Simulation, bool, error) {
	ok, err := db.HasState()
	if err != nil || !ok {
		return nil, false, err
	}

	meta, err := db.loadMeta()
	if err != nil {
		return nil, false, err
	}
	cfg := engine.DefaultConfig()
	if err := json.Unmarshal([]byte(meta[metaConfig]), &cfg); err != nil {
		return nil, false, fmt.Errorf("decode config: %w", err)
	}
	start, err := parseTime(meta[metaStartDate])
	if err != nil {
		return nil, false, fmt.Errorf("start date: %w", err)
	}
	sim := engine.NewSimulation(cfg, start)
	if sim.CurrentDate, err = parseTime(meta[metaCurrentDate]); err != nil {
		return nil, false, fmt.Errorf("current date: %w", err)
	}
	if sim.CurrentRound, err = strconv.Atoi(meta[metaCurrentRound]); err != nil {
		return nil, false, fmt.Errorf("current round: %w", err)
	}

	if sim.Players, err = selectAll(db, "SELECT * FROM players ORDER BY seq", rowToPlayer); err != nil {
		return nil, false, fmt.Errorf("load players: %w", err)
	}
	if sim.Matches, err = selectAll(db, "SELECT * FROM matches ORDER BY seq", rowToMatch); err != nil {
		return nil, false, fmt.Errorf("load matches: %w", err)
	}
	if sim.ReputationEvents, err = selectAll(db, "SELECT * FROM reputation_events ORDER BY seq", rowToEvent); err != nil {
		return nil, false, fmt.Errorf("load reputation events: %w", err)
	}
	if sim.Revenue, err = selectAll(db, "SELECT * FROM protocol_revenue ORDER BY seq", rowToRevenue); err != nil {
		return nil, false, fmt.Errorf("load revenue: %w", err)
	}
	if sim.YieldCalculations, err = selectAll(db, "SELECT * FROM yield_calculations ORDER BY rowid", rowToYield); err != nil {
		return nil, false, fmt.Errorf("load yields: %w", err)
	}
	if sim.TokenDistributions, err = selectAll(db, "SELECT * FROM token_distributions ORDER BY seq", rowToToken); err != nil {
		return nil, false, fmt.Errorf("load tokens: %w", err)
	}

	// Each player's reputation log is a view of the global one.
	byID := make(map[agents.PlayerID]*agents.Player, len(sim.Players))
	for _, p := range sim.Players {
		byID[p.ID] = p
	}
	for _, ev := range sim.ReputationEvents {
		if p, ok := byID[ev.PlayerID]; ok {
			p.ReputationHistory = append(p.ReputationHistory, ev)
		}
	}

	sim.Reindex()
	sim.UpdateStatistics()
	slog.Info("simulation state loaded", "players", len(sim.Players), "matches", len(sim.Matches), "round", sim.CurrentRound)
	return sim, true, nil
}

func (db *DB) loadMeta() (map[string]string, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := db.conn.Select(&rows, "SELECT key, value FROM sim_meta"); err != nil {
		return nil, err
	}
	meta := make(map[string]string, len(rows))
	for _, r := range rows {
		meta[r.Key] = r.Value
	}
	return meta, nil
}

func selectAll[R, T any](db *DB, query string, conv func(R) (T, error), args ...any) ([]T, error) {
	var rows []R
	if err := db.conn.Select(&rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		v, err := conv(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// RecentMatches returns the most recent N stored matches, newest first.
func (db *DB) RecentMatches(limit int) ([]engine.Match, error) {
	return selectAll(db, "SELECT * FROM matches ORDER BY seq DESC LIMIT ?", rowToMatch, limit)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
