package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/config"
	"github.com/talgya/trustfall/internal/engine"
	"github.com/talgya/trustfall/internal/entropy"
	"github.com/talgya/trustfall/internal/logging"
	"github.com/talgya/trustfall/internal/persistence"
)

// app is the state a command works on: resolved config, the open store and
// the loaded simulation.
type app struct {
	cfg  *config.Config
	db   *persistence.DB
	sim  *engine.Simulation
	seed int64
}

// loadConfig resolves the config file, environment and global flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath, _ = cmd.Flags().GetString("db")
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	asJSON, _ := cmd.Flags().GetBool("log-json")
	logging.Install(cfg.LogLevel, cmd.ErrOrStderr(), asJSON)
	return cfg, nil
}

// openApp loads config, opens the store and restores the saved simulation,
// or starts a new one from the config. A saved simulation keeps its own
// settings except the batch size, which never changes results; use
// 'config apply' to replace them.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("database opened", "path", cfg.DBPath)

	sim, ok, err := db.LoadState()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load state: %w", err)
	}
	if !ok {
		start, err := cfg.Start(time.Now())
		if err != nil {
			db.Close()
			return nil, err
		}
		sim = engine.NewSimulation(cfg.Simulation, start)
		slog.Info("no saved state found, starting a new simulation", "start", start.Format(time.DateOnly))
	}
	sim.Config.BatchSize = cfg.Simulation.BatchSize

	seed := cfg.Seed
	if seed == 0 {
		if seed, err = entropy.NewSeed(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &app{cfg: cfg, db: db, sim: sim, seed: seed}, nil
}

func (a *app) close() error {
	return a.db.Close()
}

func (a *app) save() error {
	return a.db.SaveState(a.sim)
}

// rand returns the run's random source. Each command draws from a fresh
// source, so a fixed seed replays the same command identically.
func (a *app) rand() entropy.Source {
	slog.Debug("random source", "seed", a.seed)
	return entropy.NewSource(a.seed)
}

// player resolves ref as an id first and then as a case-insensitive name.
func (a *app) player(ref string) (*agents.Player, error) {
	if p, ok := a.sim.Player(agents.PlayerID(ref)); ok {
		return p, nil
	}
	if p, ok := a.sim.PlayerByName(ref); ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", engine.ErrPlayerNotFound, ref)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseStrategy reads a catalogue key; trust applies to "percentage".
func parseStrategy(key string, trust float64) (agents.Strategy, error) {
	kind, err := agents.ParseStrategyKind(key)
	if err != nil {
		return agents.Strategy{}, err
	}
	if kind == agents.StrategyPercentage {
		return agents.Percentage(trust), nil
	}
	return agents.Fixed(kind), nil
}
