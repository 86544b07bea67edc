package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/trustfall/internal/economy"
	"github.com/talgya/trustfall/internal/engine"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trustfall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, engine.DefaultConfig(), cfg.Simulation)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
db_path: /tmp/sim.db
seed: 7
start_date: "2025-03-01"
simulation:
  apy: 12.5
  matches_per_day: 48
  protocol:
    fee_model: flat_fee
    fee_rate: 0.02
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/sim.db", cfg.DBPath)
	assert.EqualValues(t, 7, cfg.Seed)
	assert.Equal(t, 12.5, cfg.Simulation.APY)
	assert.Equal(t, 48, cfg.Simulation.MatchesPerDay)
	assert.Equal(t, economy.FlatFee, cfg.Simulation.Protocol.FeeModel)
	assert.Equal(t, 0.02, cfg.Simulation.Protocol.FeeRate)

	// Fields the file leaves out keep their defaults.
	assert.Equal(t, 10, cfg.Simulation.MatchDurationMinutes)
	assert.True(t, cfg.Simulation.Protocol.Enabled)
	assert.Equal(t, economy.DefaultPayoutMatrix(), cfg.Simulation.Payout)

	start, err := cfg.Start(time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), start)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "seed: 7\nlog_level: info\n")
	t.Setenv("TRUSTFALL_SEED", "99")
	t.Setenv("TRUSTFALL_LOG_LEVEL", "debug")
	t.Setenv("TRUSTFALL_DB_PATH", "env.db")
	t.Setenv("TRUSTFALL_BATCH_SIZE", "25")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.EqualValues(t, 99, cfg.Seed)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "env.db", cfg.DBPath)
	assert.Equal(t, 25, cfg.Simulation.BatchSize)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "seed: [nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")

	t.Setenv("TRUSTFALL_SEED", "not-a-number")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.StartDate = "03/01/2025"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Simulation.Protocol.FeeRate = 2
	assert.ErrorIs(t, cfg.Validate(), engine.ErrInvalidProtocolConfiguration)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Seed = 3
	cfg.Simulation.Protocol.FeeModel = economy.IncentiveTax
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.Save(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
