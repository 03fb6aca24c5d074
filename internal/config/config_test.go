package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  log_level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Pairs)
	assert.Equal(t, 120, cfg.Market.CandleLimit)
	assert.Equal(t, "paper", cfg.Trading.Mode)
	assert.Equal(t, 10000.0, cfg.Trading.StartingBalanceUSD)
	assert.Equal(t, 3, cfg.Risk.DefaultLeverage)
	assert.Equal(t, 15*time.Second, cfg.Market.HTTPTimeout())
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Interval())
	assert.Equal(t, 3*time.Hour, cfg.Engines.Analyst.CacheTTL())
}

func TestLoadFullFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
pairs: [SOLUSDT]
market:
  http_timeout_seconds: 5
  candle_limit: 200
risk:
  max_leverage: 5
  kelly_fraction: 0.25
trading:
  mode: paper
  starting_balance_usd: 2500
scheduler:
  interval_minutes: 15
  run_immediately: true
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"SOLUSDT"}, cfg.Pairs)
	assert.Equal(t, 5*time.Second, cfg.Market.HTTPTimeout())
	assert.Equal(t, 200, cfg.Market.CandleLimit)
	assert.Equal(t, 5, cfg.Risk.MaxLeverage)
	assert.Equal(t, 0.25, cfg.Risk.KellyFraction)
	assert.Equal(t, 2500.0, cfg.Trading.StartingBalanceUSD)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Interval())
	assert.True(t, cfg.Scheduler.RunImmediately)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PEREGRINE_TRADING_MODE", "paper")
	t.Setenv("PEREGRINE_AI_API_KEY", "sk-test")
	t.Setenv("PEREGRINE_RISK_MAX_LEVERAGE", "7")

	cfg, err := Load(writeConfig(t, "risk:\n  max_leverage: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, 7, cfg.Risk.MaxLeverage, "environment beats the file")
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad mode", "trading:\n  mode: dryrun\n"},
		{"empty pair", "pairs:\n  - BTCUSDT\n  - \"  \"\n"},
		{"analyst without key", "engines:\n  analyst:\n    enabled: true\n"},
		{"negative leverage", "risk:\n  max_leverage: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "paper", cfg.Trading.Mode)
	assert.NotEmpty(t, cfg.Pairs)
}
