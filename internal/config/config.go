package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads the YAML config at path and applies PEREGRINE_* env
// overrides (PEREGRINE_AI_API_KEY overrides ai.api_key, and so on).
// An empty path loads from environment and defaults alone.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PEREGRINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindKnownKeys(v)

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindKnownKeys registers every key with viper so AutomaticEnv can see
// overrides even when the key is absent from the file.
func bindKnownKeys(v *viper.Viper) {
	for _, key := range []string{
		"app.log_level",
		"pairs",
		"market.rest_base_url", "market.http_timeout_seconds", "market.candle_limit",
		"market.pair_timeout_seconds", "market.orderbook_top", "market.daily_candle_limit",
		"market.daily_rate_per_sec", "market.daily_burst",
		"regime.trending_adx", "regime.trending_bb_width", "regime.volatile_bb_width",
		"regime.volatile_atr_ratio", "regime.ranging_adx_ceiling",
		"engines.analyst.enabled", "engines.analyst.cache_ttl_hours", "engines.analyst.recent_bars",
		"ai.base_url", "ai.api_key", "ai.model", "ai.timeout_seconds", "ai.max_retries", "ai.temperature",
		"risk.kelly_fraction", "risk.max_stop_fraction", "risk.max_positions",
		"risk.min_position_usd", "risk.max_leverage", "risk.daily_drawdown_usd", "risk.default_leverage",
		"trading.mode", "trading.starting_balance_usd", "trading.store_path",
		"scheduler.interval_minutes", "scheduler.run_immediately",
	} {
		if err := v.BindEnv(key); err != nil {
			// BindEnv only fails on an empty key list.
			panic(err)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if len(cfg.Pairs) == 0 {
		cfg.Pairs = []string{"BTCUSDT", "ETHUSDT"}
	}
	if cfg.Market.CandleLimit <= 0 {
		cfg.Market.CandleLimit = 120
	}
	if cfg.Market.DailyCandleLimit <= 0 {
		cfg.Market.DailyCandleLimit = 60
	}
	if cfg.Market.DailyRatePerSec <= 0 {
		cfg.Market.DailyRatePerSec = 2
	}
	if cfg.Market.DailyBurst <= 0 {
		cfg.Market.DailyBurst = 4
	}
	if cfg.Trading.Mode == "" {
		cfg.Trading.Mode = "paper"
	}
	if cfg.Trading.StartingBalanceUSD <= 0 {
		cfg.Trading.StartingBalanceUSD = 10000
	}
	if cfg.Trading.StorePath == "" {
		cfg.Trading.StorePath = "data/positions.db"
	}
	if cfg.Risk.DefaultLeverage <= 0 {
		cfg.Risk.DefaultLeverage = 3
	}
}

func validate(cfg *Config) error {
	for _, pair := range cfg.Pairs {
		if strings.TrimSpace(pair) == "" {
			return fmt.Errorf("pairs contains an empty symbol")
		}
	}
	switch cfg.Trading.Mode {
	case "paper", "live":
	default:
		return fmt.Errorf("trading.mode must be paper or live, got %q", cfg.Trading.Mode)
	}
	if cfg.Engines.Analyst.Enabled && strings.TrimSpace(cfg.AI.APIKey) == "" {
		return fmt.Errorf("engines.analyst.enabled requires ai.api_key")
	}
	if cfg.Risk.MaxLeverage < 0 || cfg.Risk.MaxPositions < 0 {
		return fmt.Errorf("risk limits cannot be negative")
	}
	return nil
}
