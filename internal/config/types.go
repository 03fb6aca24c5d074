package config

import "time"

// Config is the full runtime configuration. Every knob is a plain
// scalar; YAML supplies the file form and PEREGRINE_* environment
// variables override individual keys.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Pairs     []string        `mapstructure:"pairs"`
	Market    MarketConfig    `mapstructure:"market"`
	Regime    RegimeConfig    `mapstructure:"regime"`
	Engines   EnginesConfig   `mapstructure:"engines"`
	AI        AIConfig        `mapstructure:"ai"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

type MarketConfig struct {
	RESTBaseURL        string  `mapstructure:"rest_base_url"`
	HTTPTimeoutSeconds int     `mapstructure:"http_timeout_seconds"`
	CandleLimit        int     `mapstructure:"candle_limit"`
	PairTimeoutSeconds int     `mapstructure:"pair_timeout_seconds"`
	OrderBookTop       int     `mapstructure:"orderbook_top"`
	DailyCandleLimit   int     `mapstructure:"daily_candle_limit"`
	DailyRatePerSec    float64 `mapstructure:"daily_rate_per_sec"`
	DailyBurst         int     `mapstructure:"daily_burst"`
}

func (m MarketConfig) HTTPTimeout() time.Duration {
	if m.HTTPTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(m.HTTPTimeoutSeconds) * time.Second
}

func (m MarketConfig) PairTimeout() time.Duration {
	if m.PairTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(m.PairTimeoutSeconds) * time.Second
}

type RegimeConfig struct {
	TrendingADX       float64 `mapstructure:"trending_adx"`
	TrendingBBWidth   float64 `mapstructure:"trending_bb_width"`
	VolatileBBWidth   float64 `mapstructure:"volatile_bb_width"`
	VolatileATRRatio  float64 `mapstructure:"volatile_atr_ratio"`
	RangingADXCeiling float64 `mapstructure:"ranging_adx_ceiling"`
}

type EnginesConfig struct {
	Trend   TrendConfig   `mapstructure:"trend"`
	Rule    RuleConfig    `mapstructure:"rule"`
	VWAP    VWAPConfig    `mapstructure:"vwap"`
	Micro   MicroConfig   `mapstructure:"micro"`
	Squeeze SqueezeConfig `mapstructure:"squeeze"`
	Analyst AnalystConfig `mapstructure:"analyst"`
}

// TrendConfig covers the seven daily-trend-gated crossover engines.
type TrendConfig struct {
	Timeframe      string  `mapstructure:"timeframe"`
	ATRMultiplier  float64 `mapstructure:"atr_multiplier"`
	RewardRisk     float64 `mapstructure:"reward_risk"`
	BaseConfidence float64 `mapstructure:"base_confidence"`
	MinDailyADX    float64 `mapstructure:"min_daily_adx"`
	StrongADX      float64 `mapstructure:"strong_adx"`
	VeryStrongADX  float64 `mapstructure:"very_strong_adx"`
	DailySMAPeriod int     `mapstructure:"daily_sma_period"`
}

type RuleConfig struct {
	BaseConfidence float64 `mapstructure:"base_confidence"`
	ATRMultiplier  float64 `mapstructure:"atr_multiplier"`
	RewardRisk     float64 `mapstructure:"reward_risk"`
}

type VWAPConfig struct {
	BaseConfidence float64 `mapstructure:"base_confidence"`
	ATRMultiplier  float64 `mapstructure:"atr_multiplier"`
	DeadZone       float64 `mapstructure:"dead_zone"`
	MaxDeviation   float64 `mapstructure:"max_deviation"`
}

type MicroConfig struct {
	BaseConfidence float64 `mapstructure:"base_confidence"`
	DeadZone       float64 `mapstructure:"dead_zone"`
	CrowdedRatio   float64 `mapstructure:"crowded_ratio"`
	StopFraction   float64 `mapstructure:"stop_fraction"`
	RewardRisk     float64 `mapstructure:"reward_risk"`
}

type SqueezeConfig struct {
	Timeframe      string  `mapstructure:"timeframe"`
	BaseConfidence float64 `mapstructure:"base_confidence"`
	ATRMultiplier  float64 `mapstructure:"atr_multiplier"`
	RewardRisk     float64 `mapstructure:"reward_risk"`
	Lookback       int     `mapstructure:"lookback"`
	Percentile     float64 `mapstructure:"percentile"`
	VolumeSpike    float64 `mapstructure:"volume_spike"`
}

type AnalystConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	CacheTTLHours int  `mapstructure:"cache_ttl_hours"`
	RecentBars    int  `mapstructure:"recent_bars"`
}

func (a AnalystConfig) CacheTTL() time.Duration {
	if a.CacheTTLHours <= 0 {
		return 3 * time.Hour
	}
	return time.Duration(a.CacheTTLHours) * time.Hour
}

type AIConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxRetries     int     `mapstructure:"max_retries"`
	Temperature    float64 `mapstructure:"temperature"`
}

func (a AIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 90 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type RiskConfig struct {
	KellyFraction    float64 `mapstructure:"kelly_fraction"`
	MaxStopFraction  float64 `mapstructure:"max_stop_fraction"`
	MaxPositions     int     `mapstructure:"max_positions"`
	MinPositionUSD   float64 `mapstructure:"min_position_usd"`
	MaxLeverage      int     `mapstructure:"max_leverage"`
	DailyDrawdownUSD float64 `mapstructure:"daily_drawdown_usd"`
	DefaultLeverage  int     `mapstructure:"default_leverage"`
}

type TradingConfig struct {
	Mode               string  `mapstructure:"mode"`
	StartingBalanceUSD float64 `mapstructure:"starting_balance_usd"`
	StorePath          string  `mapstructure:"store_path"`
}

type SchedulerConfig struct {
	IntervalMinutes int  `mapstructure:"interval_minutes"`
	RunImmediately  bool `mapstructure:"run_immediately"`
}

func (s SchedulerConfig) Interval() time.Duration {
	if s.IntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.IntervalMinutes) * time.Minute
}
