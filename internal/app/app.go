// Package app wires the decision pipeline together and runs the cycle
// the scheduler drives: analyze pairs, evaluate engines, gate
// survivors, hand them to execution.
package app

import (
	"context"
	"fmt"

	"peregrine/internal/ai"
	"peregrine/internal/analysis"
	"peregrine/internal/config"
	"peregrine/internal/decision"
	"peregrine/internal/engine"
	"peregrine/internal/engine/analyst"
	"peregrine/internal/engine/trend"
	"peregrine/internal/executor"
	"peregrine/internal/logger"
	"peregrine/internal/market"
	"peregrine/internal/market/binance"
	"peregrine/internal/pkg/ratelimit"
	"peregrine/internal/regime"
	"peregrine/internal/risk"
	"peregrine/internal/scheduler"
	"peregrine/internal/store"
)

type App struct {
	cfg      *config.Config
	analyzer *analysis.Analyzer
	engines  []engine.Engine
	sizing   *engine.Sizing
	gate     *risk.Gate
	exec     *executor.Paper
	sched    *scheduler.Interval
}

func New(cfg *config.Config) (*App, error) {
	if cfg.Trading.Mode == executor.ModeLive {
		return nil, fmt.Errorf("live execution is not wired in this build; run trading.mode=paper")
	}

	source := binance.New(binance.Config{
		RESTBaseURL: cfg.Market.RESTBaseURL,
		HTTPTimeout: cfg.Market.HTTPTimeout(),
	})
	// One admission queue for everything beyond the mandatory candle
	// and context fetches: daily series for the trend engines and the
	// best-effort microstructure extras share the weight budget.
	pace := ratelimit.NewQueue(cfg.Market.DailyRatePerSec, cfg.Market.DailyBurst)
	analyzer := analysis.NewAnalyzer(source, pace, analysis.Config{
		CandleLimit:  cfg.Market.CandleLimit,
		PairTimeout:  cfg.Market.PairTimeout(),
		OrderBookTop: cfg.Market.OrderBookTop,
		Regime: regime.Thresholds{
			TrendingADX:       cfg.Regime.TrendingADX,
			TrendingBBWidth:   cfg.Regime.TrendingBBWidth,
			VolatileBBWidth:   cfg.Regime.VolatileBBWidth,
			VolatileATRRatio:  cfg.Regime.VolatileATRRatio,
			RangingADXCeiling: cfg.Regime.RangingADXCeiling,
		},
	})

	archive, err := store.New(cfg.Trading.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open position store: %w", err)
	}
	drawdown := risk.NewDrawdownWindow()
	exec, err := executor.NewPaper(cfg.Trading.StartingBalanceUSD, archive, drawdown)
	if err != nil {
		return nil, err
	}
	gate := risk.NewGate(risk.GateConfig{
		MaxLeverage:      cfg.Risk.MaxLeverage,
		MaxPositions:     cfg.Risk.MaxPositions,
		DailyDrawdownUSD: cfg.Risk.DailyDrawdownUSD,
	}, drawdown, exec)
	sizing := &engine.Sizing{
		Sizer: risk.NewSizer(risk.SizerConfig{
			Fraction:        cfg.Risk.KellyFraction,
			MaxStopFraction: cfg.Risk.MaxStopFraction,
			MaxPositions:    cfg.Risk.MaxPositions,
			MinPositionUSD:  cfg.Risk.MinPositionUSD,
		}),
		Balance: exec.VirtualBalance,
	}

	engines := buildEngines(cfg, source, pace)

	sched := scheduler.NewInterval(cfg.Scheduler.Interval())
	sched.RunImmediately = cfg.Scheduler.RunImmediately

	return &App{
		cfg:      cfg,
		analyzer: analyzer,
		engines:  engines,
		sizing:   sizing,
		gate:     gate,
		exec:     exec,
		sched:    sched,
	}, nil
}

func buildEngines(cfg *config.Config, source market.Source, pace *ratelimit.Queue) []engine.Engine {
	daily := market.NewDailyCache(source, cfg.Market.DailyCandleLimit)
	trendCfg := trend.Config{
		Timeframe:      cfg.Engines.Trend.Timeframe,
		ATRMultiplier:  cfg.Engines.Trend.ATRMultiplier,
		RewardRisk:     cfg.Engines.Trend.RewardRisk,
		BaseConfidence: cfg.Engines.Trend.BaseConfidence,
		MinDailyADX:    cfg.Engines.Trend.MinDailyADX,
		StrongADX:      cfg.Engines.Trend.StrongADX,
		VeryStrongADX:  cfg.Engines.Trend.VeryStrongADX,
		DailySMAPeriod: cfg.Engines.Trend.DailySMAPeriod,
	}

	engines := []engine.Engine{}
	for _, strat := range []trend.Strategy{
		trend.HMA{},
		trend.Ichimoku{},
		trend.MACDCross{},
		trend.Supertrend{},
		trend.TEMA{},
		trend.TRIX{},
		trend.Squeeze{},
	} {
		engines = append(engines, trend.NewTemplate(strat, daily, pace, trendCfg))
	}
	engines = append(engines,
		engine.NewRule(engine.RuleConfig{
			BaseConfidence: cfg.Engines.Rule.BaseConfidence,
			ATRMultiplier:  cfg.Engines.Rule.ATRMultiplier,
			RewardRisk:     cfg.Engines.Rule.RewardRisk,
		}),
		engine.NewVWAP(engine.VWAPConfig{
			BaseConfidence: cfg.Engines.VWAP.BaseConfidence,
			ATRMultiplier:  cfg.Engines.VWAP.ATRMultiplier,
			DeadZone:       cfg.Engines.VWAP.DeadZone,
			MaxDeviation:   cfg.Engines.VWAP.MaxDeviation,
		}),
		engine.NewMicro(engine.MicroConfig{
			BaseConfidence: cfg.Engines.Micro.BaseConfidence,
			DeadZone:       cfg.Engines.Micro.DeadZone,
			CrowdedRatio:   cfg.Engines.Micro.CrowdedRatio,
			StopFraction:   cfg.Engines.Micro.StopFraction,
			RewardRisk:     cfg.Engines.Micro.RewardRisk,
		}),
		engine.NewSqueeze(engine.SqueezeConfig{
			Timeframe:      cfg.Engines.Squeeze.Timeframe,
			BaseConfidence: cfg.Engines.Squeeze.BaseConfidence,
			ATRMultiplier:  cfg.Engines.Squeeze.ATRMultiplier,
			RewardRisk:     cfg.Engines.Squeeze.RewardRisk,
			Lookback:       cfg.Engines.Squeeze.Lookback,
			Percentile:     cfg.Engines.Squeeze.Percentile,
			VolumeSpike:    cfg.Engines.Squeeze.VolumeSpike,
		}),
	)
	if cfg.Engines.Analyst.Enabled {
		client := ai.NewClient(ai.ClientConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Timeout:     cfg.AI.Timeout(),
			MaxRetries:  cfg.AI.MaxRetries,
			Temperature: cfg.AI.Temperature,
		})
		engines = append(engines, analyst.New(client, analyst.Config{
			CacheTTL:   cfg.Engines.Analyst.CacheTTL(),
			RecentBars: cfg.Engines.Analyst.RecentBars,
		}))
	}
	return engines
}

// Gate exposes the risk gate for operator controls (kill switch).
func (a *App) Gate() *risk.Gate { return a.gate }

// Run blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	logger.Infof("app: %d engines, %d pairs, mode=%s", len(a.engines), len(a.cfg.Pairs), a.cfg.Trading.Mode)
	a.sched.Start(ctx, a.cycle)
	return nil
}

// cycle is one full pass: market data, exits, signals, gate, entries.
func (a *App) cycle(ctx context.Context) {
	pairs := a.analyzer.Run(ctx, a.cfg.Pairs)
	if len(pairs) == 0 {
		logger.Warnf("cycle: no pair analysis succeeded, nothing to do")
		return
	}

	prices := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		prices[pair.Symbol] = pair.MarkPrice
	}
	a.exec.RefreshUnrealized(prices)
	a.manageExits(ctx, prices)

	var candidates []*decision.Decision
	for _, eng := range a.engines {
		candidates = append(candidates, engine.RunBatch(ctx, eng, pairs, a.sizing)...)
	}

	opened, blocked := 0, 0
	for _, d := range candidates {
		if d.Direction == decision.Flat {
			continue
		}
		if d.Leverage <= 0 {
			d.Leverage = a.cfg.Risk.DefaultLeverage
		}
		verdict := a.gate.Check(d.Leverage, d.StopLoss, d.Regime)
		if !verdict.Allowed {
			blocked++
			logger.Infof("gate: blocked %s %s from %s: %s", d.Direction, d.Symbol, d.Engine, verdict.Reason)
			continue
		}
		if _, err := a.exec.OpenPosition(ctx, d); err != nil {
			logger.Warnf("cycle: open %s %s failed: %v", d.Direction, d.Symbol, err)
			continue
		}
		opened++
	}
	logger.Infof("cycle: pairs=%d decisions=%d opened=%d blocked=%d balance=%.2f",
		len(pairs), len(candidates), opened, blocked, a.exec.VirtualBalance())
}

// manageExits closes paper positions whose stop or target has been
// crossed by the current mark price.
func (a *App) manageExits(ctx context.Context, prices map[string]float64) {
	for _, pos := range a.exec.OpenPositions() {
		price, ok := prices[pos.Symbol]
		if !ok || price <= 0 {
			continue
		}
		hit := false
		switch pos.Direction {
		case decision.Long:
			hit = (pos.StopLoss > 0 && price <= pos.StopLoss) || (pos.TakeProfit > 0 && price >= pos.TakeProfit)
		case decision.Short:
			hit = (pos.StopLoss > 0 && price >= pos.StopLoss) || (pos.TakeProfit > 0 && price <= pos.TakeProfit)
		}
		if !hit {
			continue
		}
		if _, err := a.exec.ClosePosition(ctx, pos.ID, price); err != nil {
			logger.Warnf("cycle: close %s failed: %v", pos.ID, err)
		}
	}
}
