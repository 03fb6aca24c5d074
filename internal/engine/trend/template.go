// Package trend implements the daily-trend-gated crossover engines.
// Seven strategies share one template: detect a fast/slow crossover on
// the working timeframe, confirm against the daily SMA and daily ADX,
// then derive ATR-based stop and target levels.
package trend

import (
	"context"
	"errors"
	"fmt"

	"github.com/markcheno/go-talib"

	"peregrine/internal/analysis"
	"peregrine/internal/decision"
	"peregrine/internal/market"
	"peregrine/internal/pkg/ratelimit"
)

// Crossover is a detected flip at the latest closed bar.
type Crossover struct {
	Dir  decision.Direction
	Note string
}

// Strategy supplies the fast/slow series computation that varies per
// engine; everything else is the template's.
type Strategy interface {
	Name() string
	MinBars() int
	Detect(candles []market.Candle) (Crossover, bool)
}

// Booster lets a strategy add confidence on top of the daily-ADX tiers.
// Only the squeeze variant implements it.
type Booster interface {
	Boost(candles []market.Candle) float64
}

type Config struct {
	Timeframe      string
	ATRMultiplier  float64
	RewardRisk     float64
	BaseConfidence float64
	MinDailyADX    float64
	StrongADX      float64
	VeryStrongADX  float64
	DailySMAPeriod int
}

func (c Config) withDefaults() Config {
	if c.Timeframe == "" {
		c.Timeframe = analysis.TFCanonical
	}
	if c.ATRMultiplier <= 0 {
		c.ATRMultiplier = 1.5
	}
	if c.RewardRisk <= 0 {
		c.RewardRisk = 2
	}
	if c.BaseConfidence <= 0 {
		c.BaseConfidence = 60
	}
	if c.MinDailyADX <= 0 {
		c.MinDailyADX = 20
	}
	if c.StrongADX <= 0 {
		c.StrongADX = 25
	}
	if c.VeryStrongADX <= 0 {
		c.VeryStrongADX = 35
	}
	if c.DailySMAPeriod <= 0 {
		c.DailySMAPeriod = 20
	}
	return c
}

const (
	dailyADXPeriod = 14
	maxConfidence  = 95
)

// Template is the shared engine body. Daily candles go through the
// hourly cache and the mandatory-call limiter slot.
type Template struct {
	strat   Strategy
	daily   *market.DailyCache
	limiter *ratelimit.Queue
	cfg     Config
}

func NewTemplate(strat Strategy, daily *market.DailyCache, limiter *ratelimit.Queue, cfg Config) *Template {
	return &Template{strat: strat, daily: daily, limiter: limiter, cfg: cfg.withDefaults()}
}

func (t *Template) Name() string { return t.strat.Name() }

func (t *Template) Evaluate(ctx context.Context, pair *analysis.Pair) (*decision.Decision, error) {
	candles := pair.Candles[t.cfg.Timeframe]
	if len(candles) < t.strat.MinBars() {
		return nil, nil
	}
	cross, ok := t.strat.Detect(candles)
	if !ok {
		return nil, nil
	}

	daily, err := t.fetchDaily(ctx, pair.Symbol)
	if err != nil {
		return nil, fmt.Errorf("daily candles: %w", err)
	}
	sma, adx, ok := dailyTrend(daily, t.cfg.DailySMAPeriod)
	if !ok {
		return nil, nil
	}
	lastClose := candles[len(candles)-1].Close
	// The crossover must agree with the daily trend; a counter-trend
	// flip on the working timeframe is noise, not a signal.
	switch cross.Dir {
	case decision.Long:
		if lastClose <= sma {
			return nil, nil
		}
	case decision.Short:
		if lastClose >= sma {
			return nil, nil
		}
	default:
		return nil, nil
	}
	if adx < t.cfg.MinDailyADX {
		return nil, nil
	}

	bundle := pair.Bundle(t.cfg.Timeframe)
	if bundle == nil || bundle.ATR == nil {
		return nil, nil
	}
	entry := pair.MarkPrice
	if entry <= 0 {
		entry = lastClose
	}
	stopDistance := *bundle.ATR * t.cfg.ATRMultiplier
	if stopDistance <= 0 || stopDistance >= entry {
		return nil, nil
	}

	var stop, target float64
	if cross.Dir == decision.Long {
		stop = entry - stopDistance
		target = entry + stopDistance*t.cfg.RewardRisk
	} else {
		stop = entry + stopDistance
		target = entry - stopDistance*t.cfg.RewardRisk
	}
	if target <= 0 {
		return nil, nil
	}

	confidence := t.cfg.BaseConfidence
	switch {
	case adx >= t.cfg.VeryStrongADX:
		confidence += 10
	case adx >= t.cfg.StrongADX:
		confidence += 5
	}
	if booster, ok := t.strat.(Booster); ok {
		confidence += booster.Boost(candles)
	}
	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	return &decision.Decision{
		Symbol:     pair.Symbol,
		Direction:  cross.Dir,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("%s; daily SMA%d confirms, daily ADX %.1f", cross.Note, t.cfg.DailySMAPeriod, adx),
		Regime:     pair.Regime,
	}, nil
}

func (t *Template) fetchDaily(ctx context.Context, symbol string) ([]market.Candle, error) {
	if t.limiter != nil {
		if err := t.limiter.Reserve(ctx); err != nil {
			return nil, err
		}
	}
	candles, err := t.daily.Get(ctx, symbol)
	if err != nil {
		// A throttle rejection pauses the shared queue so the sibling
		// engines stop hammering the same weight budget.
		if t.limiter != nil && errors.Is(err, market.ErrRateLimited) {
			t.limiter.Cooldown(ratelimit.DefaultCooldown)
		}
		return nil, err
	}
	return candles, nil
}

// dailyTrend computes the daily SMA and 14-period ADX used as the
// confirmation gate.
func dailyTrend(candles []market.Candle, smaPeriod int) (sma, adx float64, ok bool) {
	need := smaPeriod
	if n := dailyADXPeriod * 2; n > need {
		need = n
	}
	if len(candles) < need+1 {
		return 0, 0, false
	}
	closes := market.Closes(candles)
	smaSeries := talib.Sma(closes, smaPeriod)
	adxSeries := talib.Adx(market.Highs(candles), market.Lows(candles), closes, dailyADXPeriod)
	sma = smaSeries[len(smaSeries)-1]
	adx = adxSeries[len(adxSeries)-1]
	if sma <= 0 {
		return 0, 0, false
	}
	return sma, adx, true
}
