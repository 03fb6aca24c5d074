package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"peregrine/internal/analysis"
	"peregrine/internal/decision"
	"peregrine/internal/indicator"
	"peregrine/internal/market"
)

type SqueezeConfig struct {
	Timeframe      string
	BaseConfidence float64
	ATRMultiplier  float64
	RewardRisk     float64
	BBPeriod       int
	Lookback       int
	// Percentile is the width rank (0..1) at or below which the
	// previous bar counts as squeezed.
	Percentile float64
	// VolumeSpike is the multiple of the 20-bar average volume the
	// breakout bar must print.
	VolumeSpike float64
}

func (c SqueezeConfig) withDefaults() SqueezeConfig {
	if c.Timeframe == "" {
		c.Timeframe = analysis.TFSlow
	}
	if c.BaseConfidence <= 0 {
		c.BaseConfidence = 62
	}
	if c.ATRMultiplier <= 0 {
		c.ATRMultiplier = 1.5
	}
	if c.RewardRisk <= 0 {
		c.RewardRisk = 2
	}
	if c.BBPeriod <= 0 {
		c.BBPeriod = 20
	}
	if c.Lookback <= 0 {
		c.Lookback = 50
	}
	if c.Percentile <= 0 {
		c.Percentile = 0.1
	}
	if c.VolumeSpike <= 0 {
		c.VolumeSpike = 2
	}
	return c
}

// Squeeze is the standalone volatility-compression breakout engine.
// Unlike the trend-family variant it carries no daily filter: the
// point of a squeeze break is catching the move before the higher
// timeframe confirms it. Checks run cheapest-first.
type Squeeze struct {
	cfg SqueezeConfig
}

func NewSqueeze(cfg SqueezeConfig) *Squeeze {
	return &Squeeze{cfg: cfg.withDefaults()}
}

func (s *Squeeze) Name() string { return "squeeze_breakout" }

func (s *Squeeze) MinBars() int {
	return s.cfg.BBPeriod + s.cfg.Lookback + 2
}

func (s *Squeeze) Evaluate(_ context.Context, pair *analysis.Pair) (*decision.Decision, error) {
	candles := pair.Candles[s.cfg.Timeframe]
	if len(candles) < s.MinBars() {
		return nil, nil
	}
	n := len(candles)

	// Volume gate first: no participation, no breakout, and it is the
	// cheapest check by far.
	volumes := market.Volumes(candles)
	avgVol := volumeMean(volumes[n-21 : n-1])
	if avgVol <= 0 || volumes[n-1] < s.cfg.VolumeSpike*avgVol {
		return nil, nil
	}

	closes := market.Closes(candles)
	widths := indicator.BBWidthSeries(closes)
	prev := n - 2
	window := widths[prev-s.cfg.Lookback : prev]
	rank := widthRank(window, widths[prev])
	if rank > s.cfg.Percentile {
		return nil, nil
	}

	upper, _, lower := talib.BBands(closes, s.cfg.BBPeriod, 2.0, 2.0, talib.SMA)
	last := closes[n-1]
	var dir decision.Direction
	switch {
	case last > upper[n-1]:
		dir = decision.Long
	case last < lower[n-1]:
		dir = decision.Short
	default:
		return nil, nil
	}

	b := pair.Bundle(s.cfg.Timeframe)
	if b == nil || b.ATR == nil {
		return nil, nil
	}
	entry := pair.MarkPrice
	if entry <= 0 {
		entry = last
	}
	stopDistance := *b.ATR * s.cfg.ATRMultiplier
	if stopDistance <= 0 || stopDistance >= entry {
		return nil, nil
	}
	stop, target := levels(dir, entry, stopDistance, s.cfg.RewardRisk)
	if target <= 0 {
		return nil, nil
	}

	confidence := s.cfg.BaseConfidence
	if rank <= s.cfg.Percentile/2 {
		confidence += 5
	}
	if volumes[n-1] >= 3*avgVol {
		confidence += 5
	}
	if confidence > 90 {
		confidence = 90
	}

	return &decision.Decision{
		Symbol:     pair.Symbol,
		Direction:  dir,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		Confidence: confidence,
		Reasoning: fmt.Sprintf("%s width at p%.0f of %d bars, %s break on %.1fx volume",
			s.cfg.Timeframe, rank*100, s.cfg.Lookback, dir, volumes[n-1]/avgVol),
		Regime: pair.Regime,
	}, nil
}

func volumeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// widthRank is the fraction of finite window values at or below v.
func widthRank(window []float64, v float64) float64 {
	count, valid := 0, 0
	for _, w := range window {
		if math.IsNaN(w) {
			continue
		}
		valid++
		if w <= v {
			count++
		}
	}
	if valid == 0 {
		return 1
	}
	return float64(count) / float64(valid)
}
