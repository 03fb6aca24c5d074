package engine

import (
	"context"
	"fmt"
	"math"

	"peregrine/internal/analysis"
	"peregrine/internal/decision"
)

type VWAPConfig struct {
	BaseConfidence float64
	ATRMultiplier  float64
	// DeadZone is the minimum absolute 1h deviation (relative) before
	// a reversion is worth considering.
	DeadZone float64
	// MaxDeviation caps the deviation treated as reversion; beyond it
	// the move is momentum, not stretch.
	MaxDeviation float64
}

func (c VWAPConfig) withDefaults() VWAPConfig {
	if c.BaseConfidence <= 0 {
		c.BaseConfidence = 55
	}
	if c.ATRMultiplier <= 0 {
		c.ATRMultiplier = 1.2
	}
	if c.DeadZone <= 0 {
		c.DeadZone = 0.004
	}
	if c.MaxDeviation <= 0 {
		c.MaxDeviation = 0.03
	}
	return c
}

// VWAP fades stretched deviations from the volume-weighted price. The
// target is the VWAP itself, which gives the trade a natural magnet
// instead of a fixed reward multiple.
type VWAP struct {
	cfg VWAPConfig
}

func NewVWAP(cfg VWAPConfig) *VWAP {
	return &VWAP{cfg: cfg.withDefaults()}
}

func (v *VWAP) Name() string { return "vwap_reversion" }

func (v *VWAP) Evaluate(_ context.Context, pair *analysis.Pair) (*decision.Decision, error) {
	entry := pair.MarkPrice
	if entry <= 0 {
		return nil, nil
	}
	dev1h, ok := deviation(pair, analysis.TFCanonical, entry)
	if !ok {
		return nil, nil
	}
	if math.Abs(dev1h) < v.cfg.DeadZone || math.Abs(dev1h) > v.cfg.MaxDeviation {
		return nil, nil
	}
	// A 4h deviation stacked the same way, however small, means the
	// session is trending away from value; fading that is catching a
	// knife.
	if dev4h, ok := deviation(pair, analysis.TFSlow, entry); ok && sameSign(dev1h, dev4h) {
		return nil, nil
	}

	b := pair.Bundle(analysis.TFCanonical)
	if b == nil || b.VWAP == nil || b.ATR == nil {
		return nil, nil
	}
	var dir decision.Direction
	if dev1h > 0 {
		dir = decision.Short
	} else {
		dir = decision.Long
	}

	confidence := v.cfg.BaseConfidence
	// Deeper stretch, stronger snap-back odds, up to a point.
	if math.Abs(dev1h) >= 2*v.cfg.DeadZone {
		confidence += 5
	}
	if b.RSI != nil {
		if (dir == decision.Short && *b.RSI >= 65) || (dir == decision.Long && *b.RSI <= 35) {
			confidence += 5
		}
	}
	if b.BBUpper != nil && b.BBLower != nil {
		if (dir == decision.Short && entry >= *b.BBUpper) || (dir == decision.Long && entry <= *b.BBLower) {
			confidence += 5
		}
	}
	if b.BBWidth != nil && *b.BBWidth < 0.025 {
		confidence += 3
	}
	// A 15m deviation already smaller than the 1h one means the
	// reversal is underway rather than hoped for.
	if dev15, ok := deviation(pair, analysis.TFFast, entry); ok && sameSign(dev15, dev1h) && math.Abs(dev15) < math.Abs(dev1h) {
		confidence += 4
	}
	if confidence > 90 {
		confidence = 90
	}

	stopDistance := *b.ATR * v.cfg.ATRMultiplier
	if stopDistance <= 0 || stopDistance >= entry {
		return nil, nil
	}
	target := *b.VWAP
	var stop float64
	if dir == decision.Long {
		stop = entry - stopDistance
		if target <= entry {
			return nil, nil
		}
	} else {
		stop = entry + stopDistance
		if target >= entry {
			return nil, nil
		}
	}

	return &decision.Decision{
		Symbol:     pair.Symbol,
		Direction:  dir,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("price %.2f%% from 1h VWAP, reversion toward %.4f", dev1h*100, target),
		Regime:     pair.Regime,
	}, nil
}

// deviation returns (price - vwap)/vwap for a timeframe.
func deviation(pair *analysis.Pair, tf string, price float64) (float64, bool) {
	b := pair.Bundle(tf)
	if b == nil || b.VWAP == nil || *b.VWAP <= 0 {
		return 0, false
	}
	return (price - *b.VWAP) / *b.VWAP, true
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
