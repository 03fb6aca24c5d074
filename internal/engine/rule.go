package engine

import (
	"context"
	"fmt"

	"peregrine/internal/analysis"
	"peregrine/internal/decision"
	"peregrine/internal/regime"
)

// RuleConfig tunes the regime-branching rule engine.
type RuleConfig struct {
	Timeframe      string
	BaseConfidence float64
	ATRMultiplier  float64
	RewardRisk     float64
	// PullbackLow/High bound the RSI band treated as a trend pullback.
	PullbackLow  float64
	PullbackHigh float64
	// RSIOversold/Overbought are the ranging-regime extremes.
	RSIOversold   float64
	RSIOverbought float64
	// BandProximity is the max relative distance from the Bollinger
	// band for a ranging entry.
	BandProximity float64
}

func (c RuleConfig) withDefaults() RuleConfig {
	if c.Timeframe == "" {
		c.Timeframe = analysis.TFCanonical
	}
	if c.BaseConfidence <= 0 {
		c.BaseConfidence = 58
	}
	if c.ATRMultiplier <= 0 {
		c.ATRMultiplier = 1.5
	}
	if c.RewardRisk <= 0 {
		c.RewardRisk = 2
	}
	if c.PullbackLow <= 0 {
		c.PullbackLow = 40
	}
	if c.PullbackHigh <= 0 {
		c.PullbackHigh = 60
	}
	if c.RSIOversold <= 0 {
		c.RSIOversold = 30
	}
	if c.RSIOverbought <= 0 {
		c.RSIOverbought = 70
	}
	if c.BandProximity <= 0 {
		c.BandProximity = 0.005
	}
	return c
}

// Rule is the regime-branching engine: trend pullbacks in trending
// markets, band fades in ranging markets, nothing in volatile ones.
type Rule struct {
	cfg RuleConfig
}

func NewRule(cfg RuleConfig) *Rule {
	return &Rule{cfg: cfg.withDefaults()}
}

func (r *Rule) Name() string { return "rule" }

func (r *Rule) Evaluate(_ context.Context, pair *analysis.Pair) (*decision.Decision, error) {
	b := pair.Bundle(r.cfg.Timeframe)
	if b == nil || b.RSI == nil || b.MACD == nil || b.MACDSignal == nil || b.MACDHist == nil || b.ATR == nil {
		return nil, nil
	}
	entry := pair.MarkPrice
	if entry <= 0 {
		return nil, nil
	}

	var dir decision.Direction
	var confidence float64
	var note string

	switch pair.Regime {
	case regime.Trending:
		rsi := *b.RSI
		if rsi < r.cfg.PullbackLow || rsi > r.cfg.PullbackHigh {
			return nil, nil
		}
		// MACD histogram sign and line/signal relation must point the
		// same way; a pullback against a confirmed impulse is the
		// entry, a disagreement is chop.
		switch {
		case *b.MACDHist > 0 && *b.MACD > *b.MACDSignal:
			dir = decision.Long
		case *b.MACDHist < 0 && *b.MACD < *b.MACDSignal:
			dir = decision.Short
		default:
			return nil, nil
		}
		confidence = r.cfg.BaseConfidence
		if b.ADX != nil {
			switch {
			case *b.ADX >= 35:
				confidence += 10
			case *b.ADX >= 25:
				confidence += 5
			}
		}
		note = fmt.Sprintf("trending pullback: RSI %.1f in %0.f-%0.f band, MACD confirms %s",
			rsi, r.cfg.PullbackLow, r.cfg.PullbackHigh, dir)

	case regime.Ranging:
		if b.BBUpper == nil || b.BBLower == nil {
			return nil, nil
		}
		rsi := *b.RSI
		switch {
		case rsi <= r.cfg.RSIOversold && withinBand(entry, *b.BBLower, r.cfg.BandProximity):
			dir = decision.Long
		case rsi >= r.cfg.RSIOverbought && withinBand(entry, *b.BBUpper, r.cfg.BandProximity):
			dir = decision.Short
		default:
			return nil, nil
		}
		confidence = r.cfg.BaseConfidence
		if b.BBWidth != nil && *b.BBWidth < 0.03 {
			confidence += 5
		}
		if rsi <= r.cfg.RSIOversold-5 || rsi >= r.cfg.RSIOverbought+5 {
			confidence += 5
		}
		note = fmt.Sprintf("ranging fade: RSI %.1f at extreme, price at band", rsi)

	default:
		// Volatile always abstains.
		return nil, nil
	}

	stopDistance := *b.ATR * r.cfg.ATRMultiplier
	if stopDistance <= 0 || stopDistance >= entry {
		return nil, nil
	}
	stop, target := levels(dir, entry, stopDistance, r.cfg.RewardRisk)
	if target <= 0 {
		return nil, nil
	}
	return &decision.Decision{
		Symbol:     pair.Symbol,
		Direction:  dir,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		Confidence: confidence,
		Reasoning:  note,
		Regime:     pair.Regime,
	}, nil
}

// withinBand reports whether price is within proximity (relative) of a
// band level.
func withinBand(price, band, proximity float64) bool {
	if band <= 0 {
		return false
	}
	diff := price - band
	if diff < 0 {
		diff = -diff
	}
	return diff/band <= proximity
}

// levels derives stop and target from a stop distance and a
// reward:risk ratio.
func levels(dir decision.Direction, entry, stopDistance, rewardRisk float64) (stop, target float64) {
	if dir == decision.Long {
		return entry - stopDistance, entry + stopDistance*rewardRisk
	}
	return entry + stopDistance, entry - stopDistance*rewardRisk
}
