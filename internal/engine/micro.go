package engine

import (
	"context"
	"fmt"
	"math"

	"peregrine/internal/analysis"
	"peregrine/internal/decision"
)

type MicroConfig struct {
	BaseConfidence float64
	// DeadZone is the minimum absolute depth imbalance to act on.
	DeadZone float64
	// StrongImbalance earns the extremity boost.
	StrongImbalance float64
	// CrowdedRatio is the long/short account ratio beyond which the
	// crowd already owns the trade.
	CrowdedRatio float64
	// StopFraction is the relative stop distance; this engine carries
	// no candle history to derive an ATR from.
	StopFraction float64
	RewardRisk   float64
	// WideSpread (relative) marks a book too thin to trust.
	WideSpread float64
	// OISurge is the open-interest delta that signals fresh money.
	OISurge float64
}

func (c MicroConfig) withDefaults() MicroConfig {
	if c.BaseConfidence <= 0 {
		c.BaseConfidence = 55
	}
	if c.DeadZone <= 0 {
		c.DeadZone = 0.15
	}
	if c.StrongImbalance <= 0 {
		c.StrongImbalance = 0.35
	}
	if c.CrowdedRatio <= 0 {
		c.CrowdedRatio = 1.5
	}
	if c.StopFraction <= 0 {
		c.StopFraction = 0.0075
	}
	if c.RewardRisk <= 0 {
		c.RewardRisk = 1.5
	}
	if c.WideSpread <= 0 {
		c.WideSpread = 0.001
	}
	if c.OISurge <= 0 {
		c.OISurge = 0.02
	}
	return c
}

// Micro trades order-flow: depth imbalance for direction, the
// long/short account ratio as an anti-crowding veto, and the
// open-interest delta as conviction. The only engine that needs no
// candle history.
type Micro struct {
	cfg MicroConfig
}

func NewMicro(cfg MicroConfig) *Micro {
	return &Micro{cfg: cfg.withDefaults()}
}

func (m *Micro) Name() string { return "microstructure" }

func (m *Micro) Evaluate(_ context.Context, pair *analysis.Pair) (*decision.Decision, error) {
	book := pair.OrderBook
	if book == nil || book.BidDepth+book.AskDepth <= 0 {
		return nil, nil
	}
	entry := pair.MarkPrice
	if entry <= 0 {
		return nil, nil
	}

	imbalance := (book.BidDepth - book.AskDepth) / (book.BidDepth + book.AskDepth)
	if math.Abs(imbalance) < m.cfg.DeadZone {
		return nil, nil
	}
	var dir decision.Direction
	if imbalance > 0 {
		dir = decision.Long
	} else {
		dir = decision.Short
	}

	// Anti-crowding: when the positioning ratio is already stacked the
	// same way, the order-book lean is the crowd, not new information.
	if ratio, ok := latestRatio(pair); ok {
		if dir == decision.Long && ratio >= m.cfg.CrowdedRatio {
			return nil, nil
		}
		if dir == decision.Short && ratio > 0 && ratio <= 1/m.cfg.CrowdedRatio {
			return nil, nil
		}
	}

	confidence := m.cfg.BaseConfidence
	if math.Abs(imbalance) >= m.cfg.StrongImbalance {
		confidence += 10
	}
	spread := book.Spread()
	if spread > m.cfg.WideSpread {
		confidence -= 5
	}
	if delta, ok := oiDelta(pair); ok && delta >= m.cfg.OISurge {
		confidence += 5
	}
	if confidence > 90 {
		confidence = 90
	}
	if confidence <= 50 {
		return nil, nil
	}

	stopDistance := entry * m.cfg.StopFraction
	stop, target := levels(dir, entry, stopDistance, m.cfg.RewardRisk)
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
		Reasoning:  fmt.Sprintf("depth imbalance %.2f, spread %.4f%%", imbalance, spread*100),
		Regime:     pair.Regime,
	}, nil
}

func latestRatio(pair *analysis.Pair) (float64, bool) {
	if len(pair.LongShort) == 0 {
		return 0, false
	}
	last := pair.LongShort[len(pair.LongShort)-1]
	if last.Ratio <= 0 {
		return 0, false
	}
	return last.Ratio, true
}

// oiDelta is the relative change between the last two open-interest
// samples.
func oiDelta(pair *analysis.Pair) (float64, bool) {
	n := len(pair.OIHistory)
	if n < 2 {
		return 0, false
	}
	prev := pair.OIHistory[n-2].OpenInterest
	curr := pair.OIHistory[n-1].OpenInterest
	if prev <= 0 {
		return 0, false
	}
	return (curr - prev) / prev, true
}
