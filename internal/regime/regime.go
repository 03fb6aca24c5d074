// Package regime maps one timeframe's indicator bundle to a coarse
// market state used to gate the strategy bank.
package regime

import "peregrine/internal/indicator"

type Regime string

const (
	Trending Regime = "trending"
	Ranging  Regime = "ranging"
	Volatile Regime = "volatile"
)

// Thresholds parameterize the decision table. Zero values are replaced
// by defaults so a partially-filled config still classifies.
type Thresholds struct {
	TrendingADX       float64
	TrendingBBWidth   float64
	VolatileBBWidth   float64
	VolatileATRRatio  float64
	RangingADXCeiling float64
}

func (t Thresholds) withDefaults() Thresholds {
	if t.TrendingADX <= 0 {
		t.TrendingADX = 25
	}
	if t.TrendingBBWidth <= 0 {
		t.TrendingBBWidth = 0.03
	}
	if t.VolatileBBWidth <= 0 {
		t.VolatileBBWidth = 0.06
	}
	if t.VolatileATRRatio <= 0 {
		t.VolatileATRRatio = 0.02
	}
	if t.RangingADXCeiling <= 0 {
		t.RangingADXCeiling = 20
	}
	return t
}

// Classify is a pure decision table over (ADX, band width, ATR/price).
// Incomplete inputs and every unmatched case land on Ranging, the
// conservative default.
func Classify(b *indicator.Bundle, price float64, t Thresholds) Regime {
	t = t.withDefaults()
	if b == nil || b.ADX == nil || b.BBWidth == nil || b.ATR == nil || price <= 0 {
		return Ranging
	}
	adx := *b.ADX
	width := *b.BBWidth
	atrRatio := *b.ATR / price

	switch {
	case adx > t.TrendingADX && width > t.TrendingBBWidth:
		return Trending
	case width > t.VolatileBBWidth && atrRatio > t.VolatileATRRatio:
		return Volatile
	case adx < t.RangingADXCeiling || width <= t.TrendingBBWidth:
		return Ranging
	default:
		return Ranging
	}
}
