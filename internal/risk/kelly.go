// Package risk holds the two capital-preservation chokepoints: the
// Kelly position sizer and the ordered risk gate.
package risk

import "math"

// SizerConfig bounds the Kelly formula. The stop-fraction cap bounds
// the risk fraction inside the formula; the per-position clamp bounds
// the notional of any single position. They bound different quantities
// and are each applied exactly once.
type SizerConfig struct {
	// Fraction is the fractional-Kelly multiplier (0.5 = half Kelly).
	Fraction float64
	// MaxStopFraction caps the stop distance used as the Kelly
	// denominator, as a fraction of entry price.
	MaxStopFraction float64
	// MaxPositions splits the deployable balance across slots.
	MaxPositions int
	// MinPositionUSD is the dust floor; anything below returns 0.
	MinPositionUSD float64
}

func (c SizerConfig) withDefaults() SizerConfig {
	if c.Fraction <= 0 {
		c.Fraction = 0.5
	}
	if c.MaxStopFraction <= 0 {
		c.MaxStopFraction = 0.1
	}
	if c.MaxPositions <= 0 {
		c.MaxPositions = 3
	}
	if c.MinPositionUSD <= 0 {
		c.MinPositionUSD = 10
	}
	return c
}

// Sizer converts (confidence, entry, stop) into a USD allocation. It
// never reads engine identity; sizing is purely confidence and risk
// distance, which keeps it reusable across all ten engines.
type Sizer struct {
	cfg SizerConfig
}

func NewSizer(cfg SizerConfig) *Sizer {
	return &Sizer{cfg: cfg.withDefaults()}
}

// Size returns the USD amount to deploy, or 0 to abstain. Confidence
// is 0-100; 50 maps to zero edge and therefore zero size.
func (s *Sizer) Size(balance, confidence, entryPrice, stopLoss float64) float64 {
	if balance <= 0 || entryPrice <= 0 || stopLoss <= 0 {
		return 0
	}
	if math.IsNaN(confidence) || confidence <= 0 || confidence > 100 {
		return 0
	}
	winProb := confidence / 100
	edge := winProb - 0.5
	if edge <= 0 {
		return 0
	}
	stopFraction := math.Abs(entryPrice-stopLoss) / entryPrice
	if stopFraction <= 0 {
		return 0
	}
	if stopFraction > s.cfg.MaxStopFraction {
		stopFraction = s.cfg.MaxStopFraction
	}
	kelly := (edge / stopFraction) * s.cfg.Fraction
	raw := balance * kelly

	perPositionCap := balance * 0.95 / float64(s.cfg.MaxPositions)
	if raw > perPositionCap {
		raw = perPositionCap
	}
	if raw < s.cfg.MinPositionUSD {
		return 0
	}
	return raw
}
