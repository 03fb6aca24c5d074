package trend

import (
	"fmt"

	"peregrine/internal/decision"
	"peregrine/internal/market"
)

// Supertrend detects regime flips of the ATR-band supertrend line.
type Supertrend struct {
	Period     int
	Multiplier float64
}

func (s Supertrend) params() (int, float64) {
	period, mult := s.Period, s.Multiplier
	if period <= 0 {
		period = 10
	}
	if mult <= 0 {
		mult = 3
	}
	return period, mult
}

func (s Supertrend) Name() string { return "supertrend_flip" }

func (s Supertrend) MinBars() int {
	period, _ := s.params()
	return period*3 + 2
}

func (s Supertrend) Detect(candles []market.Candle) (Crossover, bool) {
	period, mult := s.params()
	dirs := supertrendDir(candles, period, mult)
	n := len(dirs)
	if n < 2 || dirs[n-2] == 0 {
		return Crossover{}, false
	}
	switch {
	case dirs[n-2] == -1 && dirs[n-1] == 1:
		return Crossover{
			Dir:  decision.Long,
			Note: fmt.Sprintf("supertrend(%d,%.1f) flipped up", period, mult),
		}, true
	case dirs[n-2] == 1 && dirs[n-1] == -1:
		return Crossover{
			Dir:  decision.Short,
			Note: fmt.Sprintf("supertrend(%d,%.1f) flipped down", period, mult),
		}, true
	default:
		return Crossover{}, false
	}
}
