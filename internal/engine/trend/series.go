package trend

import (
	"math"

	"github.com/markcheno/go-talib"

	"peregrine/internal/decision"
	"peregrine/internal/market"
)

// crossover compares the last two bars of a fast/slow pair. A cross is
// only reported when it happened on the latest closed bar.
func crossover(fast, slow []float64) (decision.Direction, bool) {
	n := len(fast)
	if n < 2 || len(slow) != n {
		return "", false
	}
	prev := fast[n-2] - slow[n-2]
	curr := fast[n-1] - slow[n-1]
	if !finite(prev) || !finite(curr) {
		return "", false
	}
	switch {
	case prev <= 0 && curr > 0:
		return decision.Long, true
	case prev >= 0 && curr < 0:
		return decision.Short, true
	default:
		return "", false
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// hull computes the Hull moving average:
// WMA(2*WMA(n/2) - WMA(n), sqrt(n)).
func hull(closes []float64, period int) []float64 {
	half := talib.Wma(closes, period/2)
	full := talib.Wma(closes, period)
	raw := make([]float64, len(closes))
	for i := range raw {
		raw[i] = 2*half[i] - full[i]
	}
	return talib.Wma(raw, int(math.Round(math.Sqrt(float64(period)))))
}

// midpoint is the Ichimoku-style (highest high + lowest low)/2 over a
// trailing window, per bar.
func midpoint(candles []market.Candle, period int) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		hh := candles[i].High
		ll := candles[i].Low
		for j := i - period + 1; j < i; j++ {
			if candles[j].High > hh {
				hh = candles[j].High
			}
			if candles[j].Low < ll {
				ll = candles[j].Low
			}
		}
		out[i] = (hh + ll) / 2
	}
	return out
}

// supertrendDir returns the supertrend regime per bar: +1 while price
// rides the lower band, -1 while it rides the upper band.
func supertrendDir(candles []market.Candle, period int, multiplier float64) []int {
	n := len(candles)
	dirs := make([]int, n)
	if n < period+1 {
		return dirs
	}
	atr := talib.Atr(market.Highs(candles), market.Lows(candles), market.Closes(candles), period)

	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := 0; i < n; i++ {
		mid := (candles[i].High + candles[i].Low) / 2
		upper[i] = mid + multiplier*atr[i]
		lower[i] = mid - multiplier*atr[i]
	}
	// Trailing band logic: the active band only ratchets in the trend
	// direction; a close through it flips the regime.
	for i := 1; i < n; i++ {
		dir := dirs[i-1]
		if dir == 0 {
			dir = 1
		}
		if dir == 1 {
			if lower[i] < lower[i-1] {
				lower[i] = lower[i-1]
			}
			if candles[i].Close < lower[i] {
				dir = -1
			}
		} else {
			if upper[i] > upper[i-1] {
				upper[i] = upper[i-1]
			}
			if candles[i].Close > upper[i] {
				dir = 1
			}
		}
		dirs[i] = dir
	}
	return dirs
}

// percentileRank returns the fraction of window values at or below v.
func percentileRank(window []float64, v float64) float64 {
	if len(window) == 0 {
		return 1
	}
	count := 0
	valid := 0
	for _, w := range window {
		if !finite(w) {
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
