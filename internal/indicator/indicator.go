// Package indicator computes the per-timeframe technical bundle the
// signal engines consume. All outputs are pointers: nil means "not
// enough history", which engines must treat as no opinion, never zero.
package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"peregrine/internal/market"
)

const (
	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	bbPeriod   = 20
	bbStdDev   = 2.0
	atrPeriod  = 14
	adxPeriod  = 14

	// MinBars is the shortest window Compute will evaluate: the MACD
	// signal chain (26+9) plus ADX warmup leave garbage before ~50 bars.
	MinBars = 50
)

// Bundle is one timeframe's indicator snapshot.
type Bundle struct {
	RSI        *float64 `json:"rsi,omitempty"`
	MACD       *float64 `json:"macd,omitempty"`
	MACDSignal *float64 `json:"macd_signal,omitempty"`
	MACDHist   *float64 `json:"macd_hist,omitempty"`
	BBUpper    *float64 `json:"bb_upper,omitempty"`
	BBMiddle   *float64 `json:"bb_middle,omitempty"`
	BBLower    *float64 `json:"bb_lower,omitempty"`
	BBWidth    *float64 `json:"bb_width,omitempty"`
	ATR        *float64 `json:"atr,omitempty"`
	VWAP       *float64 `json:"vwap,omitempty"`
	ADX        *float64 `json:"adx,omitempty"`
}

// Complete reports whether every field of the bundle is populated.
func (b *Bundle) Complete() bool {
	if b == nil {
		return false
	}
	return b.RSI != nil && b.MACD != nil && b.MACDSignal != nil && b.MACDHist != nil &&
		b.BBUpper != nil && b.BBMiddle != nil && b.BBLower != nil && b.BBWidth != nil &&
		b.ATR != nil && b.VWAP != nil && b.ADX != nil
}

// Compute derives the bundle from a candle window. Below MinBars the
// returned bundle has every field nil.
func Compute(candles []market.Candle) *Bundle {
	out := &Bundle{}
	if len(candles) < MinBars {
		return out
	}
	closes := market.Closes(candles)
	highs := market.Highs(candles)
	lows := market.Lows(candles)
	volumes := market.Volumes(candles)

	out.RSI = lastValid(talib.Rsi(closes, rsiPeriod))

	macdLine, signalLine, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
	out.MACD = lastValid(macdLine)
	out.MACDSignal = lastValid(signalLine)
	out.MACDHist = lastValid(hist)

	upper, middle, lower := talib.BBands(closes, bbPeriod, bbStdDev, bbStdDev, talib.SMA)
	out.BBUpper = lastValid(upper)
	out.BBMiddle = lastValid(middle)
	out.BBLower = lastValid(lower)
	if out.BBUpper != nil && out.BBLower != nil && out.BBMiddle != nil && *out.BBMiddle > 0 {
		w := (*out.BBUpper - *out.BBLower) / *out.BBMiddle
		out.BBWidth = &w
	}

	out.ATR = lastValid(talib.Atr(highs, lows, closes, atrPeriod))
	out.ADX = lastValid(talib.Adx(highs, lows, closes, adxPeriod))
	out.VWAP = vwap(highs, lows, closes, volumes)
	return out
}

// BBWidthSeries returns the relative band width per bar; leading bars
// without a full lookback are NaN.
func BBWidthSeries(closes []float64) []float64 {
	upper, middle, lower := talib.BBands(closes, bbPeriod, bbStdDev, bbStdDev, talib.SMA)
	out := make([]float64, len(closes))
	for i := range closes {
		if i < bbPeriod-1 || middle[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (upper[i] - lower[i]) / middle[i]
	}
	return out
}

// vwap is the volume-weighted typical price over the whole window.
func vwap(highs, lows, closes, volumes []float64) *float64 {
	var pv, vol float64
	for i := range closes {
		typical := (highs[i] + lows[i] + closes[i]) / 3
		pv += typical * volumes[i]
		vol += volumes[i]
	}
	if vol <= 0 {
		return nil
	}
	v := pv / vol
	return &v
}

// lastValid returns the final value of a talib series, or nil when the
// series is empty or the value is not finite.
func lastValid(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
