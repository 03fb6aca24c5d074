package trend

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"peregrine/internal/decision"
	"peregrine/internal/indicator"
	"peregrine/internal/market"
)

// Squeeze is the trend-family breakout variant: a Bollinger width
// percentile squeeze on the previous bar, a band breakout on the
// current bar, then the same daily gate as every other trend engine.
type Squeeze struct {
	BBPeriod   int
	Lookback   int
	Percentile float64
}

func (s Squeeze) params() (bbPeriod, lookback int, percentile float64) {
	bbPeriod, lookback, percentile = s.BBPeriod, s.Lookback, s.Percentile
	if bbPeriod <= 0 {
		bbPeriod = 20
	}
	if lookback <= 0 {
		lookback = 50
	}
	if percentile <= 0 {
		percentile = 0.15
	}
	return bbPeriod, lookback, percentile
}

func (s Squeeze) Name() string { return "bb_squeeze_trend" }

func (s Squeeze) MinBars() int {
	bbPeriod, lookback, _ := s.params()
	return bbPeriod + lookback + 2
}

func (s Squeeze) Detect(candles []market.Candle) (Crossover, bool) {
	bbPeriod, lookback, percentile := s.params()
	closes := market.Closes(candles)
	n := len(closes)

	widths := indicator.BBWidthSeries(closes)
	prev := n - 2
	window := widths[prev-lookback : prev]
	if rank := percentileRank(window, widths[prev]); rank > percentile {
		return Crossover{}, false
	}

	upper, _, lower := talib.BBands(closes, bbPeriod, 2.0, 2.0, talib.SMA)
	last := closes[n-1]
	switch {
	case last > upper[n-1]:
		return Crossover{
			Dir:  decision.Long,
			Note: fmt.Sprintf("squeeze (width <= p%.0f of %d bars) broke above upper band", percentile*100, lookback),
		}, true
	case last < lower[n-1]:
		return Crossover{
			Dir:  decision.Short,
			Note: fmt.Sprintf("squeeze (width <= p%.0f of %d bars) broke below lower band", percentile*100, lookback),
		}, true
	default:
		return Crossover{}, false
	}
}

// Boost rewards a sharper squeeze and a volume spike on the breakout
// bar.
func (s Squeeze) Boost(candles []market.Candle) float64 {
	_, lookback, percentile := s.params()
	closes := market.Closes(candles)
	n := len(closes)
	boost := 0.0

	widths := indicator.BBWidthSeries(closes)
	prev := n - 2
	window := widths[prev-lookback : prev]
	if percentileRank(window, widths[prev]) <= percentile/2 {
		boost += 5
	}

	volumes := market.Volumes(candles)
	if avg := mean(volumes[n-21 : n-1]); avg > 0 && volumes[n-1] >= 2*avg {
		boost += 5
	}
	return boost
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
