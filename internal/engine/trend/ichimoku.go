package trend

import (
	"fmt"

	"peregrine/internal/market"
)

// Ichimoku detects Tenkan/Kijun crossovers, the classic conversion/base
// line signal. Cloud spans are not evaluated; the daily gate plays the
// higher-timeframe role instead.
type Ichimoku struct {
	Tenkan int
	Kijun  int
}

func (ic Ichimoku) periods() (int, int) {
	tenkan, kijun := ic.Tenkan, ic.Kijun
	if tenkan <= 0 {
		tenkan = 9
	}
	if kijun <= 0 {
		kijun = 26
	}
	return tenkan, kijun
}

func (ic Ichimoku) Name() string { return "ichimoku_cross" }

func (ic Ichimoku) MinBars() int {
	_, kijun := ic.periods()
	return kijun + 2
}

func (ic Ichimoku) Detect(candles []market.Candle) (Crossover, bool) {
	tenkanP, kijunP := ic.periods()
	dir, ok := crossover(midpoint(candles, tenkanP), midpoint(candles, kijunP))
	if !ok {
		return Crossover{}, false
	}
	return Crossover{
		Dir:  dir,
		Note: fmt.Sprintf("Tenkan%d/Kijun%d cross %s", tenkanP, kijunP, dir),
	}, true
}
