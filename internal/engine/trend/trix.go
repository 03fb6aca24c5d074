package trend

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"peregrine/internal/market"
)

// TRIX detects crossovers of the TRIX oscillator against its EMA
// signal line.
type TRIX struct {
	Period int
	Signal int
}

func (t TRIX) params() (int, int) {
	period, signal := t.Period, t.Signal
	if period <= 0 {
		period = 15
	}
	if signal <= 0 {
		signal = 9
	}
	return period, signal
}

func (t TRIX) Name() string { return "trix_cross" }

func (t TRIX) MinBars() int {
	period, signal := t.params()
	return period*3 + signal + 2
}

func (t TRIX) Detect(candles []market.Candle) (Crossover, bool) {
	period, signal := t.params()
	trix := talib.Trix(market.Closes(candles), period)
	signalLine := talib.Ema(trix, signal)
	dir, ok := crossover(trix, signalLine)
	if !ok {
		return Crossover{}, false
	}
	return Crossover{
		Dir:  dir,
		Note: fmt.Sprintf("TRIX(%d) signal cross %s", period, dir),
	}, true
}
