package trend

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"peregrine/internal/market"
)

// MACDCross detects MACD-line/signal-line crossovers.
type MACDCross struct {
	Fast   int
	Slow   int
	Signal int
}

func (m MACDCross) periods() (int, int, int) {
	fast, slow, signal := m.Fast, m.Slow, m.Signal
	if fast <= 0 {
		fast = 12
	}
	if slow <= 0 {
		slow = 26
	}
	if signal <= 0 {
		signal = 9
	}
	return fast, slow, signal
}

func (m MACDCross) Name() string { return "macd_cross" }

func (m MACDCross) MinBars() int {
	_, slow, signal := m.periods()
	return slow + signal + 10
}

func (m MACDCross) Detect(candles []market.Candle) (Crossover, bool) {
	fast, slow, signal := m.periods()
	line, signalLine, _ := talib.Macd(market.Closes(candles), fast, slow, signal)
	dir, ok := crossover(line, signalLine)
	if !ok {
		return Crossover{}, false
	}
	return Crossover{
		Dir:  dir,
		Note: fmt.Sprintf("MACD(%d,%d,%d) signal cross %s", fast, slow, signal, dir),
	}, true
}
