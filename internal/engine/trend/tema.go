package trend

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"peregrine/internal/market"
)

// TEMA detects triple-EMA crossovers.
type TEMA struct {
	Fast int
	Slow int
}

func (t TEMA) periods() (int, int) {
	fast, slow := t.Fast, t.Slow
	if fast <= 0 {
		fast = 9
	}
	if slow <= 0 {
		slow = 21
	}
	return fast, slow
}

func (t TEMA) Name() string { return "tema_cross" }

func (t TEMA) MinBars() int {
	_, slow := t.periods()
	// TEMA chains three EMAs, each needing its own warmup.
	return slow*3 + 2
}

func (t TEMA) Detect(candles []market.Candle) (Crossover, bool) {
	fastP, slowP := t.periods()
	closes := market.Closes(candles)
	dir, ok := crossover(talib.Tema(closes, fastP), talib.Tema(closes, slowP))
	if !ok {
		return Crossover{}, false
	}
	return Crossover{
		Dir:  dir,
		Note: fmt.Sprintf("TEMA%d/%d cross %s", fastP, slowP, dir),
	}, true
}
