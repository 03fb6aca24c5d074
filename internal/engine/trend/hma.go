package trend

import (
	"fmt"

	"peregrine/internal/market"
)

// HMA detects Hull moving-average crossovers. Hull MAs lag far less
// than simple smoothing, so the fast/slow pair flips early in a move.
type HMA struct {
	Fast int
	Slow int
}

func (h HMA) periods() (int, int) {
	fast, slow := h.Fast, h.Slow
	if fast <= 0 {
		fast = 9
	}
	if slow <= 0 {
		slow = 21
	}
	return fast, slow
}

func (h HMA) Name() string { return "hma_cross" }

func (h HMA) MinBars() int {
	_, slow := h.periods()
	return slow * 2
}

func (h HMA) Detect(candles []market.Candle) (Crossover, bool) {
	fastP, slowP := h.periods()
	closes := market.Closes(candles)
	dir, ok := crossover(hull(closes, fastP), hull(closes, slowP))
	if !ok {
		return Crossover{}, false
	}
	return Crossover{
		Dir:  dir,
		Note: fmt.Sprintf("HMA%d/%d cross %s", fastP, slowP, dir),
	}, true
}
