// Package decision defines the trade proposal emitted by signal
// engines and the shape checks every proposal must satisfy before it
// may be sized or gated.
package decision

import (
	"fmt"
	"math"
	"time"

	"peregrine/internal/regime"
)

type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
	Flat  Direction = "flat"
)

// ParseDirection validates a free-form direction string.
func ParseDirection(raw string) (Direction, bool) {
	switch Direction(raw) {
	case Long, Short, Flat:
		return Direction(raw), true
	default:
		return "", false
	}
}

// Decision is an immutable candidate trade from one engine for one
// cycle. A new cycle produces new decisions; nothing mutates these.
type Decision struct {
	Symbol     string        `json:"symbol"`
	Direction  Direction     `json:"direction"`
	EntryPrice float64       `json:"entry_price"`
	StopLoss   float64       `json:"stop_loss"`
	TakeProfit float64       `json:"take_profit"`
	Confidence float64       `json:"confidence"`
	Reasoning  string        `json:"reasoning"`
	Regime     regime.Regime `json:"regime"`
	SizeUSD    float64       `json:"size_usd"`
	Leverage   int           `json:"leverage"`
	Engine     string        `json:"engine"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Validate enforces the structural invariants:
//   - flat decisions carry no size and no price levels are checked;
//   - long requires stop < entry < target;
//   - short requires target < entry < stop;
//   - all prices finite and positive, confidence within 0..100.
func (d *Decision) Validate() error {
	if d == nil {
		return fmt.Errorf("nil decision")
	}
	if _, ok := ParseDirection(string(d.Direction)); !ok {
		return fmt.Errorf("invalid direction %q", d.Direction)
	}
	if d.Confidence < 0 || d.Confidence > 100 {
		return fmt.Errorf("confidence %.1f out of range 0-100", d.Confidence)
	}
	if d.Direction == Flat {
		if d.SizeUSD != 0 {
			return fmt.Errorf("flat decision carries size %.2f", d.SizeUSD)
		}
		return nil
	}
	for name, v := range map[string]float64{
		"entry_price": d.EntryPrice,
		"stop_loss":   d.StopLoss,
		"take_profit": d.TakeProfit,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%s must be a finite positive number, got %v", name, v)
		}
	}
	switch d.Direction {
	case Long:
		if !(d.StopLoss < d.EntryPrice && d.EntryPrice < d.TakeProfit) {
			return fmt.Errorf("long requires stop < entry < target (stop=%.4f entry=%.4f target=%.4f)",
				d.StopLoss, d.EntryPrice, d.TakeProfit)
		}
	case Short:
		if !(d.TakeProfit < d.EntryPrice && d.EntryPrice < d.StopLoss) {
			return fmt.Errorf("short requires target < entry < stop (target=%.4f entry=%.4f stop=%.4f)",
				d.TakeProfit, d.EntryPrice, d.StopLoss)
		}
	}
	return nil
}
