// Package executor is the execution collaborator the decision core
// hands survivors to. The core only ever sees this interface; paper
// and live modes are interchangeable behind it.
package executor

import (
	"context"
	"time"

	"peregrine/internal/decision"
)

const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// Position is an open or closed holding.
type Position struct {
	ID            string
	Symbol        string
	Direction     decision.Direction
	EntryPrice    float64
	ExitPrice     float64
	StopLoss      float64
	TakeProfit    float64
	SizeUSD       float64
	Leverage      int
	Mode          string
	Status        string
	UnrealizedPnL float64
	RealizedPnL   float64
	OpenedAt      time.Time
	ClosedAt      time.Time
}

// Executor is the narrow surface the pipeline depends on. The risk
// gate and Kelly sizer only use the read half.
type Executor interface {
	VirtualBalance() float64
	OpenPosition(ctx context.Context, d *decision.Decision) (*Position, error)
	ClosePosition(ctx context.Context, id string, exitPrice float64) (*Position, error)
	OpenPositions() []*Position
	OpenPositionCount() int
}
