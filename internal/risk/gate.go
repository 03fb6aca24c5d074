package risk

import (
	"fmt"
	"sync"

	"peregrine/internal/regime"
)

// PositionCounter is the one read the gate needs from the execution
// layer.
type PositionCounter interface {
	OpenPositionCount() int
}

type GateConfig struct {
	MaxLeverage      int
	MaxPositions     int
	DailyDrawdownUSD float64
}

func (c GateConfig) withDefaults() GateConfig {
	if c.MaxLeverage <= 0 {
		c.MaxLeverage = 10
	}
	if c.MaxPositions <= 0 {
		c.MaxPositions = 3
	}
	if c.DailyDrawdownUSD <= 0 {
		c.DailyDrawdownUSD = 500
	}
	return c
}

// Verdict is the gate's answer. Blocks are expected and frequent; the
// reason is operator-facing text, never an error.
type Verdict struct {
	Allowed bool
	Reason  string
}

func allow() Verdict { return Verdict{Allowed: true} }

func block(format string, v ...any) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, v...)}
}

// Gate is the single chokepoint every candidate decision passes before
// execution. All mutable state lives on the struct so separate
// instances (tests, multi-tenant runs) never cross-contaminate.
type Gate struct {
	cfg       GateConfig
	drawdown  *DrawdownWindow
	positions PositionCounter

	mu         sync.RWMutex
	killSwitch bool
}

func NewGate(cfg GateConfig, drawdown *DrawdownWindow, positions PositionCounter) *Gate {
	if drawdown == nil {
		drawdown = NewDrawdownWindow()
	}
	return &Gate{cfg: cfg.withDefaults(), drawdown: drawdown, positions: positions}
}

// SetKillSwitch flips the master halt. Engaging it blocks every new
// position until released; open positions are unaffected.
func (g *Gate) SetKillSwitch(on bool) {
	g.mu.Lock()
	g.killSwitch = on
	g.mu.Unlock()
}

func (g *Gate) KillSwitchActive() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.killSwitch
}

// Drawdown exposes the rolling loss window for the execution layer to
// feed realized losses into.
func (g *Gate) Drawdown() *DrawdownWindow {
	return g.drawdown
}

// Check runs the gates in fixed order; the first failure short-circuits
// and is the reported reason. Order is part of the contract: cheap
// process-wide halts come before per-decision arithmetic.
func (g *Gate) Check(leverage int, stopLoss float64, reg regime.Regime) Verdict {
	if g.KillSwitchActive() {
		return block("kill switch active")
	}
	if reg == regime.Volatile {
		return block("volatile regime, no new risk")
	}
	if loss := g.drawdown.Total(); loss >= g.cfg.DailyDrawdownUSD {
		return block("24h drawdown limit reached (%.2f >= %.2f USD)", loss, g.cfg.DailyDrawdownUSD)
	}
	if g.positions != nil {
		if open := g.positions.OpenPositionCount(); open >= g.cfg.MaxPositions {
			return block("max concurrent positions reached (%d/%d)", open, g.cfg.MaxPositions)
		}
	}
	if leverage > g.cfg.MaxLeverage {
		return block("leverage %dx exceeds cap %dx", leverage, g.cfg.MaxLeverage)
	}
	if stopLoss <= 0 {
		return block("missing or invalid stop-loss")
	}
	return allow()
}
