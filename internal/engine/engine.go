// Package engine hosts the signal generators. Every engine implements
// one contract and is iterated by the orchestrator; adding a strategy
// is adding one implementation, not a new call site.
package engine

import (
	"context"
	"time"

	"peregrine/internal/analysis"
	"peregrine/internal/decision"
	"peregrine/internal/logger"
	"peregrine/internal/risk"
)

// Engine evaluates one instrument snapshot and returns at most one
// decision. (nil, nil) means "no opinion" and is the common case.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, pair *analysis.Pair) (*decision.Decision, error)
}

// BalanceFunc reads the current deployable balance from the execution
// layer.
type BalanceFunc func() float64

// Sizing applies the Kelly sizer to freshly emitted decisions.
type Sizing struct {
	Sizer   *risk.Sizer
	Balance BalanceFunc
}

// Apply fills SizeUSD on a non-flat decision and reports whether the
// decision is worth keeping. Flat decisions always carry size 0.
func (s *Sizing) Apply(d *decision.Decision) bool {
	if d == nil {
		return false
	}
	if d.Direction == decision.Flat {
		d.SizeUSD = 0
		return true
	}
	if s == nil || s.Sizer == nil || s.Balance == nil {
		return false
	}
	size := s.Sizer.Size(s.Balance(), d.Confidence, d.EntryPrice, d.StopLoss)
	if size <= 0 {
		return false
	}
	d.SizeUSD = size
	return true
}

// RunBatch evaluates every pair through one engine. Failures and
// malformed decisions are logged and skipped per instrument; one bad
// pair never aborts the batch.
func RunBatch(ctx context.Context, eng Engine, pairs []*analysis.Pair, sizing *Sizing) []*decision.Decision {
	out := make([]*decision.Decision, 0, len(pairs))
	for _, pair := range pairs {
		if ctx.Err() != nil {
			return out
		}
		d, err := eng.Evaluate(ctx, pair)
		if err != nil {
			logger.Warnf("engine %s: %s evaluation failed: %v", eng.Name(), pair.Symbol, err)
			continue
		}
		if d == nil {
			continue
		}
		d.Engine = eng.Name()
		if d.Timestamp.IsZero() {
			d.Timestamp = time.Now().UTC()
		}
		if err := d.Validate(); err != nil {
			logger.Warnf("engine %s: dropping malformed %s decision: %v", eng.Name(), pair.Symbol, err)
			continue
		}
		if !sizing.Apply(d) {
			logger.Debugf("engine %s: %s decision sized to zero, dropped", eng.Name(), pair.Symbol)
			continue
		}
		out = append(out, d)
	}
	return out
}
