package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"peregrine/internal/decision"
	"peregrine/internal/logger"
	"peregrine/internal/risk"
	"peregrine/internal/store"
)

// Paper simulates execution against a virtual balance. Fills are
// assumed at the decision's entry price; the point is exercising the
// decision pipeline, not venue microstructure.
type Paper struct {
	archive  *store.Store
	drawdown *risk.DrawdownWindow

	mu        sync.Mutex
	balance   decimal.Decimal
	positions map[string]*Position
}

func NewPaper(startingBalance float64, archive *store.Store, drawdown *risk.DrawdownWindow) (*Paper, error) {
	if startingBalance <= 0 {
		return nil, fmt.Errorf("starting balance must be positive, got %.2f", startingBalance)
	}
	p := &Paper{
		archive:   archive,
		drawdown:  drawdown,
		balance:   decimal.NewFromFloat(startingBalance),
		positions: make(map[string]*Position),
	}
	if err := p.restoreOpen(); err != nil {
		return nil, err
	}
	return p, nil
}

// restoreOpen reloads open positions from the archive so a restart
// does not orphan paper holdings.
func (p *Paper) restoreOpen() error {
	if p.archive == nil {
		return nil
	}
	recs, err := p.archive.ListOpen()
	if err != nil {
		return fmt.Errorf("restore open positions: %w", err)
	}
	for _, rec := range recs {
		pos := recordToPosition(rec)
		p.positions[pos.ID] = pos
		p.balance = p.balance.Sub(decimal.NewFromFloat(pos.SizeUSD))
	}
	if len(recs) > 0 {
		logger.Infof("executor: restored %d open paper positions", len(recs))
	}
	return nil
}

func (p *Paper) VirtualBalance() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance.InexactFloat64()
}

func (p *Paper) OpenPositionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.positions)
}

func (p *Paper) OpenPositions() []*Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Position, 0, len(p.positions))
	for _, pos := range p.positions {
		copied := *pos
		out = append(out, &copied)
	}
	return out
}

func (p *Paper) OpenPosition(_ context.Context, d *decision.Decision) (*Position, error) {
	if d == nil || d.Direction == decision.Flat {
		return nil, fmt.Errorf("cannot open a position from a flat decision")
	}
	if d.SizeUSD <= 0 {
		return nil, fmt.Errorf("decision carries no size")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	size := decimal.NewFromFloat(d.SizeUSD)
	if size.GreaterThan(p.balance) {
		return nil, fmt.Errorf("insufficient balance: need %.2f, have %s", d.SizeUSD, p.balance.StringFixed(2))
	}
	pos := &Position{
		ID:         uuid.NewString(),
		Symbol:     d.Symbol,
		Direction:  d.Direction,
		EntryPrice: d.EntryPrice,
		StopLoss:   d.StopLoss,
		TakeProfit: d.TakeProfit,
		SizeUSD:    d.SizeUSD,
		Leverage:   d.Leverage,
		Mode:       ModePaper,
		Status:     store.StatusOpen,
		OpenedAt:   time.Now().UTC(),
	}
	p.balance = p.balance.Sub(size)
	p.positions[pos.ID] = pos
	if err := p.persist(pos, d); err != nil {
		// Roll back the in-memory book; the archive is the record.
		p.balance = p.balance.Add(size)
		delete(p.positions, pos.ID)
		return nil, err
	}
	logger.Infof("executor: opened paper %s %s size=%.2f entry=%.4f", pos.Direction, pos.Symbol, pos.SizeUSD, pos.EntryPrice)
	copied := *pos
	return &copied, nil
}

func (p *Paper) ClosePosition(_ context.Context, id string, exitPrice float64) (*Position, error) {
	if exitPrice <= 0 {
		return nil, fmt.Errorf("exit price must be positive")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[id]
	if !ok {
		return nil, fmt.Errorf("no open position %s", id)
	}

	pnl := realizedPnL(pos, exitPrice)
	pos.ExitPrice = exitPrice
	pos.RealizedPnL = pnl
	pos.UnrealizedPnL = 0
	pos.Status = store.StatusClosed
	pos.ClosedAt = time.Now().UTC()

	p.balance = p.balance.Add(decimal.NewFromFloat(pos.SizeUSD)).Add(decimal.NewFromFloat(pnl))
	delete(p.positions, id)
	if err := p.persist(pos, nil); err != nil {
		return nil, err
	}
	// Realized losses feed the gate's rolling drawdown window.
	if pnl < 0 && p.drawdown != nil {
		p.drawdown.RecordLoss(-pnl)
	}
	logger.Infof("executor: closed paper %s %s exit=%.4f pnl=%.2f", pos.Direction, pos.Symbol, exitPrice, pnl)
	copied := *pos
	return &copied, nil
}

// RefreshUnrealized marks open positions to the given prices.
func (p *Paper) RefreshUnrealized(prices map[string]float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pos := range p.positions {
		price, ok := prices[pos.Symbol]
		if !ok || price <= 0 {
			continue
		}
		pos.UnrealizedPnL = realizedPnL(pos, price)
	}
}

func (p *Paper) persist(pos *Position, d *decision.Decision) error {
	if p.archive == nil {
		return nil
	}
	rec := positionToRecord(pos)
	if d != nil {
		rec.Engine = d.Engine
		rec.Reasoning = d.Reasoning
	}
	if err := p.archive.Save(rec); err != nil {
		return fmt.Errorf("archive position %s: %w", pos.ID, err)
	}
	return nil
}

// realizedPnL computes the P&L of closing pos at price, with leverage
// applied to the deployed margin.
func realizedPnL(pos *Position, price float64) float64 {
	if pos.EntryPrice <= 0 {
		return 0
	}
	entry := decimal.NewFromFloat(pos.EntryPrice)
	move := decimal.NewFromFloat(price).Sub(entry).Div(entry)
	if pos.Direction == decision.Short {
		move = move.Neg()
	}
	lev := pos.Leverage
	if lev <= 0 {
		lev = 1
	}
	return move.Mul(decimal.NewFromFloat(pos.SizeUSD)).Mul(decimal.NewFromInt(int64(lev))).InexactFloat64()
}

func positionToRecord(pos *Position) *store.PositionRecord {
	rec := &store.PositionRecord{
		ID:            pos.ID,
		Symbol:        pos.Symbol,
		Direction:     string(pos.Direction),
		EntryPrice:    pos.EntryPrice,
		ExitPrice:     pos.ExitPrice,
		StopLoss:      pos.StopLoss,
		TakeProfit:    pos.TakeProfit,
		SizeUSD:       pos.SizeUSD,
		Leverage:      pos.Leverage,
		Mode:          pos.Mode,
		Status:        pos.Status,
		UnrealizedPnL: pos.UnrealizedPnL,
		RealizedPnL:   pos.RealizedPnL,
		OpenedAt:      pos.OpenedAt,
	}
	if !pos.ClosedAt.IsZero() {
		closed := pos.ClosedAt
		rec.ClosedAt = &closed
	}
	return rec
}

func recordToPosition(rec store.PositionRecord) *Position {
	pos := &Position{
		ID:            rec.ID,
		Symbol:        rec.Symbol,
		Direction:     decision.Direction(rec.Direction),
		EntryPrice:    rec.EntryPrice,
		ExitPrice:     rec.ExitPrice,
		StopLoss:      rec.StopLoss,
		TakeProfit:    rec.TakeProfit,
		SizeUSD:       rec.SizeUSD,
		Leverage:      rec.Leverage,
		Mode:          rec.Mode,
		Status:        rec.Status,
		UnrealizedPnL: rec.UnrealizedPnL,
		RealizedPnL:   rec.RealizedPnL,
		OpenedAt:      rec.OpenedAt,
	}
	if rec.ClosedAt != nil {
		pos.ClosedAt = *rec.ClosedAt
	}
	return pos
}
