// Package analysis builds the per-instrument snapshot every signal
// engine consumes: multi-timeframe candles and indicators, the market
// regime, and point-in-time futures context.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"peregrine/internal/indicator"
	"peregrine/internal/logger"
	"peregrine/internal/market"
	"peregrine/internal/pkg/ratelimit"
	"peregrine/internal/regime"
)

// Timeframes fetched for every instrument. TFCanonical drives regime
// classification: fast enough to react, slow enough not to flap.
const (
	TFFast      = "15m"
	TFCanonical = "1h"
	TFSlow      = "4h"
)

var Timeframes = []string{TFFast, TFCanonical, TFSlow}

// Pair is the aggregated snapshot for one instrument and one cycle.
// Built once, read by every engine, discarded with the cycle.
type Pair struct {
	Symbol     string
	Candles    map[string][]market.Candle
	Indicators map[string]*indicator.Bundle
	Regime     regime.Regime
	MarkPrice  float64
	Funding    float64
	OpenInt    float64

	// Microstructure extras; nil/empty when the fetch failed. Only the
	// orderbook-driven engine reads these.
	OrderBook *market.OrderBook
	LongShort []market.LongShortRatioPoint
	OIHistory []market.OpenInterestPoint

	Timestamp time.Time
}

// Bundle returns the indicator bundle for a timeframe, nil-safe.
func (p *Pair) Bundle(tf string) *indicator.Bundle {
	if p == nil || p.Indicators == nil {
		return nil
	}
	return p.Indicators[tf]
}

type Config struct {
	CandleLimit  int
	PairTimeout  time.Duration
	OrderBookTop int
	Regime       regime.Thresholds
}

func (c Config) withDefaults() Config {
	if c.CandleLimit <= 0 {
		c.CandleLimit = 120
	}
	if c.PairTimeout <= 0 {
		c.PairTimeout = 30 * time.Second
	}
	if c.OrderBookTop <= 0 {
		c.OrderBookTop = 20
	}
	return c
}

// Analyzer runs the market-data pipeline for one or many instruments.
type Analyzer struct {
	source  market.Source
	limiter *ratelimit.Queue
	cfg     Config
}

// NewAnalyzer builds the pipeline. limiter may be nil; when set, the
// best-effort context fetches take TrySlot admissions from it and any
// upstream throttle rejection opens its cooldown window.
func NewAnalyzer(source market.Source, limiter *ratelimit.Queue, cfg Config) *Analyzer {
	return &Analyzer{source: source, limiter: limiter, cfg: cfg.withDefaults()}
}

// AnalyzePair fetches all timeframes and the futures context in
// parallel, bounded by the pair timeout, then computes indicators and
// classifies the regime from the canonical timeframe.
func (a *Analyzer) AnalyzePair(ctx context.Context, symbol string) (*Pair, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.PairTimeout)
	defer cancel()

	pair := &Pair{
		Symbol:     symbol,
		Candles:    make(map[string][]market.Candle, len(Timeframes)),
		Indicators: make(map[string]*indicator.Bundle, len(Timeframes)),
		Timestamp:  time.Now().UTC(),
	}

	g, gctx := errgroup.WithContext(ctx)
	results := make([][]market.Candle, len(Timeframes))
	for i, tf := range Timeframes {
		i, tf := i, tf
		g.Go(func() error {
			candles, err := a.source.FetchCandles(gctx, symbol, tf, a.cfg.CandleLimit)
			if err != nil {
				return fmt.Errorf("fetch %s %s candles: %w", symbol, tf, err)
			}
			results[i] = candles
			return nil
		})
	}
	g.Go(func() error {
		mctx, err := a.source.FetchContext(gctx, symbol)
		if err != nil {
			return fmt.Errorf("fetch %s context: %w", symbol, err)
		}
		pair.MarkPrice = mctx.MarkPrice
		pair.Funding = mctx.FundingRate
		pair.OpenInt = mctx.OpenInterest
		return nil
	})
	// Microstructure extras are best-effort: skipped when the limiter
	// has no free slot, and a failed fetch leaves the field empty and
	// only starves the one engine that reads it.
	g.Go(func() error {
		if !a.trySlot() {
			logger.Debugf("analysis: %s orderbook skipped, no free slot", symbol)
			return nil
		}
		book, err := a.source.FetchOrderBook(gctx, symbol, a.cfg.OrderBookTop)
		if err != nil {
			a.noteRateLimit(err)
			logger.Debugf("analysis: %s orderbook unavailable: %v", symbol, err)
			return nil
		}
		pair.OrderBook = &book
		return nil
	})
	g.Go(func() error {
		if !a.trySlot() {
			logger.Debugf("analysis: %s long/short ratio skipped, no free slot", symbol)
			return nil
		}
		points, err := a.source.FetchLongShortRatio(gctx, symbol, "1h", 2)
		if err != nil {
			a.noteRateLimit(err)
			logger.Debugf("analysis: %s long/short ratio unavailable: %v", symbol, err)
			return nil
		}
		pair.LongShort = points
		return nil
	})
	g.Go(func() error {
		if !a.trySlot() {
			logger.Debugf("analysis: %s open-interest history skipped, no free slot", symbol)
			return nil
		}
		points, err := a.source.FetchOpenInterestHist(gctx, symbol, "1h", 4)
		if err != nil {
			a.noteRateLimit(err)
			logger.Debugf("analysis: %s open-interest history unavailable: %v", symbol, err)
			return nil
		}
		pair.OIHistory = points
		return nil
	})
	if err := g.Wait(); err != nil {
		a.noteRateLimit(err)
		return nil, err
	}

	for i, tf := range Timeframes {
		pair.Candles[tf] = results[i]
		pair.Indicators[tf] = indicator.Compute(results[i])
	}
	pair.Regime = regime.Classify(pair.Bundle(TFCanonical), pair.MarkPrice, a.cfg.Regime)
	return pair, nil
}

func (a *Analyzer) trySlot() bool {
	return a.limiter == nil || a.limiter.TrySlot()
}

// noteRateLimit opens the shared cooldown window when the venue pushed
// back on a request.
func (a *Analyzer) noteRateLimit(err error) {
	if a.limiter != nil && errors.Is(err, market.ErrRateLimited) {
		a.limiter.Cooldown(ratelimit.DefaultCooldown)
	}
}

// Run processes symbols strictly sequentially. The upstream meters by
// request weight, and a failed or slow instrument must never take the
// rest of the batch with it.
func (a *Analyzer) Run(ctx context.Context, symbols []string) []*Pair {
	out := make([]*Pair, 0, len(symbols))
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			logger.Warnf("analysis: batch aborted before %s: %v", symbol, ctx.Err())
			break
		}
		pair, err := a.AnalyzePair(ctx, symbol)
		if err != nil {
			logger.Warnf("analysis: skipping %s this cycle: %v", symbol, err)
			continue
		}
		out = append(out, pair)
	}
	return out
}
