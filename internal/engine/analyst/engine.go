// Package analyst delegates the trading judgment for one instrument to
// an external language model, with the engine contract and safety
// rails kept entirely on this side of the wire.
package analyst

import (
	"context"
	"fmt"
	"time"

	"peregrine/internal/analysis"
	"peregrine/internal/decision"
	"peregrine/internal/logger"
	"peregrine/internal/regime"
)

// Completer is the transport; satisfied by ai.Client.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Config struct {
	CacheTTL   time.Duration
	RecentBars int
}

func (c Config) withDefaults() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 3 * time.Hour
	}
	if c.RecentBars <= 0 {
		c.RecentBars = 24
	}
	return c
}

type Engine struct {
	client Completer
	cache  *Cache
	cfg    Config
}

func New(client Completer, cfg Config) *Engine {
	final := cfg.withDefaults()
	return &Engine{
		client: client,
		cache:  NewCache(final.CacheTTL),
		cfg:    final,
	}
}

// Cache exposes the decision cache for operator tooling (manual clear).
func (e *Engine) Cache() *Cache { return e.cache }

func (e *Engine) Name() string { return "machine_analyst" }

func (e *Engine) Evaluate(ctx context.Context, pair *analysis.Pair) (*decision.Decision, error) {
	if cached, ok := e.cache.Get(pair.Symbol); ok {
		logger.Debugf("analyst: %s served from cache", pair.Symbol)
		return cloneDecision(cached), nil
	}

	raw, err := e.client.Complete(ctx, systemPrompt, buildPrompt(pair, e.cfg.RecentBars))
	if err != nil {
		return nil, fmt.Errorf("analyst call: %w", err)
	}
	d, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("analyst response rejected: %w", err)
	}

	// Hard safety override: chaotic tape voids whatever the model
	// proposed, regardless of how confident it sounded.
	if pair.Regime == regime.Volatile && d.Direction != decision.Flat {
		d = &decision.Decision{
			Direction:  decision.Flat,
			Confidence: d.Confidence,
			Reasoning:  "volatile regime override: " + d.Reasoning,
		}
	}

	d.Symbol = pair.Symbol
	d.Regime = pair.Regime
	d.Timestamp = time.Now().UTC()
	e.cache.Put(pair.Symbol, d)
	return cloneDecision(d), nil
}

// cloneDecision keeps the cached copy immutable while the batch runner
// stamps engine metadata onto the returned one.
func cloneDecision(d *decision.Decision) *decision.Decision {
	if d == nil {
		return nil
	}
	copied := *d
	return &copied
}
