package market

import (
	"context"
	"sync"
	"time"
)

// DailyCache memoizes daily candle series per symbol for one wall-clock
// hour. Every trend engine shares the same daily series, so without the
// cache each cycle would multiply daily fetches by the engine count.
type DailyCache struct {
	source Source
	limit  int

	mu      sync.Mutex
	entries map[string]dailyEntry

	nowFn func() time.Time
}

type dailyEntry struct {
	candles []Candle
	hour    time.Time
}

func NewDailyCache(source Source, limit int) *DailyCache {
	if limit <= 0 {
		limit = 60
	}
	return &DailyCache{
		source:  source,
		limit:   limit,
		entries: make(map[string]dailyEntry),
		nowFn:   time.Now,
	}
}

// Get returns the cached daily series for symbol, refetching once per
// wall-clock hour. Staleness within the hour is acceptable: daily bars
// only move materially on the daily close.
func (c *DailyCache) Get(ctx context.Context, symbol string) ([]Candle, error) {
	hour := c.nowFn().UTC().Truncate(time.Hour)

	c.mu.Lock()
	if e, ok := c.entries[symbol]; ok && e.hour.Equal(hour) {
		candles := e.candles
		c.mu.Unlock()
		return candles, nil
	}
	c.mu.Unlock()

	candles, err := c.source.FetchCandles(ctx, symbol, "1d", c.limit)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[symbol] = dailyEntry{candles: candles, hour: hour}
	c.mu.Unlock()
	return candles, nil
}

// Clear drops every cached series.
func (c *DailyCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]dailyEntry)
	c.mu.Unlock()
}
