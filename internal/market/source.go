package market

import (
	"context"
	"errors"
)

// ErrRateLimited marks an upstream request-weight rejection. Sources
// wrap their venue-specific throttle errors with it so pacing layers
// can back off without knowing the venue.
var ErrRateLimited = errors.New("rate limited by upstream")

// Context is the point-in-time state of one perpetual instrument:
// mark price, predicted funding rate and total open interest.
type Context struct {
	Symbol       string  `json:"symbol"`
	MarkPrice    float64 `json:"mark_price"`
	FundingRate  float64 `json:"funding_rate"`
	OpenInterest float64 `json:"open_interest"`
	Timestamp    int64   `json:"timestamp"`
}

// OrderBook is a depth snapshot reduced to the aggregate quantity on
// each side plus the touch prices.
type OrderBook struct {
	Symbol   string  `json:"symbol"`
	BidDepth float64 `json:"bid_depth"`
	AskDepth float64 `json:"ask_depth"`
	BestBid  float64 `json:"best_bid"`
	BestAsk  float64 `json:"best_ask"`
}

// Spread returns the relative bid/ask spread, 0 when the book is empty.
func (b OrderBook) Spread() float64 {
	if b.BestBid <= 0 || b.BestAsk <= 0 {
		return 0
	}
	mid := (b.BestBid + b.BestAsk) / 2
	if mid <= 0 {
		return 0
	}
	return (b.BestAsk - b.BestBid) / mid
}

// LongShortRatioPoint is one sample of the exchange's top-trader
// long/short account ratio.
type LongShortRatioPoint struct {
	Timestamp int64   `json:"timestamp"`
	Ratio     float64 `json:"ratio"`
	Long      float64 `json:"long"`
	Short     float64 `json:"short"`
}

// OpenInterestPoint is one historical open-interest sample.
type OpenInterestPoint struct {
	Timestamp    int64   `json:"timestamp"`
	OpenInterest float64 `json:"open_interest"`
}

// Source is the read-only market-data venue the decision pipeline runs
// against. All calls are single snapshots; pacing is the caller's job.
type Source interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)

	FetchContext(ctx context.Context, symbol string) (Context, error)

	FetchOrderBook(ctx context.Context, symbol string, limit int) (OrderBook, error)

	FetchLongShortRatio(ctx context.Context, symbol, period string, limit int) ([]LongShortRatioPoint, error)

	FetchOpenInterestHist(ctx context.Context, symbol, period string, limit int) ([]OpenInterestPoint, error)
}
