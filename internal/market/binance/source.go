package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"peregrine/internal/market"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const maxCandleLimit = 1500

// Source implements market.Source against the Binance USD-M futures
// REST API. Read-only; no keys required.
type Source struct {
	cfg    Config
	client *futures.Client
}

func New(cfg Config) *Source {
	final := cfg.withDefaults()
	client := futures.NewClient("", "")
	client.BaseURL = final.RESTBaseURL
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Source{cfg: final, client: client}
}

func (s *Source) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	symbol = cleanSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > maxCandleLimit {
		limit = maxCandleLimit
	}
	kls, err := s.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	return dropUnclosed(out), nil
}

// FetchContext combines the premium index (mark price + predicted
// funding) with the current open interest.
func (s *Source) FetchContext(ctx context.Context, symbol string) (market.Context, error) {
	symbol = cleanSymbol(symbol)
	if symbol == "" {
		return market.Context{}, fmt.Errorf("symbol is required")
	}
	res, err := s.client.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return market.Context{}, wrapErr(err)
	}
	out := market.Context{Symbol: symbol, Timestamp: time.Now().UnixMilli()}
	found := false
	for _, entry := range res {
		if entry == nil {
			continue
		}
		if strings.EqualFold(entry.Symbol, symbol) {
			out.MarkPrice = parseFloat(entry.MarkPrice)
			out.FundingRate = parseFloat(entry.LastFundingRate)
			found = true
			break
		}
	}
	if !found {
		return market.Context{}, fmt.Errorf("premium index not available for %s", symbol)
	}
	oi, err := s.client.NewGetOpenInterestService().Symbol(symbol).Do(ctx)
	if err != nil {
		return market.Context{}, wrapErr(err)
	}
	if oi != nil {
		out.OpenInterest = parseFloat(oi.OpenInterest)
	}
	return out, nil
}

func (s *Source) FetchOrderBook(ctx context.Context, symbol string, limit int) (market.OrderBook, error) {
	symbol = cleanSymbol(symbol)
	if symbol == "" {
		return market.OrderBook{}, fmt.Errorf("symbol is required")
	}
	if limit <= 0 {
		limit = 20
	}
	res, err := s.client.NewDepthService().Symbol(symbol).Limit(limit).Do(ctx)
	if err != nil {
		return market.OrderBook{}, wrapErr(err)
	}
	book := market.OrderBook{Symbol: symbol}
	for i, bid := range res.Bids {
		price := parseFloat(bid.Price)
		qty := parseFloat(bid.Quantity)
		if i == 0 {
			book.BestBid = price
		}
		book.BidDepth += qty * price
	}
	for i, ask := range res.Asks {
		price := parseFloat(ask.Price)
		qty := parseFloat(ask.Quantity)
		if i == 0 {
			book.BestAsk = price
		}
		book.AskDepth += qty * price
	}
	return book, nil
}

func (s *Source) FetchLongShortRatio(ctx context.Context, symbol, period string, limit int) ([]market.LongShortRatioPoint, error) {
	symbol = cleanSymbol(symbol)
	period = strings.ToLower(strings.TrimSpace(period))
	if symbol == "" || period == "" {
		return nil, fmt.Errorf("symbol and period are required")
	}
	if limit <= 0 {
		limit = 30
	}
	if limit > 500 {
		limit = 500
	}
	raw, err := s.client.NewTopLongShortAccountRatioService().
		Symbol(symbol).
		Period(period).
		Limit(uint32(limit)).
		Do(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}
	points := make([]market.LongShortRatioPoint, 0, len(raw))
	for _, item := range raw {
		if item == nil {
			continue
		}
		points = append(points, market.LongShortRatioPoint{
			Timestamp: int64(item.Timestamp),
			Ratio:     parseFloat(item.LongShortRatio),
			Long:      parseFloat(item.LongAccount),
			Short:     parseFloat(item.ShortAccount),
		})
	}
	return points, nil
}

func (s *Source) FetchOpenInterestHist(ctx context.Context, symbol, period string, limit int) ([]market.OpenInterestPoint, error) {
	symbol = cleanSymbol(symbol)
	period = strings.ToLower(strings.TrimSpace(period))
	if symbol == "" || period == "" {
		return nil, fmt.Errorf("symbol and period are required")
	}
	if limit <= 0 {
		limit = 30
	}
	if limit > 500 {
		limit = 500
	}
	stats, err := s.client.NewOpenInterestStatisticsService().
		Symbol(symbol).
		Period(period).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}
	points := make([]market.OpenInterestPoint, 0, len(stats))
	for _, item := range stats {
		if item == nil {
			continue
		}
		points = append(points, market.OpenInterestPoint{
			Timestamp:    item.Timestamp,
			OpenInterest: parseFloat(item.SumOpenInterest),
		})
	}
	return points, nil
}

// wrapErr tags exchange throttle rejections with market.ErrRateLimited.
// Binance answers 429/418 with error code -1003; -1015 is the order
// rate limit.
func wrapErr(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) && (apiErr.Code == -1003 || apiErr.Code == -1015) {
		return fmt.Errorf("%w: %v", market.ErrRateLimited, err)
	}
	return err
}

// cleanSymbol normalizes "eth/usdt" style input to the exchange form.
func cleanSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return strings.ReplaceAll(symbol, "/", "")
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}

// dropUnclosed removes a trailing candle whose close time is still in
// the future; Binance returns the forming bar as the last element.
func dropUnclosed(candles []market.Candle) []market.Candle {
	if len(candles) == 0 {
		return candles
	}
	last := candles[len(candles)-1]
	if last.CloseTime > time.Now().UnixMilli() {
		return candles[:len(candles)-1]
	}
	return candles
}
