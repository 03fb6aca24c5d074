package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"peregrine/internal/analysis"
	"peregrine/internal/decision"
	"peregrine/internal/engine/trend"
	"peregrine/internal/indicator"
	"peregrine/internal/market"
	"peregrine/internal/regime"
)

// walkSource hands every request a fresh random-walk series so the
// trend templates can pull daily history without a live venue.
type walkSource struct {
	rng *rand.Rand
}

func (s *walkSource) FetchCandles(_ context.Context, _, _ string, limit int) ([]market.Candle, error) {
	return randomWalk(s.rng, limit, 50+s.rng.Float64()*5000), nil
}

func (s *walkSource) FetchContext(context.Context, string) (market.Context, error) {
	return market.Context{}, nil
}

func (s *walkSource) FetchOrderBook(context.Context, string, int) (market.OrderBook, error) {
	return market.OrderBook{}, nil
}

func (s *walkSource) FetchLongShortRatio(context.Context, string, string, int) ([]market.LongShortRatioPoint, error) {
	return nil, nil
}

func (s *walkSource) FetchOpenInterestHist(context.Context, string, string, int) ([]market.OpenInterestPoint, error) {
	return nil, nil
}

func randomWalk(rng *rand.Rand, n int, base float64) []market.Candle {
	out := make([]market.Candle, n)
	price := base
	for i := range out {
		open := price
		close := open * (1 + (rng.Float64()-0.5)*0.04)
		out[i] = market.Candle{
			OpenTime:  int64(i) * 3_600_000,
			CloseTime: int64(i+1)*3_600_000 - 1,
			Open:      open,
			High:      math.Max(open, close) * (1 + rng.Float64()*0.01),
			Low:       math.Min(open, close) * (1 - rng.Float64()*0.01),
			Close:     close,
			Volume:    10 + rng.Float64()*500,
			Trades:    100,
		}
		price = close
	}
	return out
}

func randomPair(rng *rand.Rand, symbol string) *analysis.Pair {
	base := 50 + rng.Float64()*5000
	candles := make(map[string][]market.Candle, len(analysis.Timeframes))
	bundles := make(map[string]*indicator.Bundle, len(analysis.Timeframes))
	for _, tf := range analysis.Timeframes {
		series := randomWalk(rng, 120, base)
		candles[tf] = series
		bundles[tf] = indicator.Compute(series)
	}
	last := candles[analysis.TFCanonical][len(candles[analysis.TFCanonical])-1].Close
	regimes := []regime.Regime{regime.Trending, regime.Ranging, regime.Volatile}

	pair := &analysis.Pair{
		Symbol:     symbol,
		Candles:    candles,
		Indicators: bundles,
		Regime:     regimes[rng.Intn(len(regimes))],
		MarkPrice:  last * (1 + (rng.Float64()-0.5)*0.01),
		Funding:    (rng.Float64() - 0.5) * 0.001,
		OpenInt:    rng.Float64() * 1e6,
	}
	if rng.Intn(4) > 0 {
		spread := pair.MarkPrice * 0.0002
		pair.OrderBook = &market.OrderBook{
			Symbol:   symbol,
			BestBid:  pair.MarkPrice - spread,
			BestAsk:  pair.MarkPrice + spread,
			BidDepth: 1000 + rng.Float64()*100000,
			AskDepth: 1000 + rng.Float64()*100000,
		}
		pair.LongShort = []market.LongShortRatioPoint{{Ratio: 0.4 + rng.Float64()*2}}
		pair.OIHistory = []market.OpenInterestPoint{
			{OpenInterest: pair.OpenInt * (0.9 + rng.Float64()*0.2)},
			{OpenInterest: pair.OpenInt},
		}
	}
	return pair
}

// Whatever the tape looks like, an engine either abstains or emits a
// structurally valid decision with the stop and target on the correct
// sides of the entry.
func TestEnginesEmitOnlyValidDecisions(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	daily := market.NewDailyCache(&walkSource{rng: rng}, 60)

	engines := []Engine{
		NewRule(RuleConfig{}),
		NewVWAP(VWAPConfig{}),
		NewMicro(MicroConfig{}),
		NewSqueeze(SqueezeConfig{}),
	}
	for _, strat := range []trend.Strategy{
		trend.HMA{},
		trend.Ichimoku{},
		trend.MACDCross{},
		trend.Supertrend{},
		trend.TEMA{},
		trend.TRIX{},
		trend.Squeeze{},
	} {
		engines = append(engines, trend.NewTemplate(strat, daily, nil, trend.Config{}))
	}

	for i := 0; i < 200; i++ {
		pair := randomPair(rng, fmt.Sprintf("P%dUSDT", i))
		for _, eng := range engines {
			d, err := eng.Evaluate(context.Background(), pair)
			require.NoError(t, err, "%s on %s", eng.Name(), pair.Symbol)
			if d == nil {
				continue
			}
			require.NoError(t, d.Validate(), "%s on %s", eng.Name(), pair.Symbol)
			switch d.Direction {
			case decision.Long:
				require.Less(t, d.StopLoss, d.EntryPrice, "%s on %s", eng.Name(), pair.Symbol)
				require.Greater(t, d.TakeProfit, d.EntryPrice, "%s on %s", eng.Name(), pair.Symbol)
			case decision.Short:
				require.Greater(t, d.StopLoss, d.EntryPrice, "%s on %s", eng.Name(), pair.Symbol)
				require.Less(t, d.TakeProfit, d.EntryPrice, "%s on %s", eng.Name(), pair.Symbol)
			}
		}
	}
}
