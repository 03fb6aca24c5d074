package analyst

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"peregrine/internal/analysis"
	"peregrine/internal/indicator"
	"peregrine/internal/market"
	"peregrine/internal/regime"
)

func TestBuildPromptRendersSnapshot(t *testing.T) {
	rsi := 61.5
	pair := &analysis.Pair{
		Symbol:    "ETHUSDT",
		Regime:    regime.Trending,
		MarkPrice: 3200.5,
		Indicators: map[string]*indicator.Bundle{
			analysis.TFCanonical: {RSI: &rsi},
		},
		Candles: map[string][]market.Candle{
			analysis.TFCanonical: {
				{OpenTime: 1740000000000, Open: 3190, High: 3210, Low: 3185, Close: 3200, Volume: 120.5},
			},
		},
	}

	prompt := buildPrompt(pair, 24)
	assert.Contains(t, prompt, "Instrument: ETHUSDT")
	assert.Contains(t, prompt, "Regime: trending")
	assert.Contains(t, prompt, "RSI: 61.500000")
	// Nil indicator fields render as n/a, never as zero.
	assert.Contains(t, prompt, "MACD: n/a")
	// Timeframes without data are still labeled.
	assert.Contains(t, prompt, "[15m]\nno data")
	assert.Contains(t, prompt, "Recent 1h candles")
}

func TestBuildPromptTruncatesRecentBars(t *testing.T) {
	candles := make([]market.Candle, 100)
	for i := range candles {
		candles[i] = market.Candle{OpenTime: int64(i) * 3600000, Close: float64(i)}
	}
	pair := &analysis.Pair{
		Symbol:  "BTCUSDT",
		Candles: map[string][]market.Candle{analysis.TFCanonical: candles},
	}

	short := buildPrompt(pair, 5)
	long := buildPrompt(pair, 50)
	assert.Less(t, len(short), len(long))
}
