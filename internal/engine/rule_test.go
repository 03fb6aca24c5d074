package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peregrine/internal/analysis"
	"peregrine/internal/decision"
	"peregrine/internal/indicator"
	"peregrine/internal/regime"
)

func fptr(v float64) *float64 { return &v }

func rulePair(reg regime.Regime, b *indicator.Bundle, mark float64) *analysis.Pair {
	return &analysis.Pair{
		Symbol:     "BTCUSDT",
		Regime:     reg,
		MarkPrice:  mark,
		Indicators: map[string]*indicator.Bundle{analysis.TFCanonical: b},
	}
}

func trendingBundle(rsi, hist, macd, signal, atr, adx float64) *indicator.Bundle {
	return &indicator.Bundle{
		RSI: fptr(rsi), MACDHist: fptr(hist), MACD: fptr(macd), MACDSignal: fptr(signal),
		ATR: fptr(atr), ADX: fptr(adx),
	}
}

func TestRuleTrendingPullbackLong(t *testing.T) {
	r := NewRule(RuleConfig{})
	pair := rulePair(regime.Trending, trendingBundle(50, 0.5, 1.0, 0.5, 2, 30), 100)

	d, err := r.Evaluate(context.Background(), pair)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, decision.Long, d.Direction)
	assert.InDelta(t, 97, d.StopLoss, 1e-9)   // entry - 1.5*ATR
	assert.InDelta(t, 106, d.TakeProfit, 1e-9) // 2:1 reward
	assert.InDelta(t, 63, d.Confidence, 1e-9)  // base 58 + ADX>=25 boost
}

func TestRuleTrendingPullbackShort(t *testing.T) {
	r := NewRule(RuleConfig{})
	pair := rulePair(regime.Trending, trendingBundle(45, -0.5, -1.0, -0.5, 2, 40), 100)

	d, err := r.Evaluate(context.Background(), pair)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, decision.Short, d.Direction)
	assert.InDelta(t, 68, d.Confidence, 1e-9) // base 58 + ADX>=35 boost
	assert.Less(t, d.TakeProfit, d.EntryPrice)
	assert.Greater(t, d.StopLoss, d.EntryPrice)
}

func TestRuleTrendingAbstains(t *testing.T) {
	r := NewRule(RuleConfig{})
	tests := []struct {
		name   string
		bundle *indicator.Bundle
	}{
		{"rsi outside pullback band", trendingBundle(65, 0.5, 1.0, 0.5, 2, 30)},
		{"macd histogram disagrees with lines", trendingBundle(50, 0.5, 0.4, 0.5, 2, 30)},
		{"flat macd", trendingBundle(50, 0, 1.0, 0.5, 2, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := r.Evaluate(context.Background(), rulePair(regime.Trending, tt.bundle, 100))
			require.NoError(t, err)
			assert.Nil(t, d)
		})
	}
}

func TestRuleRangingFade(t *testing.T) {
	r := NewRule(RuleConfig{})
	b := &indicator.Bundle{
		RSI: fptr(28), MACDHist: fptr(0.1), MACD: fptr(0.1), MACDSignal: fptr(0.05),
		ATR: fptr(1), BBUpper: fptr(104), BBLower: fptr(99.8), BBWidth: fptr(0.02),
	}
	d, err := r.Evaluate(context.Background(), rulePair(regime.Ranging, b, 100))
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, decision.Long, d.Direction)
	assert.InDelta(t, 63, d.Confidence, 1e-9) // base 58 + tight bands

	// Same extreme but price nowhere near the band.
	far := *b
	far.BBLower = fptr(90)
	d, err = r.Evaluate(context.Background(), rulePair(regime.Ranging, &far, 100))
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestRuleVolatileAbstains(t *testing.T) {
	r := NewRule(RuleConfig{})
	d, err := r.Evaluate(context.Background(), rulePair(regime.Volatile, trendingBundle(50, 0.5, 1.0, 0.5, 2, 30), 100))
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestRuleIncompleteBundleAbstains(t *testing.T) {
	r := NewRule(RuleConfig{})
	d, err := r.Evaluate(context.Background(), rulePair(regime.Trending, &indicator.Bundle{RSI: fptr(50)}, 100))
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = r.Evaluate(context.Background(), rulePair(regime.Trending, nil, 100))
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestLevels(t *testing.T) {
	stop, target := levels(decision.Long, 100, 2, 2)
	assert.InDelta(t, 98, stop, 1e-9)
	assert.InDelta(t, 104, target, 1e-9)

	stop, target = levels(decision.Short, 100, 2, 1.5)
	assert.InDelta(t, 102, stop, 1e-9)
	assert.InDelta(t, 97, target, 1e-9)
}
