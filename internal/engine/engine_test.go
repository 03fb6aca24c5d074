package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peregrine/internal/analysis"
	"peregrine/internal/decision"
	"peregrine/internal/risk"
)

type scriptedEngine struct {
	name      string
	decisions map[string]*decision.Decision
	errs      map[string]error
}

func (e scriptedEngine) Name() string { return e.name }

func (e scriptedEngine) Evaluate(_ context.Context, pair *analysis.Pair) (*decision.Decision, error) {
	if err := e.errs[pair.Symbol]; err != nil {
		return nil, err
	}
	return e.decisions[pair.Symbol], nil
}

func testSizing() *Sizing {
	return &Sizing{
		Sizer:   risk.NewSizer(risk.SizerConfig{}),
		Balance: func() float64 { return 10000 },
	}
}

func longDecision(symbol string) *decision.Decision {
	return &decision.Decision{
		Symbol: symbol, Direction: decision.Long,
		EntryPrice: 100, StopLoss: 95, TakeProfit: 110,
		Confidence: 70,
	}
}

func pairs(symbols ...string) []*analysis.Pair {
	out := make([]*analysis.Pair, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, &analysis.Pair{Symbol: s})
	}
	return out
}

func TestRunBatchSizesAndStamps(t *testing.T) {
	eng := scriptedEngine{
		name:      "test_engine",
		decisions: map[string]*decision.Decision{"BTCUSDT": longDecision("BTCUSDT")},
	}
	out := RunBatch(context.Background(), eng, pairs("BTCUSDT"), testSizing())
	require.Len(t, out, 1)
	assert.Equal(t, "test_engine", out[0].Engine)
	assert.Greater(t, out[0].SizeUSD, 0.0)
	assert.False(t, out[0].Timestamp.IsZero())
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	eng := scriptedEngine{
		name: "test_engine",
		decisions: map[string]*decision.Decision{
			"ETHUSDT": longDecision("ETHUSDT"),
		},
		errs: map[string]error{"BTCUSDT": fmt.Errorf("fetch failed")},
	}
	out := RunBatch(context.Background(), eng, pairs("BTCUSDT", "ETHUSDT", "SOLUSDT"), testSizing())
	require.Len(t, out, 1)
	assert.Equal(t, "ETHUSDT", out[0].Symbol)
}

func TestRunBatchDropsMalformedDecisions(t *testing.T) {
	bad := longDecision("BTCUSDT")
	bad.StopLoss = 120 // stop above entry on a long
	eng := scriptedEngine{
		name:      "test_engine",
		decisions: map[string]*decision.Decision{"BTCUSDT": bad},
	}
	out := RunBatch(context.Background(), eng, pairs("BTCUSDT"), testSizing())
	assert.Empty(t, out)
}

func TestRunBatchKeepsFlatWithZeroSize(t *testing.T) {
	flat := &decision.Decision{Symbol: "BTCUSDT", Direction: decision.Flat, Confidence: 30}
	eng := scriptedEngine{
		name:      "test_engine",
		decisions: map[string]*decision.Decision{"BTCUSDT": flat},
	}
	out := RunBatch(context.Background(), eng, pairs("BTCUSDT"), testSizing())
	require.Len(t, out, 1)
	assert.Equal(t, decision.Flat, out[0].Direction)
	assert.Zero(t, out[0].SizeUSD)
}

func TestRunBatchDropsUnsizableDecisions(t *testing.T) {
	weak := longDecision("BTCUSDT")
	weak.Confidence = 50 // zero edge, sizer abstains
	eng := scriptedEngine{
		name:      "test_engine",
		decisions: map[string]*decision.Decision{"BTCUSDT": weak},
	}
	out := RunBatch(context.Background(), eng, pairs("BTCUSDT"), testSizing())
	assert.Empty(t, out)
}

func TestRunBatchStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	eng := scriptedEngine{
		name:      "test_engine",
		decisions: map[string]*decision.Decision{"BTCUSDT": longDecision("BTCUSDT")},
	}
	out := RunBatch(ctx, eng, pairs("BTCUSDT"), testSizing())
	assert.Empty(t, out)
}

func TestSizingApplyNilCases(t *testing.T) {
	var s *Sizing
	assert.False(t, s.Apply(longDecision("BTCUSDT")))
	assert.False(t, testSizing().Apply(nil))

	// A nil sizing still accepts flat decisions.
	flat := &decision.Decision{Direction: decision.Flat}
	assert.True(t, s.Apply(flat))
}
