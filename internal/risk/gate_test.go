package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peregrine/internal/regime"
)

type stubCounter struct{ open int }

func (s stubCounter) OpenPositionCount() int { return s.open }

func TestGateAllowsCleanDecision(t *testing.T) {
	g := NewGate(GateConfig{}, nil, stubCounter{open: 0})
	v := g.Check(3, 95.0, regime.Trending)
	assert.True(t, v.Allowed)
	assert.Empty(t, v.Reason)
}

func TestGateKillSwitchBeatsEverything(t *testing.T) {
	g := NewGate(GateConfig{}, nil, stubCounter{open: 99})
	g.SetKillSwitch(true)
	// Even with a volatile regime and every other gate tripped, the
	// kill switch is the reason reported.
	v := g.Check(999, -1, regime.Volatile)
	require.False(t, v.Allowed)
	assert.Equal(t, "kill switch active", v.Reason)

	g.SetKillSwitch(false)
	v = g.Check(3, 95.0, regime.Trending)
	assert.True(t, v.Allowed)
}

func TestGateOrdering(t *testing.T) {
	dd := NewDrawdownWindow()
	dd.RecordLoss(600)
	tests := []struct {
		name     string
		gate     *Gate
		leverage int
		stop     float64
		reg      regime.Regime
		want     string
	}{
		{"volatile before drawdown", NewGate(GateConfig{}, dd, stubCounter{}), 3, 95, regime.Volatile, "volatile regime, no new risk"},
		{"drawdown before positions", NewGate(GateConfig{DailyDrawdownUSD: 500}, dd, stubCounter{open: 99}), 3, 95, regime.Trending, "24h drawdown limit reached (600.00 >= 500.00 USD)"},
		{"positions before leverage", NewGate(GateConfig{MaxPositions: 3}, nil, stubCounter{open: 3}), 999, 95, regime.Trending, "max concurrent positions reached (3/3)"},
		{"leverage before stop", NewGate(GateConfig{MaxLeverage: 10}, nil, stubCounter{}), 11, 0, regime.Trending, "leverage 11x exceeds cap 10x"},
		{"stop sanity last", NewGate(GateConfig{}, nil, stubCounter{}), 3, 0, regime.Ranging, "missing or invalid stop-loss"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.gate.Check(tt.leverage, tt.stop, tt.reg)
			require.False(t, v.Allowed)
			assert.Equal(t, tt.want, v.Reason)
		})
	}
}

func TestGateDrawdownRecovery(t *testing.T) {
	dd := NewDrawdownWindow()
	now := time.Now()
	dd.nowFn = func() time.Time { return now }
	dd.RecordLoss(600)

	g := NewGate(GateConfig{DailyDrawdownUSD: 500}, dd, stubCounter{})
	assert.False(t, g.Check(3, 95, regime.Trending).Allowed)

	// 25 hours later the window has slid past the loss.
	now = now.Add(25 * time.Hour)
	assert.True(t, g.Check(3, 95, regime.Trending).Allowed)
}
