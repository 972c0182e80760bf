package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeEmptyLedger(t *testing.T) {
	m := Compute([]float64{100, 100, 100}, nil)
	for _, name := range MetricNames {
		assert.Zero(t, m[name], name)
	}
}

func TestComputeKnownLedger(t *testing.T) {
	equity := []float64{100, 110, 104, 104}
	pnls := []float64{10, -6}
	m := Compute(equity, pnls)

	assert.Equal(t, 2.0, m["total_trades"])
	assert.Equal(t, 1.0, m["winning_trades"])
	assert.Equal(t, 1.0, m["losing_trades"])
	assert.Equal(t, 50.0, m["win_rate"])
	assert.Equal(t, 4.0, m["total_pnl"])
	assert.Equal(t, 10.0, m["avg_win"])
	assert.Equal(t, -6.0, m["avg_loss"])
	assert.InDelta(t, 10.0/6.0, m["profit_factor"], 1e-9)
	assert.InDelta(t, -5.4545, m["max_drawdown"], 1e-3) // 110 -> 104
	assert.Equal(t, 104.0, m["final_equity"])
	assert.Equal(t, 4.0, m["roi"])
}

func TestComputeAllWinners(t *testing.T) {
	m := Compute([]float64{100, 105, 110}, []float64{5, 5})
	assert.Equal(t, 100.0, m["win_rate"])
	// No losers means the ratio is undefined; reported as zero.
	assert.Zero(t, m["profit_factor"])
	assert.Zero(t, m["avg_loss"])
	assert.Zero(t, m["max_drawdown"])
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"monotonic rise", []float64{100, 110, 120}, 0},
		{"single dip", []float64{100, 80, 120}, -20},
		{"deepest of two", []float64{100, 90, 120, 60}, -50},
		{"flat", []float64{100, 100}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MaxDrawdown(tt.equity), 1e-9)
		})
	}
}

func TestSharpeFlatCurve(t *testing.T) {
	m := Compute([]float64{100, 100, 100, 100}, []float64{0})
	assert.Zero(t, m["sharpe_ratio"])
}
