// Package metrics derives performance statistics from an equity curve and a
// ledger of realized trade P&Ls. Compute is a pure function: it never fails
// and an empty ledger yields an all-zero mapping.
package metrics

import "math"

// MetricNames lists every key Compute returns, in reporting order.
var MetricNames = []string{
	"total_trades",
	"winning_trades",
	"losing_trades",
	"win_rate",
	"total_pnl",
	"avg_win",
	"avg_loss",
	"profit_factor",
	"max_drawdown",
	"sharpe_ratio",
	"final_equity",
	"roi",
}

// Compute calculates the metric set from a per-bar equity curve and the
// realized P&L of each closed trade.
func Compute(equity []float64, pnls []float64) map[string]float64 {
	m := Empty()
	if len(pnls) == 0 || len(equity) == 0 {
		return m
	}

	var wins, losses int
	var winSum, lossSum, total float64
	for _, pnl := range pnls {
		total += pnl
		if pnl > 0 {
			wins++
			winSum += pnl
		} else if pnl < 0 {
			losses++
			lossSum += pnl
		}
	}

	m["total_trades"] = float64(len(pnls))
	m["winning_trades"] = float64(wins)
	m["losing_trades"] = float64(losses)
	m["win_rate"] = float64(wins) / float64(len(pnls)) * 100
	m["total_pnl"] = total
	if wins > 0 {
		m["avg_win"] = winSum / float64(wins)
	}
	if losses > 0 {
		m["avg_loss"] = lossSum / float64(losses)
	}
	if losses > 0 && lossSum != 0 {
		m["profit_factor"] = math.Abs(winSum / lossSum)
	}
	m["max_drawdown"] = MaxDrawdown(equity)
	m["sharpe_ratio"] = sharpe(equity)
	m["final_equity"] = equity[len(equity)-1]
	if equity[0] != 0 {
		m["roi"] = (equity[len(equity)-1] - equity[0]) / equity[0] * 100
	}
	return m
}

// Empty returns the all-zero metric mapping.
func Empty() map[string]float64 {
	m := make(map[string]float64, len(MetricNames))
	for _, name := range MetricNames {
		m[name] = 0
	}
	return m
}

// MaxDrawdown returns the deepest percentage decline of equity from its
// running peak, as a negative number (e.g. -25 for a 25% drawdown).
func MaxDrawdown(equity []float64) float64 {
	var worst float64
	runningMax := math.Inf(-1)
	for _, eq := range equity {
		if eq > runningMax {
			runningMax = eq
		}
		if runningMax == 0 {
			continue
		}
		dd := (eq - runningMax) / runningMax * 100
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// sharpe annualizes mean/std of per-bar equity returns with sqrt(252).
// Sample standard deviation, zero when the curve is flat.
func sharpe(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		returns = append(returns, (equity[i]-equity[i-1])/equity[i-1])
	}
	if len(returns) < 2 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}
