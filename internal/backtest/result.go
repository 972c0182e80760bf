package backtest

import (
	"time"

	"github.com/amirphl/strategy-lab/internal/strategy"
)

// Trade directions.
const (
	DirLong  = "long"
	DirShort = "short"
)

// Exit reasons.
const (
	ExitStopLoss   = "stop_loss"
	ExitTakeProfit = "take_profit"
)

// Trade is a closed position. Immutable once appended to the ledger.
type Trade struct {
	EntryBar   int       `json:"entry_bar"`
	ExitBar    int       `json:"exit_bar"`
	Direction  string    `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	PnL        float64   `json:"pnl"`
	ExitReason string    `json:"exit_reason"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
}

// Result holds everything a single backtest run produced.
type Result struct {
	EquityCurve []float64          `json:"equity_curve"`
	Trades      []Trade            `json:"trades"`
	Metrics     map[string]float64 `json:"metrics"`
	Config      Config             `json:"config"`
	Params      strategy.Params    `json:"params,omitempty"`
}

// PnLs extracts the realized P&L ledger in trade order.
func (r *Result) PnLs() []float64 {
	pnls := make([]float64, len(r.Trades))
	for i, t := range r.Trades {
		pnls[i] = t.PnL
	}
	return pnls
}
