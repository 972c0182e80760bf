// Package backtest simulates rule-based strategies bar by bar. The engine is
// strictly sequential and deterministic: one position at a time, exits
// evaluated before entries within a bar, equity realized only when a trade
// closes.
package backtest

import (
	"math"

	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/metrics"
	"github.com/amirphl/strategy-lab/internal/strategy"
)

// Engine runs backtests with a fixed configuration.
type Engine struct {
	cfg Config
}

// New validates the configuration and returns an engine.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the normalized run configuration.
func (e *Engine) Config() Config { return e.cfg }

// position exists only while a trade is open.
type position struct {
	direction string
	entry     float64
	stop      float64
	target    float64
	qty       float64
	entryBar  int
}

// Run simulates the strategy encoded in frame over the candle series.
// Deterministic given identical inputs.
func (e *Engine) Run(candles []candle.Candle, frame *strategy.Frame) (*Result, error) {
	if err := candle.CheckSeries(candles); err != nil {
		return nil, &DataError{Reason: err.Error()}
	}
	if err := frame.CheckAlignment(len(candles)); err != nil {
		return nil, &DataError{Reason: err.Error()}
	}

	equity := make([]float64, len(candles))
	equity[0] = e.cfg.InitialCapital
	var trades []Trade
	var pos *position

	// Bar 0 has no prior bar, so the walk starts at 1.
	for i := 1; i < len(candles); i++ {
		bar := candles[i]
		// No mark-to-market: equity carries forward unless a trade closes.
		equity[i] = equity[i-1]

		// Exit evaluation always precedes entry evaluation.
		if pos != nil {
			if exitPrice, reason, hit := pos.checkExit(bar); hit {
				pnl := pos.realize(exitPrice, e.cfg.Commission)
				equity[i] = equity[i-1] + pnl
				trades = append(trades, Trade{
					EntryBar:   pos.entryBar,
					ExitBar:    i,
					Direction:  pos.direction,
					EntryPrice: pos.entry,
					ExitPrice:  exitPrice,
					Quantity:   pos.qty,
					PnL:        pnl,
					ExitReason: reason,
					EntryTime:  candles[pos.entryBar].Timestamp,
					ExitTime:   bar.Timestamp,
				})
				pos = nil
			}
		}

		// Entry only when flat, whether carried flat or closed this bar.
		if pos == nil && frame.FilterOK[i] {
			var err error
			switch {
			case frame.Long[i]:
				pos, err = e.open(DirLong, bar, i, equity[i])
			case frame.Short[i]:
				pos, err = e.open(DirShort, bar, i, equity[i])
			}
			if err != nil {
				return nil, err
			}
		}
	}

	// An open position at series end stays open; the ledger alone feeds
	// the metrics.
	result := &Result{
		EquityCurve: equity,
		Trades:      trades,
		Config:      e.cfg,
	}
	result.Metrics = metrics.Compute(equity, result.PnLs())
	return result, nil
}

// checkExit resolves a bar against the position's stop and target. When both
// levels are touched in the same bar the stop wins (conservative tie-break).
func (p *position) checkExit(bar candle.Candle) (price float64, reason string, hit bool) {
	if p.direction == DirLong {
		if bar.Low <= p.stop {
			return p.stop, ExitStopLoss, true
		}
		if p.target > 0 && bar.High >= p.target {
			return p.target, ExitTakeProfit, true
		}
	} else {
		if bar.High >= p.stop {
			return p.stop, ExitStopLoss, true
		}
		if p.target > 0 && bar.Low <= p.target {
			return p.target, ExitTakeProfit, true
		}
	}
	return 0, "", false
}

// realize computes net P&L for the fill: gross price move times signed
// quantity, minus commission for both legs.
func (p *position) realize(exitPrice, commission float64) float64 {
	signedQty := p.qty
	if p.direction == DirShort {
		signedQty = -p.qty
	}
	return (exitPrice-p.entry)*signedQty - 2*commission
}

// open builds a position from the signaling bar using worst-case breakout
// fills: longs buy the high plus slippage, shorts sell the low minus
// slippage. A zero-size result means the signal is ignored.
func (e *Engine) open(direction string, bar candle.Candle, barIdx int, currentEquity float64) (*position, error) {
	var entry, stop, target float64
	if direction == DirLong {
		entry = bar.High + e.cfg.Slippage
		stop = bar.Low - e.cfg.Slippage
		target = entry + (entry-stop)*e.cfg.RewardRisk
	} else {
		entry = bar.Low - e.cfg.Slippage
		stop = bar.High + e.cfg.Slippage
		target = entry - (stop-entry)*e.cfg.RewardRisk
	}

	qty, ok := e.positionSize(entry, stop, currentEquity)
	if !ok {
		// Degenerate stop distance: fail closed, treat as no signal.
		return nil, nil
	}
	if qty <= 0 {
		return nil, &SimulationError{Reason: "computed non-positive position size"}
	}
	return &position{
		direction: direction,
		entry:     entry,
		stop:      stop,
		target:    target,
		qty:       qty,
		entryBar:  barIdx,
	}, nil
}

// positionSize computes the trade quantity for the configured sizing mode.
// Returns ok=false when the stop distance is zero (division guard).
func (e *Engine) positionSize(entry, stop, currentEquity float64) (float64, bool) {
	if e.cfg.Sizing == SizingFixed {
		return e.cfg.FixedQty, true
	}
	dist := math.Abs(entry - stop)
	if dist == 0 {
		return 0, false
	}
	var riskMoney float64
	switch e.cfg.Sizing {
	case SizingRiskPercent:
		riskMoney = currentEquity * e.cfg.RiskPercent / 100
	case SizingRiskAmount:
		riskMoney = e.cfg.RiskAmount
	}
	qty := riskMoney / dist
	if qty < e.cfg.MinQty {
		qty = e.cfg.MinQty
	}
	return qty, true
}
