package strategy

import (
	"fmt"
	"math"

	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/indicator"
)

// maCrossFilter gates entries on the fast/slow moving-average relationship.
func maCrossFilter() FilterComponent {
	return FilterComponent{
		Name:        "ma_cross",
		DisplayName: "Moving Average Cross Filter",
		Description: "Bullish mode passes only when the fast MA is above the slow MA; bearish mode the reverse",
		Params: []ParamSpec{
			{Name: "mode", Kind: KindChoice, Options: []string{"no_filter", "bullish", "bearish"}, Default: "no_filter",
				Description: "trend direction the filter enforces"},
			{Name: "fast_period", Kind: KindIntRange, Min: 2, Max: 200, Step: 1, Default: 50, Optimizable: true,
				Description: "fast MA period"},
			{Name: "slow_period", Kind: KindIntRange, Min: 10, Max: 400, Step: 1, Default: 200, Optimizable: true,
				Description: "slow MA period"},
		},
		Apply: applyMACross,
	}
}

func applyMACross(candles []candle.Candle, frame *Frame, params Params) error {
	mode := params.Str("mode", "no_filter")
	fast := params.Int("fast_period", 50)
	slow := params.Int("slow_period", 200)
	if fast <= 0 || slow <= 0 {
		return fmt.Errorf("MA periods must be positive, got fast=%d slow=%d", fast, slow)
	}

	closes := candle.Closes(candles)
	smaFast := indicator.CalculateSMA(closes, fast)
	smaSlow := indicator.CalculateSMA(closes, slow)
	if smaFast != nil {
		frame.SetIndicator("sma_fast", smaFast)
	}
	if smaSlow != nil {
		frame.SetIndicator("sma_slow", smaSlow)
	}
	if mode == "no_filter" {
		return nil
	}

	ok := make([]bool, len(candles))
	for i := range candles {
		// Warmup bars (nil or NaN MA) fail closed.
		if smaFast == nil || smaSlow == nil || math.IsNaN(smaFast[i]) || math.IsNaN(smaSlow[i]) {
			continue
		}
		switch mode {
		case "bullish":
			ok[i] = smaFast[i] > smaSlow[i]
		case "bearish":
			ok[i] = smaFast[i] < smaSlow[i]
		}
	}
	return frame.Restrict(ok)
}

// rsiFilter gates entries on RSI overbought/oversold zones.
func rsiFilter() FilterComponent {
	return FilterComponent{
		Name:        "rsi",
		DisplayName: "RSI Overbought/Oversold Filter",
		Description: "Confirmation mode trades only in extreme RSI zones; divergence mode trades only outside them",
		Params: []ParamSpec{
			{Name: "period", Kind: KindIntRange, Min: 5, Max: 30, Step: 1, Default: 14, Optimizable: true,
				Description: "RSI calculation period"},
			{Name: "oversold", Kind: KindIntRange, Min: 10, Max: 40, Step: 5, Default: 30, Optimizable: true,
				Description: "RSI below this favors longs"},
			{Name: "overbought", Kind: KindIntRange, Min: 60, Max: 90, Step: 5, Default: 70, Optimizable: true,
				Description: "RSI above this favors shorts"},
			{Name: "mode", Kind: KindChoice, Options: []string{"no_filter", "confirmation", "divergence"}, Default: "no_filter",
				Description: "how the RSI zones gate entries"},
		},
		Apply: applyRSI,
	}
}

func applyRSI(candles []candle.Candle, frame *Frame, params Params) error {
	period := params.Int("period", 14)
	oversold := float64(params.Int("oversold", 30))
	overbought := float64(params.Int("overbought", 70))
	mode := params.Str("mode", "no_filter")
	if period <= 0 {
		return fmt.Errorf("RSI period must be positive, got %d", period)
	}

	rsi := indicator.CalculateRSI(candle.Closes(candles), period)
	if rsi != nil {
		frame.SetIndicator("rsi", rsi)
	}
	if mode == "no_filter" {
		return nil
	}

	ok := make([]bool, len(candles))
	for i := range candles {
		undefined := rsi == nil || math.IsNaN(rsi[i])
		switch mode {
		case "confirmation":
			// Trade only in extreme zones; warmup fails closed.
			ok[i] = !undefined && (rsi[i] < oversold || rsi[i] > overbought)
		case "divergence":
			// Trade only outside extreme zones; warmup passes since the
			// neutral zone is the default assumption.
			ok[i] = undefined || (rsi[i] >= oversold && rsi[i] <= overbought)
		}
	}
	return frame.Restrict(ok)
}
