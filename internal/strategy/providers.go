package strategy

import (
	"fmt"
	"math"

	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/indicator"
)

// shakeoutComponent detects false-breakout reversals: a candle breaks the
// prior swing extreme and the next candle closes back through it, trapping
// the breakout traders.
func shakeoutComponent() Component {
	return Component{
		Name:        "shakeout",
		DisplayName: "Shake-out",
		Description: "False breakout reversal: a break of the prior extreme immediately reversed by the next candle",
		Params:      []ParamSpec{directionSpec()},
		Run:         runShakeout,
	}
}

func runShakeout(candles []candle.Candle, params Params) (*Frame, error) {
	frame := NewFrame(len(candles))
	// The pattern reads two bars back; bars 0 and 1 stay unsignaled.
	for i := 2; i < len(candles); i++ {
		prev := candles[i-1]
		ref := candles[i-2]
		cur := candles[i]

		breakDown := prev.IsBearish() && prev.Low < ref.Low
		reclaimUp := cur.IsBullish() && cur.Close > ref.Low
		frame.Long[i] = breakDown && reclaimUp

		breakUp := prev.IsBullish() && prev.High > ref.High
		reclaimDown := cur.IsBearish() && cur.Close < ref.High
		frame.Short[i] = breakUp && reclaimDown
	}
	applyDirection(frame, params.Str("direction", "both"))
	return frame, nil
}

// engulfingComponent signals when a candle's body completely engulfs the
// previous candle's body in the opposite direction.
func engulfingComponent() Component {
	return Component{
		Name:        "engulfing",
		DisplayName: "Engulfing",
		Description: "Current candle body engulfs the previous opposite-colored body",
		Params:      []ParamSpec{directionSpec()},
		Run:         runEngulfing,
	}
}

func runEngulfing(candles []candle.Candle, params Params) (*Frame, error) {
	frame := NewFrame(len(candles))
	for i := 1; i < len(candles); i++ {
		cur := candles[i]
		prev := candles[i-1]
		frame.Long[i] = cur.IsBullish() && prev.IsBearish() && engulfs(cur, prev)
		frame.Short[i] = cur.IsBearish() && prev.IsBullish() && engulfs(cur, prev)
	}
	applyDirection(frame, params.Str("direction", "both"))
	return frame, nil
}

// engulfs reports whether cur's body spans prev's body.
func engulfs(cur, prev candle.Candle) bool {
	curHigh := math.Max(cur.Open, cur.Close)
	curLow := math.Min(cur.Open, cur.Close)
	prevHigh := math.Max(prev.Open, prev.Close)
	prevLow := math.Min(prev.Open, prev.Close)
	return curHigh >= prevHigh && curLow <= prevLow
}

// climacticVolumeComponent signals when volume spikes above its moving
// average; direction follows the candle color.
func climacticVolumeComponent() Component {
	return Component{
		Name:        "climactic_volume",
		DisplayName: "Climactic Volume",
		Description: "Volume above its SMA by a multiplier; candle color picks the direction",
		Params: []ParamSpec{
			{Name: "sma_period", Kind: KindIntRange, Min: 5, Max: 50, Step: 1, Default: 20, Optimizable: true,
				Description: "period for the volume moving average"},
			{Name: "multiplier", Kind: KindFloatRange, Min: 1.0, Max: 3.0, Step: 0.25, Default: 1.75, Optimizable: true,
				Description: "volume must exceed its SMA by this factor"},
			directionSpec(),
		},
		Run: runClimacticVolume,
	}
}

func runClimacticVolume(candles []candle.Candle, params Params) (*Frame, error) {
	period := params.Int("sma_period", 20)
	multiplier := params.Float("multiplier", 1.75)
	if period <= 0 {
		return nil, fmt.Errorf("sma_period must be positive, got %d", period)
	}

	frame := NewFrame(len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		volumes[i] = c.Volume
	}
	volMA := indicator.CalculateSMA(volumes, period)
	if volMA == nil {
		// Series shorter than the period: nothing to signal.
		return frame, nil
	}
	for i := range candles {
		if math.IsNaN(volMA[i]) {
			continue // warmup, no signal
		}
		climactic := candles[i].Volume > volMA[i]*multiplier
		frame.Long[i] = climactic && candles[i].IsBullish()
		frame.Short[i] = climactic && candles[i].IsBearish()
	}
	frame.SetIndicator("volume_sma", volMA)
	applyDirection(frame, params.Str("direction", "both"))
	return frame, nil
}
