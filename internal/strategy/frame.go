// Package strategy
package strategy

import (
	"fmt"

	"github.com/amirphl/strategy-lab/internal/candle"
)

// Frame holds per-bar signal columns aligned to a candle series.
//
// Coercion policy: a provider that cannot decide a bar (warmup, missing
// indicator value, NaN input) must leave the signal false. FilterOK defaults
// to true and filters may only narrow it. The engine never sees an undefined
// value.
type Frame struct {
	Long     []bool
	Short    []bool
	FilterOK []bool

	// Indicators carries optional per-bar series (e.g. "rsi", "sma_fast")
	// for reporting. The engine ignores them.
	Indicators map[string][]float64
}

// NewFrame creates a frame of n bars with no signals and all filters passing.
func NewFrame(n int) *Frame {
	f := &Frame{
		Long:       make([]bool, n),
		Short:      make([]bool, n),
		FilterOK:   make([]bool, n),
		Indicators: make(map[string][]float64),
	}
	for i := range f.FilterOK {
		f.FilterOK[i] = true
	}
	return f
}

// Len returns the number of bars in the frame.
func (f *Frame) Len() int { return len(f.Long) }

// CheckAlignment verifies the frame matches a candle series of n bars.
func (f *Frame) CheckAlignment(n int) error {
	if len(f.Long) != n || len(f.Short) != n || len(f.FilterOK) != n {
		return fmt.Errorf("frame columns (%d/%d/%d) not aligned to %d candles",
			len(f.Long), len(f.Short), len(f.FilterOK), n)
	}
	return nil
}

// Restrict ANDs a per-bar condition into FilterOK.
func (f *Frame) Restrict(ok []bool) error {
	if len(ok) != len(f.FilterOK) {
		return fmt.Errorf("filter column has %d bars, frame has %d", len(ok), len(f.FilterOK))
	}
	for i := range f.FilterOK {
		f.FilterOK[i] = f.FilterOK[i] && ok[i]
	}
	return nil
}

// SetIndicator attaches a named indicator series to the frame.
func (f *Frame) SetIndicator(name string, values []float64) {
	if f.Indicators == nil {
		f.Indicators = make(map[string][]float64)
	}
	f.Indicators[name] = values
}

// SignalFunc maps a candle series plus named parameters to a signal frame.
// Implementations must be deterministic and must not mutate the candles.
type SignalFunc func(candles []candle.Candle, params Params) (*Frame, error)

// FilterFunc narrows a frame's FilterOK column in place.
type FilterFunc func(candles []candle.Candle, frame *Frame, params Params) error
