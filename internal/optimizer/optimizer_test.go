package optimizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/strategy-lab/internal/backtest"
	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/strategy"
)

func bar(open, high, low, close float64) candle.Candle {
	return candle.Candle{Open: open, High: high, Low: low, Close: close, Volume: 1000}
}

func stamp(candles []candle.Candle) []candle.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		candles[i].Timestamp = base.Add(time.Duration(i) * time.Hour)
		candles[i].Symbol = "EURUSD"
		candles[i].Timeframe = "1h"
	}
	return candles
}

// tradeSeries produces one stop-loss trade when a provider signals bar 1.
func tradeSeries() []candle.Candle {
	return stamp([]candle.Candle{
		bar(105, 106, 104, 105),
		bar(105, 110, 100, 102),
		bar(101, 103, 99, 100),
	})
}

func engineConfig() backtest.Config {
	return backtest.Config{InitialCapital: 10000, Sizing: backtest.SizingFixed, FixedQty: 1}
}

// testCatalog registers a provider whose behavior is driven by flags: "go"
// emits a signal on bar 1, "boom" fails the trial.
func testCatalog(t *testing.T) *strategy.Catalog {
	t.Helper()
	c := strategy.NewCatalog()
	err := c.AddSignal(strategy.Component{
		Name: "test_signal",
		Params: []strategy.ParamSpec{
			{Name: "go", Kind: strategy.KindFlag, Default: false},
			{Name: "boom", Kind: strategy.KindFlag, Default: false},
		},
		Run: func(candles []candle.Candle, params strategy.Params) (*strategy.Frame, error) {
			if params.Bool("boom", false) {
				return nil, errors.New("boom")
			}
			frame := strategy.NewFrame(len(candles))
			if params.Bool("go", false) {
				frame.Long[1] = true
			}
			return frame, nil
		},
	})
	require.NoError(t, err)
	return c
}

func TestCombinations(t *testing.T) {
	t.Run("cartesian product in deterministic order", func(t *testing.T) {
		combos := Combinations(Ranges{"b": []any{"x", "y"}, "a": []any{1, 2}})
		require.Len(t, combos, 4)
		assert.Equal(t, strategy.Params{"a": 1, "b": "x"}, combos[0])
		assert.Equal(t, strategy.Params{"a": 1, "b": "y"}, combos[1])
		assert.Equal(t, strategy.Params{"a": 2, "b": "x"}, combos[2])
		assert.Equal(t, strategy.Params{"a": 2, "b": "y"}, combos[3])
	})

	t.Run("empty ranges yield the single empty combination", func(t *testing.T) {
		combos := Combinations(Ranges{})
		require.Len(t, combos, 1)
		assert.Empty(t, combos[0])
	})

	t.Run("empty axis yields nothing", func(t *testing.T) {
		assert.Nil(t, Combinations(Ranges{"a": nil}))
	})
}

func TestGenerateGrid(t *testing.T) {
	ranges := GenerateGrid(map[string]GridSpec{
		"period": {Type: "int", Min: 1, Max: 3, Step: 1},
		"mult":   {Type: "float", Min: 1.0, Max: 2.0, Step: 0.5},
		"mode":   {Type: "choice", Options: []any{"a", "b"}},
	})
	assert.Equal(t, []any{1, 2, 3}, ranges["period"])
	assert.Equal(t, []any{1.0, 1.5, 2.0}, ranges["mult"])
	assert.Equal(t, []any{"a", "b"}, ranges["mode"])
}

func TestScore(t *testing.T) {
	o := New(engineConfig(), nil)

	t.Run("perfect components score 1", func(t *testing.T) {
		score := o.Score(map[string]float64{"roi": 100, "profit_factor": 3, "max_drawdown": 0})
		assert.InDelta(t, 1.0, score, 1e-9)
	})

	t.Run("roi clamps at 200 percent", func(t *testing.T) {
		a := o.Score(map[string]float64{"roi": 200})
		b := o.Score(map[string]float64{"roi": 5000})
		assert.InDelta(t, a, b, 1e-9)
	})

	t.Run("deep drawdown contributes nothing", func(t *testing.T) {
		score := o.Score(map[string]float64{"max_drawdown": -150})
		assert.Zero(t, score)
	})

	t.Run("negative roi clamps at minus 100 percent", func(t *testing.T) {
		a := o.Score(map[string]float64{"roi": -100, "max_drawdown": -100})
		b := o.Score(map[string]float64{"roi": -400, "max_drawdown": -100})
		assert.InDelta(t, a, b, 1e-9)
	})
}

func TestRankTieBreaks(t *testing.T) {
	o := New(engineConfig(), nil)
	// Drawdowns beyond -100 all clamp to a zero component, so the three
	// roi-10 results share one score and only the tie-breaks separate them.
	results := []Result{
		{Metrics: map[string]float64{"roi": 10, "total_trades": 5, "max_drawdown": -150}},
		{Metrics: map[string]float64{"roi": 10, "total_trades": 9, "max_drawdown": -150}},
		{Metrics: map[string]float64{"roi": 10, "total_trades": 9, "max_drawdown": -120}},
		{Metrics: map[string]float64{"roi": 50, "total_trades": 1, "max_drawdown": -150}},
	}
	ranked := o.rank(results)
	assert.Equal(t, 50.0, ranked[0].Metrics["roi"])
	// Equal scores: more trades first, then the shallower drawdown.
	assert.Equal(t, 9.0, ranked[1].Metrics["total_trades"])
	assert.Equal(t, -120.0, ranked[1].Metrics["max_drawdown"])
	assert.Equal(t, -150.0, ranked[2].Metrics["max_drawdown"])
	assert.Equal(t, 5.0, ranked[3].Metrics["total_trades"])
}

func TestOptimize(t *testing.T) {
	o := New(engineConfig(), testCatalog(t))
	o.Workers = 2

	summary, err := o.Optimize(context.Background(), tradeSeries(), "test_signal",
		Ranges{"go": []any{true, false}, "boom": []any{false, true}})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Failures) // boom=true fails regardless of go
	assert.Equal(t, 1, summary.NoTrades) // go=false never trades
	require.Len(t, summary.Results, 1)
	assert.Equal(t, true, summary.Results[0].Params["go"])
	assert.Equal(t, 1.0, summary.Results[0].Metrics["total_trades"])
}

func TestOptimizeSharedInputErrors(t *testing.T) {
	o := New(engineConfig(), testCatalog(t))

	t.Run("unknown provider aborts the batch", func(t *testing.T) {
		_, err := o.Optimize(context.Background(), tradeSeries(), "nope", Ranges{})
		assert.Error(t, err)
	})

	t.Run("bad series aborts the batch", func(t *testing.T) {
		_, err := o.Optimize(context.Background(), tradeSeries()[:2], "test_signal", Ranges{})
		var derr *backtest.DataError
		require.Error(t, err)
		assert.True(t, errors.As(err, &derr))
	})

	t.Run("bad engine config aborts the batch", func(t *testing.T) {
		bad := New(backtest.Config{}, testCatalog(t))
		_, err := bad.Optimize(context.Background(), tradeSeries(), "test_signal", Ranges{})
		assert.Error(t, err)
	})
}

func TestOptimizeDeterministic(t *testing.T) {
	o := New(engineConfig(), testCatalog(t))
	ranges := Ranges{"go": []any{true, false}}

	first, err := o.Optimize(context.Background(), tradeSeries(), "test_signal", ranges)
	require.NoError(t, err)
	second, err := o.Optimize(context.Background(), tradeSeries(), "test_signal", ranges)
	require.NoError(t, err)

	require.Equal(t, len(first.Results), len(second.Results))
	for i := range first.Results {
		assert.Equal(t, first.Results[i].Params, second.Results[i].Params)
		assert.Equal(t, first.Results[i].RankScore, second.Results[i].RankScore)
	}
}

func TestOptimizeJobTimeout(t *testing.T) {
	c := strategy.NewCatalog()
	require.NoError(t, c.AddSignal(strategy.Component{
		Name: "slow",
		Run: func(candles []candle.Candle, params strategy.Params) (*strategy.Frame, error) {
			time.Sleep(200 * time.Millisecond)
			return strategy.NewFrame(len(candles)), nil
		},
	}))

	o := New(engineConfig(), c)
	o.JobTimeout = 10 * time.Millisecond
	summary, err := o.Optimize(context.Background(), tradeSeries(), "slow", Ranges{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failures)
	assert.Empty(t, summary.Results)
}

func TestOptimizePanicBecomesFailure(t *testing.T) {
	c := strategy.NewCatalog()
	require.NoError(t, c.AddSignal(strategy.Component{
		Name: "panics",
		Run: func(candles []candle.Candle, params strategy.Params) (*strategy.Frame, error) {
			panic("unexpected")
		},
	}))

	o := New(engineConfig(), c)
	summary, err := o.Optimize(context.Background(), tradeSeries(), "panics", Ranges{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failures)
}

func TestOptimizeMulti(t *testing.T) {
	o := New(engineConfig(), testCatalog(t))
	summary, err := o.OptimizeMulti(context.Background(), tradeSeries(), []PatternConfig{
		{Provider: "test_signal", Ranges: Ranges{"go": []any{true}}},
	})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "test_signal", summary.Results[0].Params["pattern"])
}
