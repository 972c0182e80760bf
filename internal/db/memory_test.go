package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/strategy-lab/internal/candle"
)

func testCandles(n int) []candle.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]candle.Candle, n)
	for i := range candles {
		candles[i] = candle.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      100,
			High:      101,
			Low:       99,
			Close:     100.5,
			Volume:    1000,
			Symbol:    "EURUSD",
			Timeframe: "1h",
			Source:    "csv",
		}
	}
	return candles
}

func TestMemoryCandles(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	candles := testCandles(5)
	require.NoError(t, m.SaveCandles(ctx, candles))

	t.Run("window query is half open and sorted", func(t *testing.T) {
		got, err := m.GetCandles(ctx, "EURUSD", "1h", candles[1].Timestamp, candles[4].Timestamp)
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i := 1; i < len(got); i++ {
			assert.True(t, got[i].Timestamp.After(got[i-1].Timestamp))
		}
	})

	t.Run("symbol match is case insensitive", func(t *testing.T) {
		got, err := m.GetCandles(ctx, "eurusd", "1h", candles[0].Timestamp, candles[4].Timestamp.Add(time.Hour))
		require.NoError(t, err)
		assert.Len(t, got, 5)
	})

	t.Run("other timeframe is empty", func(t *testing.T) {
		got, err := m.GetCandles(ctx, "EURUSD", "4h", candles[0].Timestamp, candles[4].Timestamp.Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("saving again overwrites instead of duplicating", func(t *testing.T) {
		require.NoError(t, m.SaveCandles(ctx, candles))
		got, err := m.GetCandles(ctx, "EURUSD", "1h", candles[0].Timestamp, candles[4].Timestamp.Add(time.Hour))
		require.NoError(t, err)
		assert.Len(t, got, 5)
	})

	t.Run("invalid candle is rejected", func(t *testing.T) {
		bad := testCandles(1)
		bad[0].High = 0
		assert.Error(t, m.SaveCandles(ctx, bad))
	})
}

func TestMemoryRuns(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i := 0; i < 3; i++ {
		id, err := m.SaveRun(ctx, Run{
			Symbol:    "EURUSD",
			Timeframe: "1h",
			Provider:  "shakeout",
			Params:    map[string]any{"direction": "long"},
			Metrics:   map[string]float64{"roi": float64(i)},
			RankScore: float64(i),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), id)
	}
	_, err := m.SaveRun(ctx, Run{Symbol: "GBPUSD", Provider: "engulfing"})
	require.NoError(t, err)

	t.Run("newest first", func(t *testing.T) {
		runs, err := m.GetRuns(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, runs, 4)
		assert.Equal(t, "GBPUSD", runs[0].Symbol)
		assert.Equal(t, int64(3), runs[1].ID)
	})

	t.Run("symbol filter", func(t *testing.T) {
		runs, err := m.GetRuns(ctx, "EURUSD", 0)
		require.NoError(t, err)
		assert.Len(t, runs, 3)
	})

	t.Run("limit", func(t *testing.T) {
		runs, err := m.GetRuns(ctx, "EURUSD", 2)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, 2.0, runs[0].Metrics["roi"])
	})
}
