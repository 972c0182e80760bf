package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSMA(t *testing.T) {
	t.Run("known values", func(t *testing.T) {
		sma := CalculateSMA([]float64{1, 2, 3, 4, 5}, 3)
		require.Len(t, sma, 5)
		assert.True(t, math.IsNaN(sma[0]))
		assert.True(t, math.IsNaN(sma[1]))
		assert.InDelta(t, 2, sma[2], 1e-9)
		assert.InDelta(t, 3, sma[3], 1e-9)
		assert.InDelta(t, 4, sma[4], 1e-9)
	})

	t.Run("series shorter than period", func(t *testing.T) {
		assert.Nil(t, CalculateSMA([]float64{1, 2}, 3))
	})

	t.Run("non-positive period", func(t *testing.T) {
		assert.Nil(t, CalculateSMA([]float64{1, 2, 3}, 0))
	})
}

func TestCalculateRSI(t *testing.T) {
	t.Run("all gains saturate at 100", func(t *testing.T) {
		prices := make([]float64, 20)
		for i := range prices {
			prices[i] = 100 + float64(i)
		}
		rsi := CalculateRSI(prices, 14)
		require.Len(t, rsi, 20)
		for i := 0; i < 13; i++ {
			assert.True(t, math.IsNaN(rsi[i]), "bar %d should be warmup", i)
		}
		for i := 13; i < 20; i++ {
			assert.InDelta(t, 100, rsi[i], 1e-9)
		}
	})

	t.Run("mixed series stays in range", func(t *testing.T) {
		prices := []float64{100, 102, 101, 103, 99, 104, 100, 105, 98, 106, 97, 107, 96, 108, 95, 109}
		rsi := CalculateRSI(prices, 14)
		require.NotNil(t, rsi)
		for i := 13; i < len(rsi); i++ {
			assert.GreaterOrEqual(t, rsi[i], 0.0)
			assert.LessOrEqual(t, rsi[i], 100.0)
		}
	})

	t.Run("series shorter than period", func(t *testing.T) {
		assert.Nil(t, CalculateRSI([]float64{1, 2, 3}, 14))
	})
}
