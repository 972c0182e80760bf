package candle

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeries(closes ...float64) []Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]Candle, len(closes))
	for i, c := range closes {
		candles[i] = Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
			Symbol:    "EURUSD",
			Timeframe: "1h",
		}
	}
	return candles
}

func TestValidate(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		candle  Candle
		wantErr bool
	}{
		{"valid", Candle{Timestamp: base, Open: 100, High: 110, Low: 90, Close: 105, Volume: 1000}, false},
		{"zero timestamp", Candle{Open: 100, High: 110, Low: 90, Close: 105, Volume: 1000}, true},
		{"non-positive price", Candle{Timestamp: base, Open: 0, High: 110, Low: 90, Close: 105, Volume: 1000}, true},
		{"high below low", Candle{Timestamp: base, Open: 100, High: 90, Low: 110, Close: 100, Volume: 1000}, true},
		{"open outside range", Candle{Timestamp: base, Open: 120, High: 110, Low: 90, Close: 105, Volume: 1000}, true},
		{"close outside range", Candle{Timestamp: base, Open: 100, High: 110, Low: 90, Close: 80, Volume: 1000}, true},
		{"negative volume", Candle{Timestamp: base, Open: 100, High: 110, Low: 90, Close: 105, Volume: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.candle.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckSeries(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		assert.Error(t, CheckSeries(testSeries(100, 101)))
	})

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, CheckSeries(testSeries(100, 101, 102, 103)))
	})

	t.Run("duplicate timestamp", func(t *testing.T) {
		candles := testSeries(100, 101, 102)
		candles[2].Timestamp = candles[1].Timestamp
		assert.Error(t, CheckSeries(candles))
	})

	t.Run("descending timestamp", func(t *testing.T) {
		candles := testSeries(100, 101, 102)
		candles[1].Timestamp = candles[2].Timestamp.Add(time.Hour)
		assert.Error(t, CheckSeries(candles))
	})
}

func TestPctChanges(t *testing.T) {
	changes := PctChanges(testSeries(100, 110, 99))
	require.Len(t, changes, 2)
	assert.InDelta(t, 0.10, changes[0], 1e-9)
	assert.InDelta(t, -0.10, changes[1], 1e-9)

	assert.Nil(t, PctChanges(testSeries(100)))
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candles.csv")
	original := testSeries(100, 101, 102.5)
	require.NoError(t, SaveCSV(path, original))

	loaded, err := LoadCSV(path, "EURUSD", "1h")
	require.NoError(t, err)
	require.Len(t, loaded, len(original))
	for i := range original {
		assert.True(t, loaded[i].Timestamp.Equal(original[i].Timestamp))
		assert.Equal(t, original[i].Open, loaded[i].Open)
		assert.Equal(t, original[i].High, loaded[i].High)
		assert.Equal(t, original[i].Low, loaded[i].Low)
		assert.Equal(t, original[i].Close, loaded[i].Close)
		assert.Equal(t, original[i].Volume, loaded[i].Volume)
	}
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"), "EURUSD", "1h")
	assert.Error(t, err)
}
