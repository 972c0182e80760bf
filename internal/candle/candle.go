// Package candle
package candle

import (
	"errors"
	"fmt"
	"time"
)

type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Source    string    `json:"source"`
}

// Validate checks if a candle has valid data
func (c *Candle) Validate() error {
	if c.Timestamp.IsZero() {
		return errors.New("candle timestamp is zero")
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return errors.New("candle prices must be positive")
	}
	if c.High < c.Low {
		return errors.New("candle high cannot be less than low")
	}
	if c.Open < c.Low || c.Open > c.High {
		return errors.New("candle open price must be between high and low")
	}
	if c.Close < c.Low || c.Close > c.High {
		return errors.New("candle close price must be between high and low")
	}
	if c.Volume < 0 {
		return errors.New("candle volume cannot be negative")
	}
	return nil
}

// IsBullish reports whether the candle closed above its open.
func (c *Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c *Candle) IsBearish() bool {
	return c.Close < c.Open
}

// MinSeriesLen is the minimum number of candles a simulation accepts.
// One bar has no prior bar and two bars leave no room for an exit.
const MinSeriesLen = 3

// CheckSeries validates a candle series as simulation input: enough bars,
// strictly ascending timestamps (which also rules out duplicates).
func CheckSeries(candles []Candle) error {
	if len(candles) < MinSeriesLen {
		return fmt.Errorf("need at least %d candles, got %d", MinSeriesLen, len(candles))
	}
	for i := 1; i < len(candles); i++ {
		if !candles[i].Timestamp.After(candles[i-1].Timestamp) {
			return fmt.Errorf("timestamps not strictly ascending at index %d (%s then %s)",
				i, candles[i-1].Timestamp.Format(time.RFC3339), candles[i].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// Closes extracts the close price series.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// PctChanges returns close-to-close percentage changes. The result has
// len(candles)-1 entries; entry i is the change from bar i to bar i+1.
func PctChanges(candles []Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	changes := make([]float64, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			changes[i-1] = 0
			continue
		}
		changes[i-1] = (candles[i].Close - prev) / prev
	}
	return changes
}
