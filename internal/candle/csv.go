package candle

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// LoadCSV reads candles from a CSV file with a
// timestamp,open,high,low,close,volume header. Timestamps are RFC3339 or
// unix seconds. Symbol and timeframe are attached to every row since CSV
// exports carry a single series.
func LoadCSV(path, symbol, timeframe string) ([]Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadCSV | error opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("LoadCSV | error reading %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("LoadCSV | %s has no data rows", path)
	}

	candles := make([]Candle, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 6 {
			return nil, fmt.Errorf("LoadCSV | row %d has %d columns, want 6", i+2, len(row))
		}
		ts, err := parseTimestamp(row[0])
		if err != nil {
			return nil, fmt.Errorf("LoadCSV | row %d: %w", i+2, err)
		}
		vals := make([]float64, 5)
		for j := 1; j <= 5; j++ {
			v, err := strconv.ParseFloat(row[j], 64)
			if err != nil {
				return nil, fmt.Errorf("LoadCSV | row %d column %d: %w", i+2, j+1, err)
			}
			vals[j-1] = v
		}
		candles = append(candles, Candle{
			Timestamp: ts,
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
			Symbol:    symbol,
			Timeframe: timeframe,
			Source:    "csv",
		})
	}
	return candles, nil
}

// SaveCSV writes candles in the same layout LoadCSV reads.
func SaveCSV(path string, candles []Candle) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("SaveCSV | error creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, c := range candles {
		row := []string{
			c.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
