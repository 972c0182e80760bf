package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// SaveTradesCSV writes the trade ledger, one row per closed trade.
func (r *Result) SaveTradesCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("SaveTradesCSV | error creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"entry_time", "exit_time", "direction", "entry_price", "exit_price", "quantity", "pnl", "exit_reason"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, t := range r.Trades {
		row := []string{
			t.EntryTime.UTC().Format(time.RFC3339),
			t.ExitTime.UTC().Format(time.RFC3339),
			t.Direction,
			strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(t.ExitPrice, 'f', -1, 64),
			strconv.FormatFloat(t.Quantity, 'f', -1, 64),
			strconv.FormatFloat(t.PnL, 'f', -1, 64),
			t.ExitReason,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// SaveEquityCSV writes the per-bar equity curve.
func (r *Result) SaveEquityCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("SaveEquityCSV | error creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"bar", "equity"}); err != nil {
		return err
	}
	for i, eq := range r.EquityCurve {
		if err := w.Write([]string{strconv.Itoa(i), strconv.FormatFloat(eq, 'f', -1, 64)}); err != nil {
			return err
		}
	}
	return nil
}
