// Package db
package db

import (
	"context"
	"time"

	"github.com/amirphl/strategy-lab/internal/candle"
)

// Run is a persisted record of one ranked backtest outcome, kept so past
// optimization leaders can be compared across data revisions.
type Run struct {
	ID        int64              `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Symbol    string             `json:"symbol"`
	Timeframe string             `json:"timeframe"`
	Provider  string             `json:"provider"`
	Params    map[string]any     `json:"params"`
	Metrics   map[string]float64 `json:"metrics"`
	RankScore float64            `json:"rank_score"`
}

// Storage is the interface for all persistent storage.
type Storage interface {
	SaveCandles(ctx context.Context, candles []candle.Candle) error
	GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]candle.Candle, error)
	SaveRun(ctx context.Context, run Run) (int64, error)
	GetRuns(ctx context.Context, symbol string, limit int) ([]Run, error)
	Close() error
}
