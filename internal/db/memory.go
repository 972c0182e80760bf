package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/strategy-lab/internal/candle"
)

// MemoryStorage is the in-process Storage twin, used by tests and by CLI
// runs that have no database configured.
type MemoryStorage struct {
	mu sync.RWMutex

	// Candles keyed by symbol|timeframe|timestamp
	candles map[string]candle.Candle

	runs      []Run
	nextRunID int64
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		candles:   make(map[string]candle.Candle),
		nextRunID: 1,
	}
}

func candleKey(symbol, timeframe string, ts time.Time) string {
	return strings.ToUpper(symbol) + "|" + timeframe + "|" + ts.UTC().Format(time.RFC3339Nano)
}

func (m *MemoryStorage) SaveCandles(ctx context.Context, candles []candle.Candle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range candles {
		if err := candles[i].Validate(); err != nil {
			return err
		}
		c := candles[i]
		c.Timestamp = c.Timestamp.UTC()
		m.candles[candleKey(c.Symbol, c.Timeframe, c.Timestamp)] = c
	}
	return nil
}

func (m *MemoryStorage) GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]candle.Candle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []candle.Candle
	for _, c := range m.candles {
		if !strings.EqualFold(c.Symbol, symbol) || c.Timeframe != timeframe {
			continue
		}
		if c.Timestamp.Before(from) || !c.Timestamp.Before(to) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *MemoryStorage) SaveRun(ctx context.Context, run Run) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = m.nextRunID
	m.nextRunID++
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	m.runs = append(m.runs, run)
	return run.ID, nil
}

func (m *MemoryStorage) GetRuns(ctx context.Context, symbol string, limit int) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Run
	// Newest first.
	for i := len(m.runs) - 1; i >= 0; i-- {
		if symbol != "" && !strings.EqualFold(m.runs[i].Symbol, symbol) {
			continue
		}
		out = append(out, m.runs[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStorage) Close() error { return nil }
