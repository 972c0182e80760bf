package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/strategy-lab/internal/candle"
	_ "github.com/lib/pq"
)

// Postgres implements Storage on a postgres database.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a connection and ensures the schema exists.
func NewPostgres(connStr string, maxOpen, maxIdle int) (*Postgres, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("NewPostgres | error opening database: %w", err)
	}
	if maxOpen > 0 {
		conn.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		conn.SetMaxIdleConns(maxIdle)
	}
	p := &Postgres{db: conn}
	if err := p.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			open DOUBLE PRECISION NOT NULL,
			high DOUBLE PRECISION NOT NULL,
			low DOUBLE PRECISION NOT NULL,
			close DOUBLE PRECISION NOT NULL,
			volume DOUBLE PRECISION NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (symbol, timeframe, timestamp)
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id BIGSERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			provider TEXT NOT NULL,
			params JSONB NOT NULL,
			metrics JSONB NOT NULL,
			rank_score DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol_created ON runs (symbol, created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.Exec(stmt); err != nil {
			return fmt.Errorf("initSchema | %w", err)
		}
	}
	return nil
}

func (p *Postgres) SaveCandles(ctx context.Context, candles []candle.Candle) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SaveCandles | error beginning transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (symbol, timeframe, timestamp, open, high, low, close, volume, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, timeframe, timestamp) DO UPDATE SET
			open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
			close = EXCLUDED.close, volume = EXCLUDED.volume, source = EXCLUDED.source`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("SaveCandles | error preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range candles {
		c := candles[i]
		if err := c.Validate(); err != nil {
			tx.Rollback()
			return fmt.Errorf("SaveCandles | invalid candle at %s: %w", c.Timestamp, err)
		}
		if _, err := stmt.ExecContext(ctx, c.Symbol, c.Timeframe, c.Timestamp.UTC(),
			c.Open, c.High, c.Low, c.Close, c.Volume, c.Source); err != nil {
			tx.Rollback()
			return fmt.Errorf("SaveCandles | error inserting candle: %w", err)
		}
	}
	return tx.Commit()
}

func (p *Postgres) GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]candle.Candle, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT symbol, timeframe, timestamp, open, high, low, close, volume, source
		FROM candles
		WHERE symbol = $1 AND timeframe = $2 AND timestamp >= $3 AND timestamp < $4
		ORDER BY timestamp ASC`, symbol, timeframe, from, to)
	if err != nil {
		return nil, fmt.Errorf("GetCandles | error querying candles: %w", err)
	}
	defer rows.Close()

	var candles []candle.Candle
	for rows.Next() {
		var c candle.Candle
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &c.Timestamp,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Source); err != nil {
			return nil, fmt.Errorf("GetCandles | error scanning row: %w", err)
		}
		c.Timestamp = c.Timestamp.UTC()
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

func (p *Postgres) SaveRun(ctx context.Context, run Run) (int64, error) {
	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return 0, fmt.Errorf("SaveRun | error marshaling params: %w", err)
	}
	metricsJSON, err := json.Marshal(run.Metrics)
	if err != nil {
		return 0, fmt.Errorf("SaveRun | error marshaling metrics: %w", err)
	}
	var id int64
	err = p.db.QueryRowContext(ctx, `
		INSERT INTO runs (symbol, timeframe, provider, params, metrics, rank_score)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		run.Symbol, run.Timeframe, run.Provider, paramsJSON, metricsJSON, run.RankScore).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("SaveRun | error inserting run: %w", err)
	}
	return id, nil
}

func (p *Postgres) GetRuns(ctx context.Context, symbol string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, created_at, symbol, timeframe, provider, params, metrics, rank_score
		FROM runs
		WHERE ($1 = '' OR symbol = $1)
		ORDER BY created_at DESC
		LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("GetRuns | error querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var paramsJSON, metricsJSON []byte
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Symbol, &r.Timeframe, &r.Provider,
			&paramsJSON, &metricsJSON, &r.RankScore); err != nil {
			return nil, fmt.Errorf("GetRuns | error scanning row: %w", err)
		}
		if err := json.Unmarshal(paramsJSON, &r.Params); err != nil {
			return nil, fmt.Errorf("GetRuns | error unmarshaling params: %w", err)
		}
		if err := json.Unmarshal(metricsJSON, &r.Metrics); err != nil {
			return nil, fmt.Errorf("GetRuns | error unmarshaling metrics: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (p *Postgres) Close() error { return p.db.Close() }
