// Package validator answers "is this edge real?" by rerunning the simulation
// pipeline under resampled data (Monte Carlo), expanding-window walk-forward
// optimization, and rolling-window cross-validation.
package validator

import (
	"time"

	"github.com/amirphl/strategy-lab/internal/backtest"
	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/strategy"
)

// Validation method names as reported.
const (
	MethodMonteCarloReturns = "monte_carlo_returns"
	MethodMonteCarloOHLC    = "monte_carlo_ohlc"
	MethodMonteCarloBlocks  = "monte_carlo_blocks"
	MethodWalkForward       = "walk_forward"
	MethodCrossValidation   = "cross_validation"
)

// Config holds validation parameters. Thresholds are configuration, not law;
// the defaults are the conventional ones.
type Config struct {
	// Runs is the number of Monte Carlo iterations.
	Runs int `yaml:"runs" json:"runs"`
	// BlockSize is the contiguous block length for the block shuffle.
	BlockSize int `yaml:"block_size" json:"block_size"`
	// Folds is the fold count for walk-forward and cross-validation.
	Folds int `yaml:"folds" json:"folds"`
	// Metric is the target metric name from the metrics mapping.
	Metric string `yaml:"metric" json:"metric"`
	// PercentileThreshold: Monte Carlo passes when the real score beats
	// more than this percentage of synthetic scores.
	PercentileThreshold float64 `yaml:"percentile_threshold" json:"percentile_threshold"`
	// MaxDegradation: walk-forward passes when average train-to-test
	// degradation stays below this percentage.
	MaxDegradation float64 `yaml:"max_degradation" json:"max_degradation"`
	// MinConsistency: cross-validation passes when the average test/train
	// ratio exceeds this percentage.
	MinConsistency float64 `yaml:"min_consistency" json:"min_consistency"`
	// Seed makes resampling reproducible. Zero means time-seeded.
	Seed    int64 `yaml:"seed" json:"seed"`
	Workers int   `yaml:"workers" json:"workers"`
}

// Normalize fills zero-valued fields with the conventional defaults.
func (c Config) Normalize() Config {
	if c.Runs == 0 {
		c.Runs = 100
	}
	if c.BlockSize == 0 {
		c.BlockSize = 20
	}
	if c.Folds == 0 {
		c.Folds = 5
	}
	if c.Metric == "" {
		c.Metric = "roi"
	}
	if c.PercentileThreshold == 0 {
		c.PercentileThreshold = 80
	}
	if c.MaxDegradation == 0 {
		c.MaxDegradation = 30
	}
	if c.MinConsistency == 0 {
		c.MinConsistency = 60
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// Strategy fixes a signal provider, its parameters, and any filters.
type Strategy struct {
	Provider string                  `yaml:"provider" json:"provider"`
	Params   strategy.Params         `yaml:"params" json:"params"`
	Filters  []strategy.FilterConfig `yaml:"filters" json:"filters"`
}

// FoldResult is one walk-forward or cross-validation fold.
type FoldResult struct {
	Fold        int             `json:"fold"`
	TrainStart  int             `json:"train_start"`
	TrainEnd    int             `json:"train_end"` // exclusive
	TestStart   int             `json:"test_start"`
	TestEnd     int             `json:"test_end"` // exclusive
	TrainScore  float64         `json:"train_score"`
	TestScore   float64         `json:"test_score"`
	Degradation float64         `json:"degradation,omitempty"` // walk-forward, percent
	Consistency float64         `json:"consistency,omitempty"` // cross-validation, percent
	BestParams  strategy.Params `json:"best_params,omitempty"` // walk-forward
	Err         string          `json:"error,omitempty"`
}

// Report is the outcome of one validation procedure.
type Report struct {
	Method        string  `json:"method"`
	Metric        string  `json:"metric"`
	OriginalScore float64 `json:"original_score"`
	// Scores is the distribution of resampled/out-of-sample scores.
	Scores []float64 `json:"scores,omitempty"`
	// Percentile is the percentage of synthetic scores the real score
	// exceeds (Monte Carlo methods).
	Percentile     float64      `json:"percentile,omitempty"`
	AvgDegradation float64      `json:"avg_degradation,omitempty"`
	AvgConsistency float64      `json:"avg_consistency,omitempty"`
	Folds          []FoldResult `json:"folds,omitempty"`
	Failures       int          `json:"failures"`
	Threshold      float64      `json:"threshold"`
	Passed         bool         `json:"passed"`
}

// Validator wraps the engine and catalog for validation runs.
type Validator struct {
	Engine  backtest.Config
	Catalog *strategy.Catalog
	Cfg     Config
}

// New builds a validator with normalized configuration.
func New(engineCfg backtest.Config, catalog *strategy.Catalog, cfg Config) *Validator {
	return &Validator{Engine: engineCfg, Catalog: catalog, Cfg: cfg.Normalize()}
}

// score runs the fixed strategy over a candle slice and extracts the target
// metric.
func (v *Validator) score(candles []candle.Candle, strat Strategy) (float64, error) {
	engine, err := backtest.New(v.Engine)
	if err != nil {
		return 0, err
	}
	frame, err := v.Catalog.Build(candles, strat.Provider, strat.Params, strat.Filters)
	if err != nil {
		return 0, err
	}
	result, err := engine.Run(candles, frame)
	if err != nil {
		return 0, err
	}
	return result.Metrics[v.Cfg.Metric], nil
}

// percentile returns the percentage of scores that the original score
// strictly exceeds.
func percentile(original float64, scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	beaten := 0
	for _, s := range scores {
		if original > s {
			beaten++
		}
	}
	return float64(beaten) / float64(len(scores)) * 100
}
