// Package config
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amirphl/strategy-lab/internal/tfutils"
)

/*
YAML config example:
mode: "optimize"
symbol: "EURUSD"
timeframe: "1h"
csv_path: "data/eurusd_1h.csv"
db_conn_str: "postgres://..."
provider: "shakeout"
params:
  direction: "long"
filters:
  - name: "rsi"
    params: { period: 14, mode: "confirmation" }
backtest:
  initial_capital: 100000
  commission: 1.5
  slippage: 1.0
  sizing: "risk_percent_of_equity"
  risk_percent: 1.0
grid:
  fast_period: { type: "int", min: 5, max: 20, step: 5 }
  multiplier: { type: "float", min: 1.5, max: 2.5, step: 0.25 }
patterns:
  - provider: "shakeout"
  - provider: "climactic_volume"
    grid:
      sma_period: { type: "int", min: 10, max: 30, step: 10 }
validation:
  runs: 100
  folds: 5
  block_size: 20
  metric: "roi"
*/

// Filter selects a filter component by name with concrete parameters.
type Filter struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

// Pattern pairs a provider with its own grid for multi-pattern optimization.
// An empty grid falls back to the provider's optimizable parameter schema.
type Pattern struct {
	Provider string              `yaml:"provider"`
	Grid     map[string]GridAxis `yaml:"grid"`
}

// GridAxis declares one parameter axis of the optimization grid.
type GridAxis struct {
	Type    string  `yaml:"type"` // int, float or choice
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Step    float64 `yaml:"step"`
	Options []any   `yaml:"options"`
}

// Backtest holds the engine run parameters.
type Backtest struct {
	InitialCapital float64 `yaml:"initial_capital"`
	Commission     float64 `yaml:"commission"`
	Slippage       float64 `yaml:"slippage"`
	Sizing         string  `yaml:"sizing"`
	FixedQty       float64 `yaml:"fixed_qty"`
	RiskPercent    float64 `yaml:"risk_percent"`
	RiskAmount     float64 `yaml:"risk_amount"`
	RewardRisk     float64 `yaml:"reward_risk"`
	MinQty         float64 `yaml:"min_qty"`
}

// Optimization holds the grid-search parameters.
type Optimization struct {
	Workers    int           `yaml:"workers"`
	JobTimeout time.Duration `yaml:"job_timeout"`
	WeightROI  float64       `yaml:"weight_roi"`
	WeightPF   float64       `yaml:"weight_pf"`
	WeightDD   float64       `yaml:"weight_dd"`
	TopN       int           `yaml:"top_n"`
}

// Validation holds the robustness-check parameters.
type Validation struct {
	Methods             []string `yaml:"methods"`
	Runs                int      `yaml:"runs"`
	BlockSize           int      `yaml:"block_size"`
	Folds               int      `yaml:"folds"`
	Metric              string   `yaml:"metric"`
	PercentileThreshold float64  `yaml:"percentile_threshold"`
	MaxDegradation      float64  `yaml:"max_degradation"`
	MinConsistency      float64  `yaml:"min_consistency"`
	Seed                int64    `yaml:"seed"`
}

type Config struct {
	Mode      string    `yaml:"mode"` // backtest, optimize or validate
	Symbol    string    `yaml:"symbol"`
	Timeframe string    `yaml:"timeframe"`
	CSVPath   string    `yaml:"csv_path"`
	ExportDir string    `yaml:"export_dir"`
	DBConnStr string    `yaml:"db_conn_str"`
	DBMaxOpen int       `yaml:"db_max_open"`
	DBMaxIdle int       `yaml:"db_max_idle"`
	From      time.Time `yaml:"from"`
	To        time.Time `yaml:"to"`

	Provider string              `yaml:"provider"`
	Params   map[string]any      `yaml:"params"`
	Filters  []Filter            `yaml:"filters"`
	Grid     map[string]GridAxis `yaml:"grid"`
	// Patterns switches optimize mode to a multi-provider run when non-empty.
	Patterns []Pattern `yaml:"patterns"`

	Backtest     Backtest     `yaml:"backtest"`
	Optimization Optimization `yaml:"optimization"`
	Validation   Validation   `yaml:"validation"`
}

// Load builds the configuration from command-line flags, then overlays the
// YAML file when -config is given. YAML wins for every field it sets.
func Load() (Config, error) {
	mode := flag.String("mode", "backtest", "Mode: backtest, optimize or validate")
	symbol := flag.String("symbol", "EURUSD", "Instrument symbol")
	timeframe := flag.String("timeframe", "1h", "Candle timeframe")
	csvPath := flag.String("csv", "", "Path to CSV candle file")
	exportDir := flag.String("export-dir", "", "Directory for trade/equity CSV exports (empty = no export)")
	dbConnStr := flag.String("db-conn", "", "Postgres connection string (empty = in-memory)")
	from := flag.String("from", time.Now().AddDate(-2, 0, 0).Format("2006-01-02"), "Start date for storage-backed candles (YYYY-MM-DD)")
	to := flag.String("to", time.Now().Format("2006-01-02"), "End date for storage-backed candles (YYYY-MM-DD)")
	provider := flag.String("provider", "shakeout", "Signal provider: shakeout, engulfing or climactic_volume")
	params := flag.String("params", "", "Comma-separated provider parameters (e.g., direction=long,volume_period=20)")
	initialCapital := flag.Float64("initial-capital", 100000, "Starting equity")
	commission := flag.Float64("commission", 0.0, "Commission per trade leg in account currency")
	slippage := flag.Float64("slippage", 0.0, "Slippage in price units")
	sizing := flag.String("sizing", "fixed", "Position sizing: fixed, risk_percent_of_equity or risk_fixed_amount")
	fixedQty := flag.Float64("fixed-qty", 1.0, "Quantity for fixed sizing")
	riskPercent := flag.Float64("risk-percent", 1.0, "Percent of equity risked per trade")
	riskAmount := flag.Float64("risk-amount", 1000, "Money risked per trade for risk_fixed_amount sizing")
	rewardRisk := flag.Float64("reward-risk", 0, "Take-profit distance as a multiple of the stop distance (0 = default 1.5)")
	workers := flag.Int("workers", 0, "Parallel optimization workers (0 = all CPUs)")
	topN := flag.Int("top-n", 10, "Number of top optimization results to print")
	runs := flag.Int("runs", 100, "Monte Carlo iterations")
	folds := flag.Int("folds", 5, "Walk-forward / cross-validation folds")
	blockSize := flag.Int("block-size", 20, "Block length for the block shuffle")
	metric := flag.String("metric", "roi", "Target metric for validation")
	seed := flag.Int64("seed", 0, "RNG seed for resampling (0 = time-seeded)")
	configFile := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	fromTime, err := parseDate("from", *from)
	if err != nil {
		return Config{}, err
	}
	toTime, err := parseDate("to", *to)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Mode:      *mode,
		Symbol:    *symbol,
		Timeframe: *timeframe,
		CSVPath:   *csvPath,
		ExportDir: *exportDir,
		DBConnStr: *dbConnStr,
		DBMaxOpen: 10,
		DBMaxIdle: 5,
		From:      fromTime,
		To:        toTime,
		Provider:  *provider,
		Params:    ParseParams(*params),
		Backtest: Backtest{
			InitialCapital: *initialCapital,
			Commission:     *commission,
			Slippage:       *slippage,
			Sizing:         *sizing,
			FixedQty:       *fixedQty,
			RiskPercent:    *riskPercent,
			RiskAmount:     *riskAmount,
			RewardRisk:     *rewardRisk,
		},
		Optimization: Optimization{
			Workers: *workers,
			TopN:    *topN,
		},
		Validation: Validation{
			Runs:      *runs,
			BlockSize: *blockSize,
			Folds:     *folds,
			Metric:    *metric,
			Seed:      *seed,
		},
	}

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return cfg, fmt.Errorf("Load | error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("Load | error parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the cross-field constraints flags alone cannot express.
func (c *Config) Validate() error {
	switch c.Mode {
	case "backtest", "optimize", "validate":
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if !tfutils.IsValidTimeframe(c.Timeframe) {
		return fmt.Errorf("unsupported timeframe %q (supported: %s)",
			c.Timeframe, strings.Join(tfutils.GetSupportedTimeframes(), ", "))
	}
	if c.Provider == "" {
		return fmt.Errorf("provider cannot be empty")
	}
	if c.CSVPath == "" && c.DBConnStr == "" {
		return fmt.Errorf("either -csv or -db-conn must be set")
	}
	return nil
}

// parseDate parses a YYYY-MM-DD flag value, failing loudly so a typo cannot
// silently turn into the zero time.
func parseDate(flagName, value string) (time.Time, error) {
	ts, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -%s date %q, want YYYY-MM-DD", flagName, value)
	}
	return ts, nil
}

// ParseParams parses comma-separated name=value pairs, guessing the
// narrowest value type: bool, int, float, then string.
func ParseParams(s string) map[string]any {
	params := make(map[string]any)
	if s == "" {
		return params
	}
	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name, value := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		switch {
		case value == "true" || value == "false":
			params[name] = value == "true"
		default:
			if i, err := strconv.Atoi(value); err == nil {
				params[name] = i
			} else if f, err := strconv.ParseFloat(value, 64); err == nil {
				params[name] = f
			} else {
				params[name] = value
			}
		}
	}
	return params
}
