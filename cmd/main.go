package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/amirphl/strategy-lab/internal/backtest"
	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/config"
	"github.com/amirphl/strategy-lab/internal/db"
	"github.com/amirphl/strategy-lab/internal/metrics"
	"github.com/amirphl/strategy-lab/internal/optimizer"
	"github.com/amirphl/strategy-lab/internal/strategy"
	"github.com/amirphl/strategy-lab/internal/utils"
	"github.com/amirphl/strategy-lab/internal/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main | invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	utils.GetLogger().Printf("mode=%s provider=%s symbol=%s timeframe=%s",
		cfg.Mode, cfg.Provider, cfg.Symbol, cfg.Timeframe)

	storage, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("main | storage: %v", err)
	}
	defer storage.Close()

	candles, err := loadCandles(ctx, cfg, storage)
	if err != nil {
		log.Fatalf("main | loading candles: %v", err)
	}
	log.Printf("main | loaded %d candles for %s %s", len(candles), cfg.Symbol, cfg.Timeframe)

	catalog := strategy.DefaultCatalog()
	engineCfg := engineConfig(cfg)

	switch cfg.Mode {
	case "backtest":
		err = runBacktest(ctx, cfg, engineCfg, catalog, candles, storage)
	case "optimize":
		err = runOptimize(ctx, cfg, engineCfg, catalog, candles, storage)
	case "validate":
		err = runValidate(ctx, cfg, engineCfg, catalog, candles)
	}
	if err != nil {
		log.Fatalf("main | %s failed: %v", cfg.Mode, err)
	}
}

// openStorage returns postgres when a connection string is configured and the
// in-memory twin otherwise, so every mode can persist runs the same way.
func openStorage(cfg config.Config) (db.Storage, error) {
	if cfg.DBConnStr == "" {
		return db.NewMemory(), nil
	}
	return db.NewPostgres(cfg.DBConnStr, cfg.DBMaxOpen, cfg.DBMaxIdle)
}

// loadCandles reads the CSV file when one is given, mirroring it into
// storage, and falls back to storage-backed candles otherwise.
func loadCandles(ctx context.Context, cfg config.Config, storage db.Storage) ([]candle.Candle, error) {
	if cfg.CSVPath != "" {
		candles, err := candle.LoadCSV(cfg.CSVPath, cfg.Symbol, cfg.Timeframe)
		if err != nil {
			return nil, err
		}
		if err := storage.SaveCandles(ctx, candles); err != nil {
			log.Printf("loadCandles | WARNING: could not mirror candles into storage: %v", err)
		}
		return candles, nil
	}
	candles, err := storage.GetCandles(ctx, cfg.Symbol, cfg.Timeframe, cfg.From, cfg.To)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles in storage for %s %s between %s and %s",
			cfg.Symbol, cfg.Timeframe, cfg.From.Format("2006-01-02"), cfg.To.Format("2006-01-02"))
	}
	return candles, nil
}

func engineConfig(cfg config.Config) backtest.Config {
	return backtest.Config{
		InitialCapital: cfg.Backtest.InitialCapital,
		Commission:     cfg.Backtest.Commission,
		Slippage:       cfg.Backtest.Slippage,
		Sizing:         cfg.Backtest.Sizing,
		FixedQty:       cfg.Backtest.FixedQty,
		RiskPercent:    cfg.Backtest.RiskPercent,
		RiskAmount:     cfg.Backtest.RiskAmount,
		RewardRisk:     cfg.Backtest.RewardRisk,
		MinQty:         cfg.Backtest.MinQty,
	}
}

func toFilters(filters []config.Filter) []strategy.FilterConfig {
	out := make([]strategy.FilterConfig, 0, len(filters))
	for _, f := range filters {
		out = append(out, strategy.FilterConfig{Name: f.Name, Params: strategy.Params(f.Params)})
	}
	return out
}

// gridRanges builds the optimization grid from the config file, falling back
// to the provider's own optimizable parameter schema.
func gridRanges(cfg config.Config, catalog *strategy.Catalog) (optimizer.Ranges, error) {
	return providerRanges(cfg.Grid, cfg.Provider, catalog)
}

func providerRanges(axes map[string]config.GridAxis, provider string, catalog *strategy.Catalog) (optimizer.Ranges, error) {
	if len(axes) > 0 {
		specs := make(map[string]optimizer.GridSpec, len(axes))
		for name, axis := range axes {
			specs[name] = optimizer.GridSpec{
				Type:    axis.Type,
				Min:     axis.Min,
				Max:     axis.Max,
				Step:    axis.Step,
				Options: axis.Options,
			}
		}
		return optimizer.GenerateGrid(specs), nil
	}
	comp, err := catalog.Signal(provider)
	if err != nil {
		return nil, err
	}
	return optimizer.ComponentRanges(comp), nil
}

// patternConfigs translates the patterns: config block, giving each pattern
// its own grid or the provider's default ranges.
func patternConfigs(patterns []config.Pattern, catalog *strategy.Catalog) ([]optimizer.PatternConfig, error) {
	out := make([]optimizer.PatternConfig, 0, len(patterns))
	for _, p := range patterns {
		ranges, err := providerRanges(p.Grid, p.Provider, catalog)
		if err != nil {
			return nil, err
		}
		out = append(out, optimizer.PatternConfig{Provider: p.Provider, Ranges: ranges})
	}
	return out, nil
}

func runBacktest(ctx context.Context, cfg config.Config, engineCfg backtest.Config, catalog *strategy.Catalog, candles []candle.Candle, storage db.Storage) error {
	engine, err := backtest.New(engineCfg)
	if err != nil {
		return err
	}
	frame, err := catalog.Build(candles, cfg.Provider, strategy.Params(cfg.Params), toFilters(cfg.Filters))
	if err != nil {
		return err
	}
	result, err := engine.Run(candles, frame)
	if err != nil {
		return err
	}

	log.Printf("runBacktest | %s on %s %s, %d trades", cfg.Provider, cfg.Symbol, cfg.Timeframe, len(result.Trades))
	for _, name := range metrics.MetricNames {
		log.Printf("  %-18s %.4f", name, result.Metrics[name])
	}

	if cfg.ExportDir != "" {
		if err := result.SaveTradesCSV(filepath.Join(cfg.ExportDir, "trades.csv")); err != nil {
			return err
		}
		if err := result.SaveEquityCSV(filepath.Join(cfg.ExportDir, "equity.csv")); err != nil {
			return err
		}
		log.Printf("runBacktest | exported trades and equity to %s", cfg.ExportDir)
	}

	score := optimizer.New(engineCfg, catalog).Score(result.Metrics)
	return saveRun(ctx, storage, cfg, cfg.Params, result.Metrics, score)
}

func runOptimize(ctx context.Context, cfg config.Config, engineCfg backtest.Config, catalog *strategy.Catalog, candles []candle.Candle, storage db.Storage) error {
	opt := optimizer.New(engineCfg, catalog)
	opt.Filters = toFilters(cfg.Filters)
	if cfg.Optimization.Workers > 0 {
		opt.Workers = cfg.Optimization.Workers
	}
	opt.JobTimeout = cfg.Optimization.JobTimeout
	if w := cfg.Optimization; w.WeightROI+w.WeightPF+w.WeightDD > 0 {
		opt.Weights = optimizer.Weights{ROI: w.WeightROI, ProfitFactor: w.WeightPF, Drawdown: w.WeightDD}
	}

	var summary *optimizer.Summary
	if len(cfg.Patterns) > 0 {
		patterns, err := patternConfigs(cfg.Patterns, catalog)
		if err != nil {
			return err
		}
		summary, err = opt.OptimizeMulti(ctx, candles, patterns)
		if err != nil {
			return err
		}
	} else {
		ranges, err := gridRanges(cfg, catalog)
		if err != nil {
			return err
		}
		summary, err = opt.Optimize(ctx, candles, cfg.Provider, ranges)
		if err != nil {
			return err
		}
	}
	topN := cfg.Optimization.TopN
	if topN <= 0 {
		topN = 10
	}
	optimizer.PrintSummary(summary, topN)

	if len(summary.Results) == 0 {
		return nil
	}
	best := summary.Results[0]
	return saveRun(ctx, storage, cfg, best.Params, best.Metrics, best.RankScore)
}

func runValidate(ctx context.Context, cfg config.Config, engineCfg backtest.Config, catalog *strategy.Catalog, candles []candle.Candle) error {
	v := validator.New(engineCfg, catalog, validator.Config{
		Runs:                cfg.Validation.Runs,
		BlockSize:           cfg.Validation.BlockSize,
		Folds:               cfg.Validation.Folds,
		Metric:              cfg.Validation.Metric,
		PercentileThreshold: cfg.Validation.PercentileThreshold,
		MaxDegradation:      cfg.Validation.MaxDegradation,
		MinConsistency:      cfg.Validation.MinConsistency,
		Seed:                cfg.Validation.Seed,
		Workers:             cfg.Optimization.Workers,
	})
	strat := validator.Strategy{
		Provider: cfg.Provider,
		Params:   strategy.Params(cfg.Params),
		Filters:  toFilters(cfg.Filters),
	}

	methods := cfg.Validation.Methods
	if len(methods) == 0 {
		methods = []string{
			validator.MethodMonteCarloReturns,
			validator.MethodMonteCarloOHLC,
			validator.MethodMonteCarloBlocks,
			validator.MethodWalkForward,
			validator.MethodCrossValidation,
		}
	}

	passed := 0
	for _, method := range methods {
		var report *validator.Report
		var err error
		switch method {
		case validator.MethodMonteCarloReturns:
			report, err = v.MonteCarloReturns(ctx, candles, strat)
		case validator.MethodMonteCarloOHLC:
			report, err = v.MonteCarloOHLC(ctx, candles, strat)
		case validator.MethodMonteCarloBlocks:
			report, err = v.MonteCarloBlocks(ctx, candles, strat)
		case validator.MethodWalkForward:
			var ranges optimizer.Ranges
			ranges, err = gridRanges(cfg, catalog)
			if err == nil {
				report, err = v.WalkForward(ctx, candles, strat, ranges)
			}
		case validator.MethodCrossValidation:
			report, err = v.CrossValidate(ctx, candles, strat)
		default:
			return fmt.Errorf("unknown validation method %q", method)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
		printReport(report)
		if report.Passed {
			passed++
		}
	}
	log.Printf("runValidate | %d/%d checks passed", passed, len(methods))
	return nil
}

func printReport(r *validator.Report) {
	verdict := "FAIL"
	if r.Passed {
		verdict = "PASS"
	}
	switch r.Method {
	case validator.MethodWalkForward:
		log.Printf("printReport | %-20s %s avg degradation %.2f%% (limit %.2f%%) over %d folds, %d failures",
			r.Method, verdict, r.AvgDegradation, r.Threshold, len(r.Folds), r.Failures)
	case validator.MethodCrossValidation:
		log.Printf("printReport | %-20s %s avg consistency %.2f%% (floor %.2f%%) over %d folds, %d failures",
			r.Method, verdict, r.AvgConsistency, r.Threshold, len(r.Folds), r.Failures)
	default:
		log.Printf("printReport | %-20s %s original %s %.4f beats %.1f%% of %d resamples (need > %.1f%%), %d failures",
			r.Method, verdict, r.Metric, r.OriginalScore, r.Percentile, len(r.Scores), r.Threshold, r.Failures)
	}
}

func saveRun(ctx context.Context, storage db.Storage, cfg config.Config, params map[string]any, m map[string]float64, score float64) error {
	id, err := storage.SaveRun(ctx, db.Run{
		Symbol:    cfg.Symbol,
		Timeframe: cfg.Timeframe,
		Provider:  cfg.Provider,
		Params:    params,
		Metrics:   m,
		RankScore: score,
	})
	if err != nil {
		return fmt.Errorf("saveRun | %w", err)
	}
	log.Printf("saveRun | persisted run %d (score %.4f)", id, score)
	return nil
}
