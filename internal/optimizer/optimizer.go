package optimizer

import (
	"context"
	"fmt"
	"log"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/amirphl/strategy-lab/internal/backtest"
	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/strategy"
)

// Result is one evaluated parameter combination.
type Result struct {
	Params    strategy.Params    `json:"params"`
	Metrics   map[string]float64 `json:"metrics"`
	RankScore float64            `json:"rank_score"`
}

// Summary reports a full optimization batch. An empty or all-failed batch is
// visible through the counters rather than a silently empty list.
type Summary struct {
	Results  []Result      `json:"results"` // ranked, best first
	Total    int           `json:"total"`   // combinations dispatched
	Failures int           `json:"failures"`
	NoTrades int           `json:"no_trades"` // ran fine but never traded
	Elapsed  time.Duration `json:"elapsed"`
}

// Weights are the composite score components. They should sum to 1 but the
// score is meaningful for any positive weights.
type Weights struct {
	ROI          float64 `yaml:"roi" json:"roi"`
	ProfitFactor float64 `yaml:"profit_factor" json:"profit_factor"`
	Drawdown     float64 `yaml:"drawdown" json:"drawdown"`
}

// DefaultWeights returns the conventional 0.3/0.3/0.4 split.
func DefaultWeights() Weights {
	return Weights{ROI: 0.3, ProfitFactor: 0.3, Drawdown: 0.4}
}

// Optimizer grid-searches a signal provider's parameter space, one
// independent backtest per combination.
type Optimizer struct {
	Engine  backtest.Config
	Catalog *strategy.Catalog
	// Filters are applied with fixed parameters to every combination.
	Filters    []strategy.FilterConfig
	Workers    int
	JobTimeout time.Duration
	Weights    Weights
}

// New builds an optimizer with worker count defaulting to the CPU count.
func New(engineCfg backtest.Config, catalog *strategy.Catalog) *Optimizer {
	return &Optimizer{
		Engine:  engineCfg,
		Catalog: catalog,
		Workers: runtime.NumCPU(),
		Weights: DefaultWeights(),
	}
}

// PatternConfig pairs a provider with its parameter ranges for multi-pattern
// optimization.
type PatternConfig struct {
	Provider string `yaml:"provider" json:"provider"`
	Ranges   Ranges `yaml:"ranges" json:"ranges"`
}

type trialOutcome struct {
	result *Result
	err    error
}

// Optimize evaluates every combination of ranges for the named provider and
// returns the ranked results. Individual trial errors become failure
// markers; only a malformed shared input aborts the whole batch.
func (o *Optimizer) Optimize(ctx context.Context, candles []candle.Candle, provider string, ranges Ranges) (*Summary, error) {
	started := time.Now()

	// Shared-input problems are fatal for the batch, checked up front so
	// workers never see them.
	engine, err := backtest.New(o.Engine)
	if err != nil {
		return nil, err
	}
	if err := candle.CheckSeries(candles); err != nil {
		return nil, &backtest.DataError{Reason: err.Error()}
	}
	if _, err := o.Catalog.Signal(provider); err != nil {
		return nil, err
	}

	combos := Combinations(ranges)
	log.Printf("Optimize | testing %d parameter combinations for %q", len(combos), provider)

	outcomes := o.scatter(ctx, engine, candles, provider, combos)

	summary := &Summary{Total: len(combos)}
	var valid []Result
	for _, out := range outcomes {
		switch {
		case out.err != nil:
			summary.Failures++
		case out.result.Metrics["total_trades"] == 0:
			summary.NoTrades++
		default:
			valid = append(valid, *out.result)
		}
	}
	summary.Results = o.rank(valid)
	summary.Elapsed = time.Since(started)

	if len(summary.Results) == 0 {
		log.Printf("Optimize | WARNING: no valid results (%d failures, %d zero-trade runs out of %d combinations)",
			summary.Failures, summary.NoTrades, summary.Total)
	} else {
		log.Printf("Optimize | %d valid results, %d failures, best score %.4f",
			len(summary.Results), summary.Failures, summary.Results[0].RankScore)
	}
	return summary, nil
}

// OptimizeMulti runs Optimize for several providers and merges the ranked
// output, tagging each result with its provider.
func (o *Optimizer) OptimizeMulti(ctx context.Context, candles []candle.Candle, patterns []PatternConfig) (*Summary, error) {
	merged := &Summary{}
	started := time.Now()
	var all []Result
	for _, pc := range patterns {
		summary, err := o.Optimize(ctx, candles, pc.Provider, pc.Ranges)
		if err != nil {
			return nil, fmt.Errorf("OptimizeMulti | provider %q: %w", pc.Provider, err)
		}
		for _, r := range summary.Results {
			r.Params = r.Params.Clone()
			r.Params["pattern"] = pc.Provider
			all = append(all, r)
		}
		merged.Total += summary.Total
		merged.Failures += summary.Failures
		merged.NoTrades += summary.NoTrades
	}
	merged.Results = o.rank(all)
	merged.Elapsed = time.Since(started)
	return merged, nil
}

// scatter dispatches one trial per combination across a bounded worker pool
// and gathers every outcome. Workers share only immutable inputs; each
// writes its own slot of the outcome slice.
func (o *Optimizer) scatter(ctx context.Context, engine *backtest.Engine, candles []candle.Candle, provider string, combos []strategy.Params) []trialOutcome {
	workers := o.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(combos) {
		workers = len(combos)
	}

	outcomes := make([]trialOutcome, len(combos))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = o.runTrial(ctx, engine, candles, provider, combos[idx])
			}
		}()
	}
	for idx := range combos {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

// runTrial evaluates a single combination. Panics and timeouts degrade to
// failure markers so one bad trial cannot sink the batch.
func (o *Optimizer) runTrial(ctx context.Context, engine *backtest.Engine, candles []candle.Candle, provider string, params strategy.Params) trialOutcome {
	if o.JobTimeout <= 0 {
		return o.evalTrial(engine, candles, provider, params)
	}

	done := make(chan trialOutcome, 1)
	go func() {
		done <- o.evalTrial(engine, candles, provider, params)
	}()
	timer := time.NewTimer(o.JobTimeout)
	defer timer.Stop()
	select {
	case out := <-done:
		return out
	case <-timer.C:
		// The stuck goroutine finishes on its own; its result is dropped.
		return trialOutcome{err: fmt.Errorf("trial timed out after %s", o.JobTimeout)}
	case <-ctx.Done():
		return trialOutcome{err: ctx.Err()}
	}
}

func (o *Optimizer) evalTrial(engine *backtest.Engine, candles []candle.Candle, provider string, params strategy.Params) (out trialOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = trialOutcome{err: fmt.Errorf("trial panicked: %v", r)}
		}
	}()

	frame, err := o.Catalog.Build(candles, provider, params, o.Filters)
	if err != nil {
		return trialOutcome{err: err}
	}
	result, err := engine.Run(candles, frame)
	if err != nil {
		return trialOutcome{err: err}
	}
	return trialOutcome{result: &Result{
		Params:  params.Clone(),
		Metrics: result.Metrics,
	}}
}

// rank computes composite scores and sorts best-first. Ties break on higher
// trade count, then on the smaller drawdown.
func (o *Optimizer) rank(results []Result) []Result {
	for i := range results {
		results[i].RankScore = o.Score(results[i].Metrics)
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.RankScore != b.RankScore {
			return a.RankScore > b.RankScore
		}
		if a.Metrics["total_trades"] != b.Metrics["total_trades"] {
			return a.Metrics["total_trades"] > b.Metrics["total_trades"]
		}
		return math.Abs(a.Metrics["max_drawdown"]) < math.Abs(b.Metrics["max_drawdown"])
	})
	return results
}

// Score computes the composite rank score. Components are normalized before
// weighting: ROI capped at 200%, profit factor at 3, drawdown mapped so 0%
// scores 1.0 and 100% scores 0.
func (o *Optimizer) Score(m map[string]float64) float64 {
	roi := math.Min(math.Max(m["roi"]/100, -1), 2)
	pf := math.Min(m["profit_factor"]/3, 1.0)
	dd := math.Max(1-math.Abs(m["max_drawdown"])/100, 0)
	return roi*o.Weights.ROI + pf*o.Weights.ProfitFactor + dd*o.Weights.Drawdown
}

// PrintSummary logs the top results as a table.
func PrintSummary(summary *Summary, topN int) {
	if len(summary.Results) == 0 {
		log.Printf("PrintSummary | no results to display (%d failures, %d zero-trade runs)",
			summary.Failures, summary.NoTrades)
		return
	}
	log.Printf("PrintSummary | top %d of %d results (%d failures, %s elapsed)",
		topN, len(summary.Results), summary.Failures, summary.Elapsed)
	log.Printf("  %-5s %-8s %-8s %-6s %-7s %-9s %s", "Rank", "Score", "ROI%", "PF", "Trades", "MaxDD%", "Params")
	for i, r := range summary.Results {
		if i >= topN {
			break
		}
		log.Printf("  %-5d %-8.4f %-8.2f %-6.2f %-7d %-9.2f %v",
			i+1, r.RankScore, r.Metrics["roi"], r.Metrics["profit_factor"],
			int(r.Metrics["total_trades"]), r.Metrics["max_drawdown"], r.Params)
	}
}
