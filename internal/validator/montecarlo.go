package validator

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"

	"github.com/amirphl/strategy-lab/internal/backtest"
	"github.com/amirphl/strategy-lab/internal/candle"
)

// resampleFunc builds one synthetic candle series from the original.
type resampleFunc func(rng *rand.Rand, candles []candle.Candle) []candle.Candle

// MonteCarloReturns shuffles per-bar percentage changes and rebuilds a
// synthetic price path. Preserves the return distribution while destroying
// their ordering.
func (v *Validator) MonteCarloReturns(ctx context.Context, candles []candle.Candle, strat Strategy) (*Report, error) {
	return v.monteCarlo(ctx, candles, strat, MethodMonteCarloReturns, ShuffleReturns)
}

// MonteCarloOHLC permutes whole bars, destroying all temporal order. The
// strictest shuffle: it also breaks autocorrelation the returns shuffle
// leaves in bar ranges.
func (v *Validator) MonteCarloOHLC(ctx context.Context, candles []candle.Candle, strat Strategy) (*Report, error) {
	return v.monteCarlo(ctx, candles, strat, MethodMonteCarloOHLC, ShuffleOHLC)
}

// MonteCarloBlocks permutes contiguous blocks of bars, preserving intra-block
// trend structure while destroying regime ordering.
func (v *Validator) MonteCarloBlocks(ctx context.Context, candles []candle.Candle, strat Strategy) (*Report, error) {
	if len(candles) < 2*v.Cfg.BlockSize {
		return nil, backtest.NewValidationError(
			"block shuffle needs at least 2 blocks: %d bars with block size %d", len(candles), v.Cfg.BlockSize)
	}
	blockSize := v.Cfg.BlockSize
	return v.monteCarlo(ctx, candles, strat, MethodMonteCarloBlocks,
		func(rng *rand.Rand, candles []candle.Candle) []candle.Candle {
			return ShuffleBlocks(rng, candles, blockSize)
		})
}

// monteCarlo runs the shared resample-rerun-compare procedure. Each run gets
// its own deterministic RNG so runs are independent and the whole procedure
// reproduces from the seed.
func (v *Validator) monteCarlo(ctx context.Context, candles []candle.Candle, strat Strategy, method string, resample resampleFunc) (*Report, error) {
	if err := candle.CheckSeries(candles); err != nil {
		return nil, &backtest.DataError{Reason: err.Error()}
	}
	original, err := v.score(candles, strat)
	if err != nil {
		return nil, fmt.Errorf("monteCarlo | scoring original series: %w", err)
	}

	type outcome struct {
		score float64
		err   error
	}
	outcomes := make([]outcome, v.Cfg.Runs)

	workers := v.Cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for run := range jobs {
				if ctx.Err() != nil {
					outcomes[run] = outcome{err: ctx.Err()}
					continue
				}
				rng := rand.New(rand.NewSource(v.Cfg.Seed + int64(run)))
				synthetic := resample(rng, candles)
				score, err := v.score(synthetic, strat)
				outcomes[run] = outcome{score: score, err: err}
			}
		}()
	}
	for run := 0; run < v.Cfg.Runs; run++ {
		jobs <- run
	}
	close(jobs)
	wg.Wait()

	report := &Report{
		Method:        method,
		Metric:        v.Cfg.Metric,
		OriginalScore: original,
		Threshold:     v.Cfg.PercentileThreshold,
	}
	for _, out := range outcomes {
		if out.err != nil {
			report.Failures++
			continue
		}
		report.Scores = append(report.Scores, out.score)
	}
	if len(report.Scores) == 0 {
		log.Printf("monteCarlo | WARNING: %s produced no valid synthetic runs (%d failures)", method, report.Failures)
		return report, nil
	}
	report.Percentile = percentile(original, report.Scores)
	report.Passed = report.Percentile > v.Cfg.PercentileThreshold
	return report, nil
}

// ShuffleReturns permutes close-to-close percentage changes and rebuilds the
// series from the original starting price. Each bar's open/high/low are
// scaled by the ratio of new close to original close so the bar keeps its
// internal shape. Timestamps and volumes stay in place.
func ShuffleReturns(rng *rand.Rand, candles []candle.Candle) []candle.Candle {
	changes := candle.PctChanges(candles)
	rng.Shuffle(len(changes), func(i, j int) {
		changes[i], changes[j] = changes[j], changes[i]
	})

	synthetic := make([]candle.Candle, len(candles))
	synthetic[0] = candles[0]
	prevClose := candles[0].Close
	for i := 1; i < len(candles); i++ {
		newClose := prevClose * (1 + changes[i-1])
		ratio := 1.0
		if candles[i].Close != 0 {
			ratio = newClose / candles[i].Close
		}
		c := candles[i]
		c.Open *= ratio
		c.High *= ratio
		c.Low *= ratio
		c.Close = newClose
		synthetic[i] = c
		prevClose = newClose
	}
	return synthetic
}

// ShuffleOHLC permutes whole bars while keeping the original timestamp
// sequence, so each bar's internal OHLC relationship survives but all
// temporal ordering is destroyed.
func ShuffleOHLC(rng *rand.Rand, candles []candle.Candle) []candle.Candle {
	perm := rng.Perm(len(candles))
	synthetic := make([]candle.Candle, len(candles))
	for i, j := range perm {
		c := candles[j]
		c.Timestamp = candles[i].Timestamp
		synthetic[i] = c
	}
	return synthetic
}

// ShuffleBlocks partitions the series into contiguous blocks of blockSize
// bars (the final block keeps the remainder) and permutes the block order,
// reassigning the original timestamp sequence.
func ShuffleBlocks(rng *rand.Rand, candles []candle.Candle, blockSize int) []candle.Candle {
	var blocks [][]candle.Candle
	for start := 0; start < len(candles); start += blockSize {
		end := start + blockSize
		if end > len(candles) {
			end = len(candles)
		}
		blocks = append(blocks, candles[start:end])
	}
	rng.Shuffle(len(blocks), func(i, j int) {
		blocks[i], blocks[j] = blocks[j], blocks[i]
	})

	synthetic := make([]candle.Candle, 0, len(candles))
	for _, block := range blocks {
		synthetic = append(synthetic, block...)
	}
	for i := range synthetic {
		synthetic[i].Timestamp = candles[i].Timestamp
	}
	return synthetic
}
