package validator

import (
	"context"
	"fmt"
	"log"

	"github.com/amirphl/strategy-lab/internal/backtest"
	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/optimizer"
)

// minSegmentBars is the smallest train/test segment the fold procedures
// accept. Below this an optimization or a score is meaningless.
const minSegmentBars = 10

// WalkForward runs expanding-window validation: for each fold, parameters
// are optimized on everything before the fold boundary and the best
// combination is evaluated out-of-sample on the fold itself. Degradation is
// (train − test) / train per fold, in percent.
func (v *Validator) WalkForward(ctx context.Context, candles []candle.Candle, strat Strategy, ranges optimizer.Ranges) (*Report, error) {
	if err := candle.CheckSeries(candles); err != nil {
		return nil, &backtest.DataError{Reason: err.Error()}
	}
	folds := v.Cfg.Folds
	segment := len(candles) / (folds + 1)
	if segment < minSegmentBars {
		return nil, backtest.NewValidationError(
			"%d bars cannot cover %d walk-forward folds (need at least %d per segment)",
			len(candles), folds, minSegmentBars)
	}

	opt := optimizer.New(v.Engine, v.Catalog)
	opt.Workers = v.Cfg.Workers
	opt.Filters = strat.Filters

	report := &Report{
		Method:    MethodWalkForward,
		Metric:    v.Cfg.Metric,
		Threshold: v.Cfg.MaxDegradation,
	}

	var degradationSum float64
	var scored int
	for fold := 0; fold < folds; fold++ {
		trainEnd := segment * (fold + 1)
		testEnd := segment * (fold + 2)
		if fold == folds-1 {
			testEnd = len(candles) // last fold absorbs the remainder
		}
		fr := FoldResult{Fold: fold, TrainStart: 0, TrainEnd: trainEnd, TestStart: trainEnd, TestEnd: testEnd}

		summary, err := opt.Optimize(ctx, candles[:trainEnd], strat.Provider, ranges)
		if err != nil {
			// A shared-input failure aborts the whole procedure.
			return nil, fmt.Errorf("WalkForward | fold %d optimization: %w", fold, err)
		}
		if len(summary.Results) == 0 {
			fr.Err = "no valid optimization results on training window"
			report.Failures++
			report.Folds = append(report.Folds, fr)
			continue
		}

		best := summary.Results[0]
		fr.BestParams = best.Params
		fr.TrainScore = best.Metrics[v.Cfg.Metric]

		testScore, err := v.score(candles[trainEnd:testEnd], Strategy{
			Provider: strat.Provider,
			Params:   best.Params,
			Filters:  strat.Filters,
		})
		if err != nil {
			fr.Err = err.Error()
			report.Failures++
			report.Folds = append(report.Folds, fr)
			continue
		}
		fr.TestScore = testScore
		fr.Degradation = degradation(fr.TrainScore, testScore)
		report.Folds = append(report.Folds, fr)
		report.Scores = append(report.Scores, testScore)
		degradationSum += fr.Degradation
		scored++
	}

	if scored == 0 {
		log.Printf("WalkForward | WARNING: no fold produced a result (%d failures)", report.Failures)
		return report, nil
	}
	report.AvgDegradation = degradationSum / float64(scored)
	report.Passed = report.AvgDegradation < v.Cfg.MaxDegradation
	return report, nil
}

// degradation is the percentage of train-window performance lost out of
// sample. Zero train score yields zero to keep the ratio defined.
func degradation(trainScore, testScore float64) float64 {
	if trainScore == 0 {
		return 0
	}
	return (trainScore - testScore) / trainScore * 100
}
