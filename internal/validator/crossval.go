package validator

import (
	"context"
	"log"

	"github.com/amirphl/strategy-lab/internal/backtest"
	"github.com/amirphl/strategy-lab/internal/candle"
)

// CrossValidate slides fixed-size train/test windows across the series in
// non-overlapping folds and compares in-window performance of the fixed
// strategy. Consistency is test/train per fold, in percent; a robust edge
// should hold up in segments it was not tuned on.
func (v *Validator) CrossValidate(ctx context.Context, candles []candle.Candle, strat Strategy) (*Report, error) {
	if err := candle.CheckSeries(candles); err != nil {
		return nil, &backtest.DataError{Reason: err.Error()}
	}
	folds := v.Cfg.Folds
	segment := len(candles) / folds
	trainLen := segment * 7 / 10
	testLen := segment - trainLen
	if segment < minSegmentBars || trainLen < candle.MinSeriesLen || testLen < candle.MinSeriesLen {
		return nil, backtest.NewValidationError(
			"%d bars cannot cover %d cross-validation folds (need at least %d per segment)",
			len(candles), folds, minSegmentBars)
	}

	report := &Report{
		Method:    MethodCrossValidation,
		Metric:    v.Cfg.Metric,
		Threshold: v.Cfg.MinConsistency,
	}

	var consistencySum float64
	var scored int
	for fold := 0; fold < folds; fold++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		start := fold * segment
		fr := FoldResult{
			Fold:       fold,
			TrainStart: start,
			TrainEnd:   start + trainLen,
			TestStart:  start + trainLen,
			TestEnd:    start + segment,
		}

		trainScore, err := v.score(candles[fr.TrainStart:fr.TrainEnd], strat)
		if err != nil {
			fr.Err = err.Error()
			report.Failures++
			report.Folds = append(report.Folds, fr)
			continue
		}
		testScore, err := v.score(candles[fr.TestStart:fr.TestEnd], strat)
		if err != nil {
			fr.Err = err.Error()
			report.Failures++
			report.Folds = append(report.Folds, fr)
			continue
		}

		fr.TrainScore = trainScore
		fr.TestScore = testScore
		fr.Consistency = consistency(trainScore, testScore)
		report.Folds = append(report.Folds, fr)
		report.Scores = append(report.Scores, testScore)
		consistencySum += fr.Consistency
		scored++
	}

	if scored == 0 {
		log.Printf("CrossValidate | WARNING: no fold produced a result (%d failures)", report.Failures)
		return report, nil
	}
	report.AvgConsistency = consistencySum / float64(scored)
	report.Passed = report.AvgConsistency > v.Cfg.MinConsistency
	return report, nil
}

// consistency is out-of-window performance retained, in percent. Zero train
// score yields zero.
func consistency(trainScore, testScore float64) float64 {
	if trainScore == 0 {
		return 0
	}
	return testScore / trainScore * 100
}
