package indicator

import "math"

// CalculateSMA computes a simple moving average. The first period-1 entries
// are NaN (warmup), matching the RSI convention.
func CalculateSMA(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}
	sma := make([]float64, len(values))
	for i := 0; i < period-1; i++ {
		sma[i] = math.NaN()
	}
	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	sma[period-1] = sum / float64(period)
	for i := period; i < len(values); i++ {
		sum += values[i] - values[i-period]
		sma[i] = sum / float64(period)
	}
	return sma
}
