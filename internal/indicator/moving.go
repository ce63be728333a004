// Package indicator computes technical indicators over closing-price series
// ordered oldest first.
package indicator

// SMA returns the simple moving average series.
// The result has len(prices)-period+1 values; it is empty when there are
// fewer prices than the period.
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	out := make([]float64, 0, len(prices)-period+1)
	var sum float64
	for _, p := range prices[:period] {
		sum += p
	}
	out = append(out, sum/float64(period))

	for i := period; i < len(prices); i++ {
		sum += prices[i] - prices[i-period]
		out = append(out, sum/float64(period))
	}
	return out
}

// EMA returns the exponential moving average series, seeded with the SMA of
// the first period prices.
func EMA(prices []float64, period int) []float64 {
	seed := SMA(prices[:min(len(prices), period)], period)
	if len(seed) == 0 {
		return []float64{}
	}

	k := 2.0 / float64(period+1)
	ema := seed[0]
	out := make([]float64, 0, len(prices)-period+1)
	out = append(out, ema)
	for _, p := range prices[period:] {
		ema += (p - ema) * k
		out = append(out, ema)
	}
	return out
}

// Last returns the final value of a series and whether one exists.
func Last(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}
