package indicator

// RSI returns the latest relative strength index using Wilder smoothing.
// It needs at least period+1 prices; ok is false otherwise.
func RSI(prices []float64, period int) (rsi float64, ok bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(period)
	loss /= float64(period)

	n := float64(period)
	for i := period + 1; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		up, down := 0.0, 0.0
		if d > 0 {
			up = d
		} else {
			down = -d
		}
		gain = (gain*(n-1) + up) / n
		loss = (loss*(n-1) + down) / n
	}

	switch {
	case loss == 0 && gain == 0:
		return 50, true
	case loss == 0:
		return 100, true
	}
	rs := gain / loss
	return 100 - 100/(1+rs), true
}

// ROC returns the rate of change, in percent, between the latest price and
// the price period bars earlier.
func ROC(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}
	past := prices[len(prices)-1-period]
	if past == 0 {
		return 0, false
	}
	return (prices[len(prices)-1] - past) / past * 100, true
}
