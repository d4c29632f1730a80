package market

// AddIndicators fills the EMA/MACD/RSI/ATR columns of the series in place.
// Formulas match the common charting definitions: EMA with span smoothing
// 2/(n+1), MACD(12,26,9), RSI over a simple rolling mean of gains/losses,
// ATR(14) over the true range.
func AddIndicators(candles []Candle) {
	if len(candles) == 0 {
		return
	}

	closes := make([]float64, len(candles))
	for i := range candles {
		closes[i] = candles[i].Close
	}

	ema20 := ema(closes, 20)
	ema50 := ema(closes, 50)
	ema12 := ema(closes, 12)
	ema26 := ema(closes, 26)

	macd := make([]float64, len(candles))
	for i := range macd {
		macd[i] = ema12[i] - ema26[i]
	}
	signal := ema(macd, 9)

	rsi7 := rsi(closes, 7)
	rsi14 := rsi(closes, 14)
	atr14 := atr(candles, 14)

	for i := range candles {
		candles[i].EMA20 = ema20[i]
		candles[i].EMA50 = ema50[i]
		candles[i].MACD = macd[i]
		candles[i].MACDSignal = signal[i]
		candles[i].MACDHist = macd[i] - signal[i]
		candles[i].RSI7 = rsi7[i]
		candles[i].RSI14 = rsi14[i]
		candles[i].ATR14 = atr14[i]
	}
}

func ema(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

func rsi(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) <= period {
		return out
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	for i := period; i < len(closes); i++ {
		var avgGain, avgLoss float64
		for j := i - period + 1; j <= i; j++ {
			avgGain += gains[j]
			avgLoss += losses[j]
		}
		avgGain /= float64(period)
		avgLoss /= float64(period)
		if avgLoss == 0 {
			avgLoss = 1e-9
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

func atr(candles []Candle, period int) []float64 {
	out := make([]float64, len(candles))
	if len(candles) <= period {
		return out
	}

	tr := make([]float64, len(candles))
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		hl := candles[i].High - candles[i].Low
		hc := abs(candles[i].High - candles[i-1].Close)
		lc := abs(candles[i].Low - candles[i-1].Close)
		tr[i] = max3(hl, hc, lc)
	}

	for i := period; i < len(candles); i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += tr[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
