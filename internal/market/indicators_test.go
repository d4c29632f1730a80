package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatCandles(n int, price float64) []Candle {
	start := time.Date(2025, 11, 14, 0, 0, 0, 0, time.UTC)
	out := make([]Candle, n)
	for i := range out {
		out[i] = Candle{
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Open:     price, High: price, Low: price, Close: price,
		}
	}
	return out
}

func TestAddIndicators_FlatSeries(t *testing.T) {
	candles := flatCandles(60, 100)
	AddIndicators(candles)

	last := candles[len(candles)-1]
	assert.InDelta(t, 100.0, last.EMA20, 1e-6)
	assert.InDelta(t, 100.0, last.EMA50, 1e-6)
	assert.InDelta(t, 0.0, last.MACD, 1e-9)
	assert.InDelta(t, 0.0, last.ATR14, 1e-9)
	// No gains and no losses: RSI collapses to 0 under the guarded division.
	assert.False(t, math.IsNaN(last.RSI14))
}

func TestAddIndicators_TrendingSeries(t *testing.T) {
	candles := flatCandles(60, 100)
	for i := range candles {
		p := 100 + float64(i)
		candles[i].Open = p
		candles[i].High = p + 1
		candles[i].Low = p - 1
		candles[i].Close = p
	}
	AddIndicators(candles)

	last := candles[len(candles)-1]
	assert.Greater(t, last.MACD, 0.0, "uptrend has positive MACD")
	assert.InDelta(t, 100.0, last.RSI14, 1e-6, "all gains pins RSI at 100")
	assert.Greater(t, last.EMA20, last.EMA50, "fast EMA above slow EMA in an uptrend")
	assert.Greater(t, last.ATR14, 0.0)
}

func TestAddIndicators_Empty(t *testing.T) {
	require.NotPanics(t, func() { AddIndicators(nil) })
}
