package market

import "time"

// IntervalSeconds maps kline interval strings to their length in seconds.
var IntervalSeconds = map[string]int64{
	"1m":  60,
	"3m":  180,
	"5m":  300,
	"15m": 900,
	"30m": 1800,
	"1h":  3600,
	"2h":  7200,
	"4h":  14400,
	"1d":  86400,
}

// Candle is one OHLCV bar with its pre-computed indicator values.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64

	EMA20      float64
	EMA50      float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
	RSI7       float64
	RSI14      float64
	ATR14      float64
}

// Series is an ascending-by-time candle history for one (symbol, interval).
type Series struct {
	Symbol   string
	Interval string
	Candles  []Candle
}

// At returns the latest candle at or before ts, or false when the series
// starts after ts.
func (s *Series) At(ts time.Time) (Candle, bool) {
	idx := -1
	for i := range s.Candles {
		if s.Candles[i].OpenTime.After(ts) {
			break
		}
		idx = i
	}
	if idx < 0 {
		return Candle{}, false
	}
	return s.Candles[idx], true
}

// Tail returns up to n candles ending at the latest candle at or before ts.
func (s *Series) Tail(ts time.Time, n int) []Candle {
	end := 0
	for i := range s.Candles {
		if s.Candles[i].OpenTime.After(ts) {
			break
		}
		end = i + 1
	}
	start := end - n
	if start < 0 {
		start = 0
	}
	return s.Candles[start:end]
}

// Provider supplies candle series to the arena. Satisfied by Fetcher-backed
// stores and by canned fixtures in tests.
type Provider interface {
	// Series returns the prepared history for (symbol, interval), or nil
	// when the symbol was not loaded.
	Series(symbol, interval string) *Series
	// PriceAt returns the latest known close for symbol at or before ts.
	PriceAt(symbol string, ts time.Time) (float64, bool)
}
