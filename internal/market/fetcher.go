package market

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"agent-arena-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const klinesPerRequest = 1000

// Fetcher downloads historical klines from the public Binance REST endpoint.
// No API key is required for market data.
type Fetcher struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// NewFetcher creates a rate-limited kline downloader.
func NewFetcher(cfg *config.Market, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:  resty.New().SetBaseURL(cfg.BaseURL),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
}

// doRequest executes one request with rate limiting and retry with
// exponential backoff on 429/418, 5xx and transport errors.
func (f *Fetcher) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		resp, err = req.Execute(method, url)
		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == 418 {
				shouldRetry = true
				if seconds, err := strconv.Atoi(resp.Header().Get("Retry-After")); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
		} else {
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		if retryAfter == 0 {
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		f.logger.Warn("Kline request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// FetchKlines downloads candles for symbol between start (inclusive) and end
// (exclusive), paginating by open time, and computes indicators on the
// result.
func (f *Fetcher) FetchKlines(ctx context.Context, symbol, interval string, start, end time.Time) (*Series, error) {
	stepMs := IntervalSeconds[interval] * 1000
	if stepMs <= 0 {
		return nil, fmt.Errorf("unknown interval %q", interval)
	}

	var candles []Candle
	currentStart := start.UnixMilli()
	endMs := end.UnixMilli()

	for currentStart < endMs {
		var rows [][]any
		req := f.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol":    symbol,
				"interval":  interval,
				"startTime": strconv.FormatInt(currentStart, 10),
				"endTime":   strconv.FormatInt(endMs, 10),
				"limit":     strconv.Itoa(klinesPerRequest),
			}).
			SetResult(&rows).
			SetHeader("Content-Type", "application/json")

		if _, err := f.doRequest(ctx, "GET", "/klines", req); err != nil {
			return nil, fmt.Errorf("failed to fetch klines for %s %s: %w", symbol, interval, err)
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			candle, err := parseKlineRow(row)
			if err != nil {
				return nil, fmt.Errorf("malformed kline row for %s: %w", symbol, err)
			}
			candles = append(candles, candle)
		}

		lastOpen, err := klineOpenTime(rows[len(rows)-1])
		if err != nil {
			return nil, err
		}
		currentStart = lastOpen + stepMs
	}

	AddIndicators(candles)
	f.logger.Info("Fetched klines",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("candles", len(candles)),
	)

	return &Series{Symbol: symbol, Interval: interval, Candles: candles}, nil
}

// Binance kline rows are heterogenous arrays:
// [openTime, open, high, low, close, volume, closeTime, ...].
func parseKlineRow(row []any) (Candle, error) {
	if len(row) < 6 {
		return Candle{}, fmt.Errorf("expected at least 6 fields, got %d", len(row))
	}
	openMs, err := klineOpenTime(row)
	if err != nil {
		return Candle{}, err
	}

	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		s, ok := row[i+1].(string)
		if !ok {
			return Candle{}, fmt.Errorf("field %d is not a string", i+1)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = v
	}

	return Candle{
		OpenTime: time.UnixMilli(openMs).UTC(),
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, nil
}

func klineOpenTime(row []any) (int64, error) {
	ms, ok := row[0].(float64) // JSON numbers decode as float64
	if !ok {
		return 0, fmt.Errorf("open time is not a number")
	}
	return int64(ms), nil
}

// Store is a Provider backed by fetched series.
type Store struct {
	series map[string]*Series // key: symbol + "@" + interval
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{series: make(map[string]*Series)}
}

// Add registers a series with the store, replacing any previous one for the
// same (symbol, interval).
func (s *Store) Add(series *Series) {
	s.series[series.Symbol+"@"+series.Interval] = series
}

// Series returns the history for (symbol, interval), or nil.
func (s *Store) Series(symbol, interval string) *Series {
	return s.series[symbol+"@"+interval]
}

// PriceAt returns the latest known close for symbol at or before ts, looking
// across all loaded intervals and preferring the finest-grained one.
func (s *Store) PriceAt(symbol string, ts time.Time) (float64, bool) {
	var best *Series
	for _, series := range s.series {
		if series.Symbol != symbol {
			continue
		}
		if best == nil || IntervalSeconds[series.Interval] < IntervalSeconds[best.Interval] {
			best = series
		}
	}
	if best == nil {
		return 0, false
	}
	candle, ok := best.At(ts)
	if !ok {
		return 0, false
	}
	return candle.Close, true
}
