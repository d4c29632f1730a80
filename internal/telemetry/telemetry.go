package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "decision_cache_hits_total", Help: "Decision cache hits"},
	)
	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "decision_cache_misses_total", Help: "Decision cache misses"},
	)
	TradesExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_executed_total", Help: "Simulated orders executed"},
		[]string{"agent", "action"},
	)
	CyclesCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "decision_cycles_total", Help: "Completed decision cycles"},
	)
)

func init() {
	prometheus.MustRegister(CacheHits, CacheMisses, TradesExecuted, CyclesCompleted)
}

// Serve exposes /metrics on addr in a background goroutine.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
