package metrics

import (
	"net/http"
	"time"

	"campcompass/roompotcrawler/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "roompot", Name: "fetch_total", Help: "Accommodation page fetches."},
		[]string{"crawler", "status"},
	)
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "roompot", Name: "fetch_duration_seconds",
			Help:    "Accommodation page fetch duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"crawler"},
	)
	SessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "roompot", Name: "session_events_total", Help: "Crawler session opens/closes."},
		[]string{"crawler", "event"}, // event: open|close|open_failed
	)
	ImagesDownloaded = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "roompot", Name: "images_downloaded_total", Help: "Gallery images stored."},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "roompot", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"},
	)
)

// InitRegistry registers all collectors on a fresh registry
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(FetchTotal, FetchDuration, SessionEvents, ImagesDownloaded, CacheEvents)
	return reg
}

// Handler exposes the registry in the Prometheus text format
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Serve starts the metrics endpoint in the background. An empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(reg))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogError("metrics", err, "metrics server failed")
		}
	}()
	return srv
}

func ObserveFetch(crawler string, err error, dur time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	FetchTotal.WithLabelValues(crawler, status).Inc()
	FetchDuration.WithLabelValues(crawler).Observe(dur.Seconds())
}

func ObserveSession(crawler, event string) {
	SessionEvents.WithLabelValues(crawler, event).Inc()
}

func ObserveImages(n int) {
	ImagesDownloaded.Add(float64(n))
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}
