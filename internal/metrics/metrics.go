// Package metrics records refresh and command outcomes for the panel and can
// expose them over HTTP for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Outcome string

const (
	Success Outcome = "success"
	Error   Outcome = "error"

	requestTimeout     = 5 * time.Second
	requestIdleTimeout = 10 * time.Second
)

func (o Outcome) String() string {
	return string(o)
}

func outcomeOf(err error) Outcome {
	if err != nil {
		return Error
	}
	return Success
}

var (
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "claim_panel",
		Name:      "refresh_total",
		Help:      "Count of read-state refreshes by resource and outcome.",
	}, []string{"resource", "status"})
	refreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "claim_panel",
		Name:      "refresh_duration_seconds",
		Help:      "Duration of read-state refreshes.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"resource", "status"})
	commandTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "claim_panel",
		Name:      "command_total",
		Help:      "Count of session commands sent to the backend.",
	}, []string{"command", "status"})
	streamEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "claim_panel",
		Subsystem: "stream",
		Name:      "events_total",
		Help:      "Count of live stats stream events.",
	}, []string{"event"})
)

// Resource names used as the refresh label.
const (
	ResourceWallet  = "wallet_stats"
	ResourceClaims  = "claim_logs"
	ResourceSites   = "faucet_sites"
	ResourceSession = "session_status"
)

// ObserveRefresh records a single refresh outcome and its duration.
func ObserveRefresh(resource string, err error, started time.Time) {
	status := outcomeOf(err).String()
	refreshTotal.WithLabelValues(resource, status).Inc()
	refreshDuration.WithLabelValues(resource, status).Observe(time.Since(started).Seconds())
}

// ObserveCommand records a start or stop command outcome.
func ObserveCommand(command string, err error) {
	commandTotal.WithLabelValues(command, outcomeOf(err).String()).Inc()
}

// ObserveStream records a stream event such as "connected", "disconnected"
// or "stats".
func ObserveStream(event string) {
	streamEventsTotal.WithLabelValues(event).Inc()
}

// Handler returns a router serving /metrics.
func Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	return r
}

// NewServer builds the metrics HTTP server for addr. The caller starts it.
func NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      Handler(),
		ReadTimeout:  requestTimeout,
		WriteTimeout: requestTimeout,
		IdleTimeout:  requestIdleTimeout,
	}
}
