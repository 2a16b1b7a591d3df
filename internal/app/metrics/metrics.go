package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "shop",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shop",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	wizardEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "wizard",
			Name:      "events_total",
			Help:      "Total number of wizard events applied.",
		},
		[]string{"action", "status"},
	)

	ordersRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "orders",
			Name:      "recorded_total",
			Help:      "Total number of orders recorded at checkout.",
		},
	)

	orderSubtotals = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "shop",
			Subsystem: "orders",
			Name:      "subtotal_major_units",
			Help:      "Order subtotals in whole major currency units.",
			Buckets:   prometheus.ExponentialBuckets(25, 2, 12), // 25 to ~50k
		},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "shop",
			Subsystem: "sessions",
			Name:      "live_controllers",
			Help:      "Number of live wizard controllers held in memory.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		wizardEvents,
		ordersRecorded,
		orderSubtotals,
		sessionsActive,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordWizardEvent counts one applied wizard event.
func RecordWizardEvent(action string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	wizardEvents.WithLabelValues(action, status).Inc()
}

// RecordOrder records metrics for a recorded order.
func RecordOrder(subtotalMajor int64) {
	ordersRecorded.Inc()
	orderSubtotals.Observe(float64(subtotalMajor))
}

// SetLiveSessions reports the current number of live controllers.
func SetLiveSessions(n int) {
	sessionsActive.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "sessions" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/sessions"
	}
	if len(parts) == 2 {
		return "/sessions/:session"
	}
	return "/sessions/:session/" + parts[2]
}
