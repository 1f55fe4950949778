package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ordersCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created, including batch checkout items.",
	})

	paymentIntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_total",
			Help: "Payment intents created against the gateway.",
		},
		[]string{"outcome"},
	)

	paymentsConfirmedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_confirmed_total",
		Help: "Orders transitioned to PAID after gateway confirmation.",
	})
)

var initOnce sync.Once

// Init registers metrics in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight,
			httpRequestsTotal,
			httpRequestDuration,
			ordersCreatedTotal,
			paymentIntentsTotal,
			paymentsConfirmedTotal,
		)
	})
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// OrderCreated increments the order creation counter.
func OrderCreated() { ordersCreatedTotal.Inc() }

// PaymentIntent records a gateway intent attempt ("ok" or "error").
func PaymentIntent(outcome string) { paymentIntentsTotal.WithLabelValues(outcome).Inc() }

// PaymentConfirmed increments the confirmed payment counter.
func PaymentConfirmed() { paymentsConfirmedTotal.Inc() }

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses resource identifiers so metric label cardinality
// stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	for _, prefix := range []string{
		"/api/v1/users/",
		"/api/v1/providers/",
		"/api/v1/services/",
		"/api/v1/feedbacks/",
		"/api/v1/ratings/",
	} {
		if rest := strings.TrimPrefix(path, prefix); rest != path {
			if rest != "" && !strings.Contains(rest, "/") {
				return prefix + ":id"
			}
		}
	}
	if rest := strings.TrimPrefix(path, "/api/v1/providers/"); rest != path {
		if parts := strings.Split(rest, "/"); len(parts) == 2 && parts[1] == "services" {
			return "/api/v1/providers/:id/services"
		}
	}
	if rest := strings.TrimPrefix(path, "/api/v1/feedbacks/service/"); rest != path && rest != "" && !strings.Contains(rest, "/") {
		return "/api/v1/feedbacks/service/:id"
	}
	if rest := strings.TrimPrefix(path, "/api/v1/orders/"); rest != path && rest != "" {
		parts := strings.Split(rest, "/")
		switch {
		case len(parts) == 1 && parts[0] != "checkout":
			return "/api/v1/orders/:id"
		case len(parts) == 2 && (parts[0] == "user" || parts[0] == "provider"):
			return "/api/v1/orders/" + parts[0] + "/:id"
		case len(parts) == 2 && (parts[1] == "pay" || parts[1] == "confirm-payment"):
			return "/api/v1/orders/:id/" + parts[1]
		}
	}
	return path
}

// statusWriter captures the response code written by the wrapped handler.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
