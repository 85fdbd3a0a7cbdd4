package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bibliotheque_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bibliotheque_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	borrowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bibliotheque_borrows_total",
		Help: "Count of borrow attempts by result",
	}, []string{"result"})

	returnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bibliotheque_returns_total",
		Help: "Count of return attempts by result",
	}, []string{"result"})

	activeLoans = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bibliotheque_active_loans",
		Help: "Number of loans whose return date is unset",
	})

	overdueLoans = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bibliotheque_overdue_loans",
		Help: "Number of active loans older than the overdue threshold",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveBorrow increments the borrow counter with a result label.
func ObserveBorrow(result string) {
	borrowsTotal.WithLabelValues(result).Inc()
}

// ObserveReturn increments the return counter with a result label.
func ObserveReturn(result string) {
	returnsTotal.WithLabelValues(result).Inc()
}

// IncrementActiveLoans bumps the active loan gauge after a borrow.
func IncrementActiveLoans() {
	activeLoans.Inc()
}

// DecrementActiveLoans lowers the active loan gauge after a return.
func DecrementActiveLoans() {
	activeLoans.Dec()
}

// SetActiveLoans sets the active loan gauge to an absolute count.
func SetActiveLoans(count int) {
	if count < 0 {
		count = 0
	}
	activeLoans.Set(float64(count))
}

// SetOverdueLoans sets the overdue loan gauge to an absolute count.
func SetOverdueLoans(count int) {
	if count < 0 {
		count = 0
	}
	overdueLoans.Set(float64(count))
}
