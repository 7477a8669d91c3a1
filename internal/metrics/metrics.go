// Package metrics exposes the Prometheus collectors of the expense view.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "expenseview"

const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	loadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "loads_total",
			Help:      "Expense list loads by result.",
		},
		[]string{"result"},
	)

	loadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "load_duration_seconds",
			Help:      "Expense list load latency.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"result"},
	)

	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "commands_applied_total",
			Help:      "Cache commands applied, by command.",
		},
		[]string{"command"},
	)

	cachedExpenses = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "cached_expenses",
		Help:      "Number of expenses in the cached list.",
	})

	cachedTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "cached_total_amount",
		Help:      "Sum of amounts in the cached list.",
	})

	submitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "form",
			Name:      "submits_total",
			Help:      "Create requests by result.",
		},
		[]string{"result"},
	)

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})

	suspiciousRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "suspicious_requests_total",
		Help:      "Requests matching a known probe pattern.",
	})

	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "amqp",
			Name:      "messages_total",
			Help:      "AMQP messages by direction and result.",
		},
		[]string{"direction", "result"},
	)
)

// AMQP message directions.
const (
	DirectionPublish = "publish"
	DirectionConsume = "consume"
)

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// ObserveLoad records one list load.
func ObserveLoad(elapsed time.Duration, err error) {
	r := result(err)
	loadsTotal.WithLabelValues(r).Inc()
	loadDuration.WithLabelValues(r).Observe(elapsed.Seconds())
}

// ObserveCommand records an applied cache command and the resulting list.
func ObserveCommand(name string, count int, total float64) {
	commandsTotal.WithLabelValues(name).Inc()
	cachedExpenses.Set(float64(count))
	cachedTotal.Set(total)
}

// ObserveSubmit records one create request.
func ObserveSubmit(err error) {
	submitsTotal.WithLabelValues(result(err)).Inc()
}

// RateLimited counts a rejected request.
func RateLimited() {
	rateLimited.Inc()
}

// SuspiciousRequest counts a request flagged by the detector.
func SuspiciousRequest() {
	suspiciousRequests.Inc()
}

// ObserveMessage records one published or consumed AMQP message.
func ObserveMessage(direction string, err error) {
	eventsTotal.WithLabelValues(direction, result(err)).Inc()
}
