// Package metrics содержит коллекторы Prometheus бота.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lavita"

var (
	// Registry содержит коллекторы приложения.
	Registry = prometheus.NewRegistry()

	updates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "updates_total",
			Help:      "Total number of chat updates handled, by input kind.",
		},
		[]string{"kind"},
	)

	stepErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "step_errors_total",
			Help:      "Conversation steps that ended with an error, by error kind.",
		},
		[]string{"kind"},
	)

	orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Order placement attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	bottles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "bottles_total",
			Help:      "Total number of bottles in placed orders.",
		},
	)

	geocodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "geocode",
			Name:      "duration_seconds",
			Help:      "Duration of reverse geocoding requests.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"result"},
	)

	sessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "sessions_active",
			Help:      "Number of conversations in progress.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		updates,
		stepErrors,
		orders,
		bottles,
		geocodeDuration,
		sessions,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler отдаёт зарегистрированные метрики.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordUpdate учитывает входящее событие.
func RecordUpdate(kind string) {
	updates.WithLabelValues(kind).Inc()
}

// RecordStepError учитывает шаг диалога, завершившийся ошибкой.
func RecordStepError(kind string) {
	stepErrors.WithLabelValues(kind).Inc()
}

// RecordOrder учитывает попытку заказа. quantity учитывается только для размещённых заказов.
func RecordOrder(outcome string, quantity int) {
	orders.WithLabelValues(outcome).Inc()
	if outcome == OutcomePlaced {
		bottles.Add(float64(quantity))
	}
}

// Исходы попытки заказа.
const (
	OutcomePlaced       = "placed"
	OutcomeInsufficient = "insufficient_funds"
	OutcomeFailed       = "failed"
)

// RecordGeocode учитывает запрос к геокодеру.
func RecordGeocode(success bool, duration time.Duration) {
	result := "ok"
	if !success {
		result = "error"
	}
	geocodeDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// SetSessions сохраняет количество активных диалогов.
func SetSessions(n int) {
	sessions.Set(float64(n))
}

// RecordHTTP учитывает обработанный HTTP-запрос.
func RecordHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
