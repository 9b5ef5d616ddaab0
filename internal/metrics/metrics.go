package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "salonbook"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings committed to the store.",
		},
	)

	bookingsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_rejected_total",
			Help:      "Booking attempts rejected, by error code.",
		},
		[]string{"code"},
	)

	slotComputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_computations_total",
			Help:      "Slot lookups, split by cache hit.",
		},
		[]string{"cache"},
	)

	syncTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_tasks_total",
			Help:      "Background task outcomes by type.",
		},
		[]string{"type", "outcome"},
	)

	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Reminder SMS attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			bookingsCreated,
			bookingsRejected,
			slotComputations,
			syncTasks,
			remindersSent,
		)
	})
}

func ObserveHTTP(endpoint string, status int, seconds float64) {
	httpRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(endpoint).Observe(seconds)
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

func IncBookingRejected(code string) {
	bookingsRejected.WithLabelValues(code).Inc()
}

func IncSlotComputation(cacheHit bool) {
	label := "miss"
	if cacheHit {
		label = "hit"
	}
	slotComputations.WithLabelValues(label).Inc()
}

func IncSyncTask(taskType, outcome string) {
	syncTasks.WithLabelValues(taskType, outcome).Inc()
}

func IncReminder(outcome string) {
	remindersSent.WithLabelValues(outcome).Inc()
}
