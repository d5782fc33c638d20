package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsTotal      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_companion", Name: "commands_total", Help: "Total passenger commands dispatched"})
	CommandsDropped    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_companion", Name: "commands_dropped_total", Help: "Commands dropped by the in-flight guard"})
	ClassifierFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_companion", Name: "classifier_failures_total", Help: "Classifier calls recovered with the fallback response"})
	ClassifierLatency  = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "ride_companion", Name: "classifier_latency_seconds", Help: "Intent classifier latency seconds"})
	EmergenciesTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_companion", Name: "emergencies_total", Help: "Emergency activations"})
	VisionCooldowns    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_companion", Name: "vision_cooldowns_total", Help: "Vision rate-limit cooldowns entered"})
	RidesStarted       = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_companion", Name: "rides_started_total", Help: "Rides that reached IN_RIDE"})
	RidesFinished      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_companion", Name: "rides_finished_total", Help: "Rides that reached FINISHED"})

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_companion", Name: "notifications_total", Help: "Caregiver notifications sent by kind"},
		[]string{"kind"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_companion", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_companion",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
