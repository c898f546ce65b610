package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	ReviewsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_submitted_total",
			Help: "Review submissions by outcome",
		},
		[]string{"outcome"}, // "appended", "duplicate", "missing"
	)

	RatingRecomputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_recomputations_total",
			Help: "Rating recomputations by outcome",
		},
		[]string{"outcome"}, // "updated", "skipped", "missing", "error"
	)

	ChangeFeedEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "changefeed_events_total",
			Help: "Review ledger change events handled",
		},
	)

	ChangeFeedRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "changefeed_restarts_total",
			Help: "Change feed starts by mode",
		},
		[]string{"mode"}, // "resume", "reconcile"
	)

	PresenceOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_online_users",
			Help: "Users with a live connection in this process",
		},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	RealtimeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_total",
			Help: "Outbound realtime events by event name and outcome",
		},
		[]string{"event", "outcome"}, // outcome: "delivered", "offline", "dropped"
	)

	NotificationsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_written_total",
			Help: "Inbox writes by kind",
		},
		[]string{"kind"}, // "generic", "invitation", "invitation_refreshed"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)
