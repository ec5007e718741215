package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebSocket Metrics
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_active",
		Help: "The current number of active WebSocket connections.",
	})
	TotalConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_connections_total",
		Help: "The total number of WebSocket connections accepted.",
	})

	// Relay Metrics
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_events_received_total",
		Help: "The total number of inbound relay events, by type.",
	}, []string{"type"})
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_deliveries_total",
		Help: "The total number of frames handed to connections, by outbound event.",
	}, []string{"event"})
	DeliveriesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_deliveries_dropped_total",
		Help: "The total number of frames dropped because a connection could not accept them.",
	})
	InvalidFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_frames_invalid_total",
		Help: "The total number of malformed or unknown inbound frames.",
	})
	PresenceEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "presence_entries",
		Help: "The current number of presence entries.",
	})

	// Auth Metrics
	AuthSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_success_total",
		Help: "The total number of successful authentications.",
	})
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_failures_total",
		Help: "The total number of failed authentications.",
	}, []string{"reason"})
)
