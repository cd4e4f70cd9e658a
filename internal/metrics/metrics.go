package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattnest_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wattnest_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Relay metrics
	SocketsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wattnest_sockets_active",
			Help: "Websocket connections currently open",
		},
	)

	RoomsJoined = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wattnest_rooms_joined_total",
			Help: "Total room join requests accepted",
		},
	)

	MessagesRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wattnest_messages_relayed_total",
			Help: "Total chat messages relayed",
		},
	)

	HistoryRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wattnest_history_requests_total",
			Help: "Total room history requests served",
		},
	)

	DroppedFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattnest_dropped_frames_total",
			Help: "Total inbound frames dropped",
		},
		[]string{"reason"},
	)
)
