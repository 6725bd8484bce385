package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	WebhookUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_webhook_updates_total",
			Help: "Telegram updates received, by handling result",
		},
		[]string{"result"},
	)

	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Dispatched chat commands",
		},
		[]string{"command"},
	)

	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_searches_total",
			Help: "Search requests, by outcome",
		},
		[]string{"outcome"},
	)

	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usersbox_requests_total",
			Help: "Requests to the lookup provider, by endpoint and status code",
		},
		[]string{"endpoint", "status"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "usersbox_request_duration_seconds",
			Help:    "Latency of lookup provider requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	MessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_messages_sent_total",
			Help: "Outgoing Telegram messages, by result",
		},
		[]string{"result"},
	)
)
