package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ingestion metrics
	MessagesIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatslive_messages_ingested_total",
			Help: "Total number of messages added to the store by platform",
		},
		[]string{"platform"},
	)

	MessagesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatslive_messages_dropped_total",
			Help: "Messages discarded because no connection owned them",
		},
		[]string{"platform"},
	)

	AdapterErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatslive_adapter_errors_total",
			Help: "Adapter connect/refresh failures by platform and operation",
		},
		[]string{"platform", "operation"},
	)

	ConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "whatslive_connections_active",
			Help: "Number of registered platform connections",
		},
	)

	// Display metrics
	DisplayPromotions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "whatslive_display_promotions_total",
			Help: "Total number of messages sent to display",
		},
	)

	DisplayQueueLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "whatslive_display_queue_length",
			Help: "Number of messages in the display queue",
		},
	)

	// WhatsApp session metrics
	SessionStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "whatslive_session_status",
			Help: "WhatsApp session status (1 for the current status)",
		},
		[]string{"status"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatslive_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"route", "status"},
	)

	StreamSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "whatslive_stream_subscribers",
			Help: "Open status stream and websocket subscribers",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(MessagesIngested)
	prometheus.MustRegister(MessagesDropped)
	prometheus.MustRegister(AdapterErrors)
	prometheus.MustRegister(ConnectionsActive)
	prometheus.MustRegister(DisplayPromotions)
	prometheus.MustRegister(DisplayQueueLength)
	prometheus.MustRegister(SessionStatus)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(StreamSubscribers)
}

// SetSessionStatus marks status as the only active session status
func SetSessionStatus(current string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		SessionStatus.WithLabelValues(s).Set(v)
	}
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
