package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections",
		Help: "Number of active exchange WebSocket connections",
	})

	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_messages_received_total",
		Help: "Total number of decoded frames received from the feed",
	})

	MessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_messages_dropped_total",
		Help: "Total number of frames dropped before processing",
	}, []string{"reason"})

	GatewayQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_queue_length",
		Help: "Current number of messages waiting in the gateway queue",
	})

	DepthProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depth_messages_processed_total",
		Help: "Total number of depth messages turned into snapshots",
	}, []string{"pair"})

	TriggerEmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trigger_events_total",
		Help: "Total number of emitted trigger events",
	}, []string{"pair", "trigger"})
)
