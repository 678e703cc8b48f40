// Package metric holds the relay's Prometheus collectors.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_active_connections",
			Help: "Number of open signaling WebSocket connections",
		},
	)

	roomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_rooms_active",
			Help: "Number of rooms with at least one member",
		},
	)

	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Inbound signaling messages by kind",
		},
		[]string{"kind"},
	)

	deliveryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_delivery_failures_total",
			Help: "Outbound events that could not be queued for a recipient",
		},
		[]string{"event"},
	)

	protocolViolationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_protocol_violations_total",
			Help: "Connections closed because of a malformed message",
		},
	)
)

func IncrementWSActiveConnections() { wsActiveConnections.Inc() }

func DecrementWSActiveConnections() { wsActiveConnections.Dec() }

func SetRoomsActive(n int) { roomsActive.Set(float64(n)) }

func RecordMessage(kind string) { messagesTotal.WithLabelValues(kind).Inc() }

func RecordDeliveryFailure(event string) { deliveryFailuresTotal.WithLabelValues(event).Inc() }

func RecordProtocolViolation() { protocolViolationsTotal.Inc() }
