// Package metrics exports bridge health counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Handshakes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emotions_bridge_handshakes_total",
			Help: "Completed handshakes by kind and final state",
		},
		[]string{"kind", "state"},
	)

	HandshakeAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emotions_bridge_handshake_attempts_total",
			Help: "Frames written to the face board",
		},
		[]string{"kind"},
	)

	HandshakeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "emotions_bridge_handshake_duration_seconds",
			Help:    "Time from first write to final state",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	AckFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emotions_bridge_ack_failures_total",
			Help: "Failed acknowledgement attempts by reason",
		},
		[]string{"reason"},
	)

	Notifications = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emotions_bridge_notifications_total",
			Help: "Emotion change notifications received",
		},
	)

	NotificationsCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emotions_bridge_notifications_coalesced_total",
			Help: "Notifications replaced by a newer one before being sent",
		},
	)

	CurrentEmotion = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "emotions_bridge_current_emotion",
			Help: "1 for the emotion currently applied, 0 otherwise",
		},
		[]string{"emotion"},
	)
)

// SetCurrentEmotion flips the current emotion gauge from prev to next.
func SetCurrentEmotion(prev, next string) {
	if prev != "" && prev != next {
		CurrentEmotion.WithLabelValues(prev).Set(0)
	}
	CurrentEmotion.WithLabelValues(next).Set(1)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
