package pubsub

import (
	"github.com/prometheus/client_golang/prometheus"
)

var messagesReceived = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pubsub_messages_received_total",
		Help: "The total number of pub/sub messages received per channel",
	},
	[]string{"channel"},
)

func init() {
	prometheus.MustRegister(messagesReceived)
}
