package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lingochat_messages_sent_total",
		Help: "Messages accepted and persisted by the server.",
	})

	TranslationsProxied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lingochat_translations_proxied_total",
		Help: "Translation requests forwarded to the translation backend.",
	})

	PushDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lingochat_push_deliveries_total",
		Help: "Messages pushed to connected websocket clients.",
	})
)
