package promclient

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var OKXFramesReceived = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "okx_frames_received_total",
		Help: "frames read from the okx websocket",
	},
)

var OKXDecodeErrors = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "okx_decode_errors_total",
		Help: "okx frames dropped because they could not be decoded",
	},
)

var OKXReconnects = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "okx_reconnects_total",
		Help: "okx websocket reconnect attempts by reason",
	},
	[]string{"reason"},
)

var OKXConnected = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "okx_ws_connected",
		Help: "1 while the okx websocket is subscribed",
	},
)

var OrderBookUpdates = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "orderbook_updates_total",
		Help: "order book updates by result",
	},
	[]string{"result"},
)

var BroadcastSubscribers = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "broadcast_subscribers",
		Help: "downstream websocket subscribers",
	},
)

var BroadcastIterations = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "broadcast_iterations_total",
		Help: "broadcast iterations that pushed to at least one subscriber",
	},
)

var BroadcastPushFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "broadcast_push_failures_total",
		Help: "pushes that failed and dropped their subscriber",
	},
)

// NewRegistry registers the bridge collectors together with the go runtime collector.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(OKXFramesReceived)
	reg.MustRegister(OKXDecodeErrors)
	reg.MustRegister(OKXReconnects)
	reg.MustRegister(OKXConnected)
	reg.MustRegister(OrderBookUpdates)
	reg.MustRegister(BroadcastSubscribers)
	reg.MustRegister(BroadcastIterations)
	reg.MustRegister(BroadcastPushFailures)
	reg.MustRegister(collectors.NewGoCollector())

	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
