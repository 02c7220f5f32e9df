package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	//
	// dedupe
	//
	NumbersProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "numberlog_values_total",
		Help: "The total number of values processed by the dedupe engine",
	}, []string{"result"})
	NumbersUniqueTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "numberlog_unique_total",
		Help: "Unique values seen since startup, sampled each stats interval",
	})

	//
	// sink
	//
	SinkWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numberlog_sink_written_total",
		Help: "Records written to the numbers log",
	})
	SinkErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numberlog_sink_errors_total",
		Help: "Write or flush failures of the numbers log",
	})
	SinkDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numberlog_sink_dropped_total",
		Help: "Records discarded after the numbers log failed",
	})

	//
	// connections
	//
	ConnectionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "numberlog_connections_open",
		Help: "Currently open submission connections",
	})
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numberlog_connections_total",
		Help: "Submission connections accepted since startup",
	})
	ProtocolErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "numberlog_protocol_errors_total",
		Help: "Connections closed because of a bad submission line",
	}, []string{"reason"})

	//
	// restapi
	//
	RestapiTimes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "numberlog_restapi_time_seconds",
		Help:    "Duration of restapi processing",
		Buckets: []float64{.005, .01, .025, .050, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"method", "path"})
	RestapiCodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "numberlog_restapi_response_codes",
		Help: "The response codes for restapi endpoints",
	}, []string{"method", "path", "code"})

	//
	// stress client
	//
	StressSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numberlog_stress_sent_total",
		Help: "Values sent by the stress client",
	})
)

// RegisterQueueDepth exposes the current length of a pipeline queue.
func RegisterQueueDepth(queue string, depth func() int) error {
	return prometheus.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "numberlog_queue_depth",
		Help:        "Items waiting in a pipeline queue",
		ConstLabels: prometheus.Labels{"queue": queue},
	}, func() float64 { return float64(depth()) }))
}
