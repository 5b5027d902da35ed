package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	quoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teleport",
			Subsystem: "quote",
			Name:      "requests_total",
			Help:      "Total number of quote requests",
		},
		[]string{"source_chain", "outcome"}, // success, error
	)

	quoteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "teleport",
			Subsystem: "quote",
			Name:      "duration_seconds",
			Help:      "Time taken by the aggregator to return a quote",
			Buckets:   prometheus.DefBuckets,
		},
	)

	bridgeExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teleport",
			Subsystem: "bridge",
			Name:      "executions_total",
			Help:      "Total number of bridge executions by outcome",
		},
		[]string{"source_chain", "status", "category"},
	)

	bridgeExecutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "teleport",
			Subsystem: "bridge",
			Name:      "execution_duration_seconds",
			Help:      "Time from submission start to a terminal outcome",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
		},
	)

	statusPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teleport",
			Subsystem: "bridge",
			Name:      "status_polls_total",
			Help:      "Total number of destination status polls",
		},
		[]string{"result"}, // DONE, FAILED, PENDING, NOT_FOUND, error
	)

	dialogSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teleport",
			Subsystem: "dialog",
			Name:      "sessions_total",
			Help:      "Total number of dialog sessions by final view",
		},
		[]string{"view"},
	)
)

// Poll results other than aggregator statuses
const (
	PollResultError = "error"
)

// BridgeMetrics records quote, execution and dialog metrics.
// The zero value and a nil pointer are both usable.
type BridgeMetrics struct{}

func NewBridgeMetrics() *BridgeMetrics {
	return &BridgeMetrics{}
}

// RecordQuote records one quote request
func (m *BridgeMetrics) RecordQuote(sourceChain int64, success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "error"
	}

	quoteRequestsTotal.WithLabelValues(strconv.FormatInt(sourceChain, 10), outcome).Inc()
	quoteDuration.Observe(duration.Seconds())
}

// RecordExecution records a terminal bridge outcome; category is empty on success
func (m *BridgeMetrics) RecordExecution(sourceChain int64, status, category string, duration time.Duration) {
	bridgeExecutionsTotal.WithLabelValues(strconv.FormatInt(sourceChain, 10), status, category).Inc()
	bridgeExecutionDuration.Observe(duration.Seconds())
}

// RecordPoll records one status poll attempt
func (m *BridgeMetrics) RecordPoll(result string) {
	statusPollsTotal.WithLabelValues(result).Inc()
}

// RecordSessionEnd records the view a dialog session was closed on
func (m *BridgeMetrics) RecordSessionEnd(view string) {
	dialogSessionsTotal.WithLabelValues(view).Inc()
}
