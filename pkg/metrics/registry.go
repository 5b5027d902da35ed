package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

// RegisterMetrics registers the Go/process collectors and every bridge metric
func RegisterMetrics(logger logrus.FieldLogger) {
	registerIfNotExists(collectors.NewGoCollector(), "go_collector", logger)
	registerIfNotExists(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), "process_collector", logger)

	registerIfNotExists(quoteRequestsTotal, "quote_requests_total", logger)
	registerIfNotExists(quoteDuration, "quote_duration", logger)
	registerIfNotExists(bridgeExecutionsTotal, "bridge_executions_total", logger)
	registerIfNotExists(bridgeExecutionDuration, "bridge_execution_duration", logger)
	registerIfNotExists(statusPollsTotal, "status_polls_total", logger)
	registerIfNotExists(dialogSessionsTotal, "dialog_sessions_total", logger)
}

// registerIfNotExists registers a collector if it's not already registered
func registerIfNotExists(collector prometheus.Collector, name string, logger logrus.FieldLogger) {
	if err := prometheus.Register(collector); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegErr) {
			logger.Debugf("%s already registered", name)
		} else {
			logger.Errorf("Failed to register %s: %v", name, err)
		}
	}
}
