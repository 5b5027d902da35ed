package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordersExposeSeries(t *testing.T) {
	logger := logrus.New()
	RegisterMetrics(logger)
	RegisterMetrics(logger) // second registration is tolerated

	var m *BridgeMetrics
	m.RecordQuote(8453, true, 200*time.Millisecond)
	m.RecordExecution(8453, "success", "", 90*time.Second)
	m.RecordPoll("PENDING")
	m.RecordPoll(PollResultError)
	NewBridgeMetrics().RecordSessionEnd("success")

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `teleport_quote_requests_total{outcome="success",source_chain="8453"}`)
	assert.Contains(t, text, `teleport_bridge_executions_total{`)
	assert.Contains(t, text, `status="success"`)
	assert.Contains(t, text, `teleport_bridge_status_polls_total{result="error"}`)
	assert.Contains(t, text, `teleport_dialog_sessions_total{view="success"}`)
}
