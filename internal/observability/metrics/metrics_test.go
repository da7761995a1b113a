package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, c.Write(&out))
	return out.GetCounter().GetValue()
}

func TestMetricsRecordLabels(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordNotification("invoice_sent", nil)
	m.RecordNotification("invoice_sent", errors.New("smtp down"))
	m.RecordNotification("invoice_sent", nil)
	m.RecordInvoiceCreated("counter", 350)
	m.ObserveHTTPRequest("GET", "", 404, time.Millisecond)

	assert.Equal(t, float64(2), counterValue(t, m.notifications.WithLabelValues("invoice_sent", "sent")))
	assert.Equal(t, float64(1), counterValue(t, m.notifications.WithLabelValues("invoice_sent", "failed")))
	assert.Equal(t, float64(1), counterValue(t, m.invoicesCreated.WithLabelValues("counter")))
	assert.Equal(t, float64(1), counterValue(t, m.httpRequests.WithLabelValues("GET", "unknown", "4xx")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordFollowUp("email")
		m.RecordPaymentEvent("checkout.session.completed", "processed")
		m.ObserveHTTPRequest("POST", "/api/invoices", 201, time.Second)
	})
}
