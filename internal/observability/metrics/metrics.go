package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus instruments for the billing engine.
type Metrics struct {
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	invoicesCreated   *prometheus.CounterVec
	numberConflicts   *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	followUps         *prometheus.CounterVec
	checkoutSessions  *prometheus.CounterVec
	paymentEvents     *prometheus.CounterVec
	invoiceAmount     prometheus.Histogram
	rateLimited       *prometheus.CounterVec
}

// New registers the instruments on reg. A nil registerer falls back to the
// default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chaseless_http_requests_total",
		Help: "Counts HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chaseless_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	invoicesCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chaseless_invoices_created_total",
		Help: "Invoices created by sequence strategy.",
	}, []string{"strategy"})

	numberConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chaseless_invoice_number_conflicts_total",
		Help: "Invoice inserts rejected by the per-issuer number index.",
	}, []string{"strategy"})

	statusTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chaseless_invoice_status_transitions_total",
		Help: "Invoice status changes by prior and target status.",
	}, []string{"from", "to"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chaseless_notifications_total",
		Help: "Outbound client notifications by kind and result.",
	}, []string{"kind", "result"})

	followUps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chaseless_follow_ups_recorded_total",
		Help: "Follow-up records by method.",
	}, []string{"method"})

	checkoutSessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chaseless_checkout_sessions_total",
		Help: "Hosted checkout session requests by result.",
	}, []string{"result"})

	paymentEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chaseless_payment_events_total",
		Help: "Processor webhook events by type and result.",
	}, []string{"type", "result"})

	invoiceAmount := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chaseless_invoice_amount",
		Help:    "Invoice total distribution at write time.",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000},
	})

	rateLimited := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chaseless_rate_limited_total",
		Help: "Requests rejected by the public rate limiter.",
	}, []string{"route"})

	reg.MustRegister(
		httpRequests,
		httpDuration,
		invoicesCreated,
		numberConflicts,
		statusTransitions,
		notifications,
		followUps,
		checkoutSessions,
		paymentEvents,
		invoiceAmount,
		rateLimited,
	)

	return &Metrics{
		httpRequests:      httpRequests,
		httpDuration:      httpDuration,
		invoicesCreated:   invoicesCreated,
		numberConflicts:   numberConflicts,
		statusTransitions: statusTransitions,
		notifications:     notifications,
		followUps:         followUps,
		checkoutSessions:  checkoutSessions,
		paymentEvents:     paymentEvents,
		invoiceAmount:     invoiceAmount,
		rateLimited:       rateLimited,
	}
}

// NewDefault registers on the default registry served at /metrics.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	methodLabel := sanitizeLabel(method)
	routeLabel := sanitizeLabel(route)
	m.httpRequests.WithLabelValues(methodLabel, routeLabel, statusClass(status)).Inc()
	m.httpDuration.WithLabelValues(methodLabel, routeLabel).Observe(duration.Seconds())
}

func (m *Metrics) RecordInvoiceCreated(strategy string, amount float64) {
	if m == nil {
		return
	}
	m.invoicesCreated.WithLabelValues(sanitizeLabel(strategy)).Inc()
	m.invoiceAmount.Observe(amount)
}

func (m *Metrics) RecordNumberConflict(strategy string) {
	if m == nil {
		return
	}
	m.numberConflicts.WithLabelValues(sanitizeLabel(strategy)).Inc()
}

func (m *Metrics) RecordStatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(sanitizeLabel(from), sanitizeLabel(to)).Inc()
}

func (m *Metrics) RecordNotification(kind string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.notifications.WithLabelValues(sanitizeLabel(kind), result).Inc()
}

func (m *Metrics) RecordFollowUp(method string) {
	if m == nil {
		return
	}
	m.followUps.WithLabelValues(sanitizeLabel(method)).Inc()
}

func (m *Metrics) RecordCheckoutSession(result string) {
	if m == nil {
		return
	}
	m.checkoutSessions.WithLabelValues(sanitizeLabel(result)).Inc()
}

func (m *Metrics) RecordPaymentEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues(sanitizeLabel(eventType), sanitizeLabel(result)).Inc()
}

func (m *Metrics) RecordRateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(sanitizeLabel(route)).Inc()
}

func sanitizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "unknown"
	}
}
