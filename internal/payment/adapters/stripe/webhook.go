package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/chaseless/internal/clock"
	"github.com/smallbiznis/chaseless/internal/config"
	paymentdomain "github.com/smallbiznis/chaseless/internal/payment/domain"
)

// DefaultTolerance bounds how old a signed delivery may be.
const DefaultTolerance = 5 * time.Minute

type Webhook struct {
	secret    string
	tolerance time.Duration
	clock     clock.Clock
}

func NewWebhook(secret string, tolerance time.Duration, clk clock.Clock) *Webhook {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Webhook{
		secret:    strings.TrimSpace(secret),
		tolerance: tolerance,
		clock:     clk,
	}
}

func NewWebhookAdapter(cfg config.Config, clk clock.Clock) paymentdomain.WebhookAdapter {
	return NewWebhook(cfg.Stripe.WebhookSecret, DefaultTolerance, clk)
}

// Verify checks the Stripe-Signature header: any v1 signature must be the
// HMAC-SHA256 of "<t>.<payload>" and t must be within the tolerance.
func (w *Webhook) Verify(payload []byte, headers http.Header) error {
	if w.secret == "" {
		return paymentdomain.ErrInvalidConfig
	}
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	age := w.clock.Now().Sub(time.Unix(unix, 0))
	if age > w.tolerance || age < -w.tolerance {
		return paymentdomain.ErrInvalidSignature
	}

	expected := Sign(w.secret, timestamp, payload)
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return paymentdomain.ErrInvalidSignature
}

// Sign computes the v1 signature for a payload.
func Sign(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Created int64     `json:"created"`
	Data    eventData `json:"data"`
}

type eventData struct {
	Object json.RawMessage `json:"object"`
}

type sessionObject struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	PaymentStatus string            `json:"payment_status"`
	Created       int64             `json:"created"`
	Metadata      map[string]string `json:"metadata"`
}

type intentObject struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Created  int64             `json:"created"`
	Metadata map[string]string `json:"metadata"`
}

// Parse decodes a delivery. Event types other than a completed checkout or a
// succeeded payment intent return ErrEventIgnored.
func (w *Webhook) Parse(payload []byte) (*paymentdomain.PaymentEvent, error) {
	var evt event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(evt.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	out := &paymentdomain.PaymentEvent{
		Provider:        paymentdomain.ProviderStripe,
		ProviderEventID: evt.ID,
		Type:            strings.TrimSpace(evt.Type),
		RawPayload:      payload,
	}

	switch out.Type {
	case paymentdomain.EventCheckoutCompleted:
		var session sessionObject
		if err := json.Unmarshal(evt.Data.Object, &session); err != nil {
			return nil, paymentdomain.ErrInvalidPayload
		}
		if session.ID == "" {
			return nil, paymentdomain.ErrInvalidEvent
		}
		out.SessionID = session.ID
		out.Reference = session.PaymentIntent
		if out.Reference == "" {
			out.Reference = session.ID
		}
		out.Paid = session.PaymentStatus == "paid"
		out.InvoiceID = invoiceIDFromMetadata(session.Metadata)
		out.OccurredAt = timestamp(evt.Created, session.Created)
	case paymentdomain.EventPaymentIntentSucceeded:
		var intent intentObject
		if err := json.Unmarshal(evt.Data.Object, &intent); err != nil {
			return nil, paymentdomain.ErrInvalidPayload
		}
		if intent.ID == "" {
			return nil, paymentdomain.ErrInvalidEvent
		}
		out.Reference = intent.ID
		out.Paid = true
		out.InvoiceID = invoiceIDFromMetadata(intent.Metadata)
		out.OccurredAt = timestamp(evt.Created, intent.Created)
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
	return out, nil
}

func parseSignatureHeader(header string) (string, []string, error) {
	var timestamp string
	signatures := []string{}
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "t":
			timestamp = strings.TrimSpace(value)
		case "v1":
			signatures = append(signatures, strings.TrimSpace(value))
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func invoiceIDFromMetadata(metadata map[string]string) *snowflake.ID {
	raw := strings.TrimSpace(metadata["invoice_id"])
	if raw == "" {
		return nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Time{}
	}
	return time.Unix(value, 0).UTC()
}
