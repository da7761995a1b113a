package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/chaseless/internal/clock"
	"github.com/smallbiznis/chaseless/internal/config"
	invoicedomain "github.com/smallbiznis/chaseless/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/chaseless/internal/invoice/repository"
	"github.com/smallbiznis/chaseless/internal/invoice/sequence"
	invoiceservice "github.com/smallbiznis/chaseless/internal/invoice/service"
	issuerrepository "github.com/smallbiznis/chaseless/internal/issuer/repository"
	issuerservice "github.com/smallbiznis/chaseless/internal/issuer/service"
	"github.com/smallbiznis/chaseless/internal/issuercontext"
	"github.com/smallbiznis/chaseless/internal/notification"
	"github.com/smallbiznis/chaseless/internal/payment/adapters/stripe"
	paymentdomain "github.com/smallbiznis/chaseless/internal/payment/domain"
	"github.com/smallbiznis/chaseless/internal/payment/repository"
	"github.com/smallbiznis/chaseless/internal/testutil"
	"github.com/smallbiznis/chaseless/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_test"

type gatewayMock struct {
	mock.Mock
}

func (m *gatewayMock) CreateCheckoutSession(ctx context.Context, params paymentdomain.CheckoutParams) (paymentdomain.CheckoutSession, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(paymentdomain.CheckoutSession), args.Error(1)
}

func (m *gatewayMock) CreateAccount(ctx context.Context, email string) (paymentdomain.Account, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(paymentdomain.Account), args.Error(1)
}

func (m *gatewayMock) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	args := m.Called(ctx, accountID, refreshURL, returnURL)
	return args.String(0), args.Error(1)
}

func (m *gatewayMock) RetrieveAccount(ctx context.Context, accountID string) (paymentdomain.Account, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(paymentdomain.Account), args.Error(1)
}

type silentNotifier struct{}

func (silentNotifier) InvoiceSent(context.Context, notification.InvoiceSent) error { return nil }
func (silentNotifier) Reminder(context.Context, notification.Reminder) error       { return nil }

type fixture struct {
	db       *gorm.DB
	svc      paymentdomain.Service
	invoices invoicedomain.Service
	gateway  *gatewayMock
	clock    *clock.FakeClock
	clientID snowflake.ID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := testutil.OpenDB(t)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	invoiceRepo := invoicerepository.Provide()

	invoices := invoiceservice.New(invoiceservice.Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     invoiceRepo,
		Sequence: sequence.New(config.SequenceCounter, nil, clk, zap.NewNop()),
		Notifier: silentNotifier{},
		Validate: validation.New(),
	})
	issuers := issuerservice.New(issuerservice.Params{
		DB:       conn,
		Log:      zap.NewNop(),
		Clock:    clk,
		Repo:     issuerrepository.Provide(),
		Validate: validation.New(),
	})

	cfg := config.Config{FrontendURL: "http://app.test"}
	cfg.Stripe.Currency = "usd"
	gateway := &gatewayMock{}

	svc := New(Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clk,
		Config: cfg,
		Fees: config.NewStaticFeeConfigHolder(config.FeeConfig{
			PayerSurchargePercent: decimal.NewFromInt(3),
			PlatformFeePercent:    decimal.NewFromInt(2),
		}),
		Repo:        repository.Provide(),
		Gateway:     gateway,
		Webhook:     stripe.NewWebhook(webhookSecret, 0, clk),
		InvoiceRepo: invoiceRepo,
		InvoiceSvc:  invoices,
		IssuerSvc:   issuers,
	})

	clientID := testutil.SeedClient(t, conn, "issuer-1", "Acme", "billing@acme.test")
	return fixture{db: conn, svc: svc, invoices: invoices, gateway: gateway, clock: clk, clientID: clientID}
}

func (f fixture) seedInvoice(t *testing.T, status string) snowflake.ID {
	return testutil.SeedInvoice(t, f.db, testutil.InvoiceSeed{
		IssuerID: "issuer-1",
		ClientID: f.clientID,
		Status:   status,
		Total:    "350",
	})
}

func (f fixture) checkoutRefs(t *testing.T, id snowflake.ID) (*string, *string) {
	t.Helper()
	var row struct {
		StripePaymentIntentID   *string
		StripeCheckoutSessionID *string
	}
	require.NoError(t, f.db.Raw(
		`SELECT stripe_payment_intent_id, stripe_checkout_session_id FROM invoices WHERE id = ?`, id,
	).Scan(&row).Error)
	return row.StripePaymentIntentID, row.StripeCheckoutSessionID
}

func (f fixture) deliver(t *testing.T, payload string) error {
	t.Helper()
	ts := strconv.FormatInt(f.clock.Now().Unix(), 10)
	headers := http.Header{}
	headers.Set("Stripe-Signature", "t="+ts+",v1="+stripe.Sign(webhookSecret, ts, []byte(payload)))
	return f.svc.HandleWebhook(context.Background(), []byte(payload), headers)
}

func TestCheckoutCreatesSessionOnConnectedAccount(t *testing.T) {
	f := newFixture(t)
	testutil.SeedIssuer(t, f.db, "issuer-1", "Jane Doe", "jane@example.com", "acct_1")
	id := f.seedInvoice(t, "sent")

	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(p paymentdomain.CheckoutParams) bool {
		return p.AccountID == "acct_1" &&
			p.AmountMinor == 36050 &&
			p.ApplicationFeeMinor == 721 &&
			p.Currency == "usd" &&
			p.SuccessURL == fmt.Sprintf("http://app.test/invoice/%s?payment_success=true", id) &&
			p.CancelURL == fmt.Sprintf("http://app.test/invoice/%s", id) &&
			p.Metadata["invoice_id"] == id.String() &&
			p.IdempotencyKey != ""
	})).Return(paymentdomain.CheckoutSession{ID: "cs_1", URL: "https://checkout.test/cs_1"}, nil).Once()

	res, err := f.svc.CreateCheckoutSession(context.Background(), id.String())
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/cs_1", res.URL)
	assert.Equal(t, "360.50", res.Fees.PayerAmount.StringFixed(2))
	f.gateway.AssertExpectations(t)

	intent, session := f.checkoutRefs(t, id)
	require.NotNil(t, intent)
	require.NotNil(t, session)
	assert.Equal(t, "cs_1", *intent)
	assert.Equal(t, "cs_1", *session)
}

func TestCheckoutRejectsBeforeCallingProcessor(t *testing.T) {
	f := newFixture(t)
	testutil.SeedIssuer(t, f.db, "issuer-1", "Jane Doe", "jane@example.com", "acct_1")

	paid := f.seedInvoice(t, "paid")
	_, err := f.svc.CreateCheckoutSession(context.Background(), paid.String())
	assert.ErrorIs(t, err, paymentdomain.ErrNotPayable)

	void := f.seedInvoice(t, "void")
	_, err = f.svc.CreateCheckoutSession(context.Background(), void.String())
	assert.ErrorIs(t, err, paymentdomain.ErrNotPayable)

	_, err = f.svc.CreateCheckoutSession(context.Background(), "424242")
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)

	f.gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestCheckoutRequiresConnectedAccount(t *testing.T) {
	f := newFixture(t)
	testutil.SeedIssuer(t, f.db, "issuer-1", "Jane Doe", "jane@example.com", "")
	id := f.seedInvoice(t, "sent")

	_, err := f.svc.CreateCheckoutSession(context.Background(), id.String())
	assert.ErrorIs(t, err, paymentdomain.ErrAccountMissing)
	f.gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestCheckoutProcessorFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	testutil.SeedIssuer(t, f.db, "issuer-1", "Jane Doe", "jane@example.com", "acct_1")
	id := f.seedInvoice(t, "draft")

	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(paymentdomain.CheckoutSession{}, errors.New("card_declined")).Once()

	_, err := f.svc.CreateCheckoutSession(context.Background(), id.String())
	assert.ErrorIs(t, err, paymentdomain.ErrProcessorFailed)

	intent, session := f.checkoutRefs(t, id)
	assert.Nil(t, intent)
	assert.Nil(t, session)
}

func TestWebhookMarksInvoicePaidOnce(t *testing.T) {
	f := newFixture(t)
	testutil.SeedIssuer(t, f.db, "issuer-1", "Jane Doe", "jane@example.com", "acct_1")
	id := f.seedInvoice(t, "sent")
	require.NoError(t, f.db.Exec(
		`UPDATE invoices SET stripe_payment_intent_id = 'cs_7', stripe_checkout_session_id = 'cs_7' WHERE id = ?`, id,
	).Error)

	payload := `{"id":"evt_1","type":"checkout.session.completed","created":1773144000,
		"data":{"object":{"id":"cs_7","payment_intent":"pi_7","payment_status":"paid"}}}`
	require.NoError(t, f.deliver(t, payload))

	ctx := issuercontext.WithIssuerID(context.Background(), "issuer-1")
	got, err := f.invoices.GetByID(ctx, id.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)
	assert.True(t, got.PaidAt.Equal(time.Unix(1773144000, 0)))

	err = f.deliver(t, payload)
	assert.ErrorIs(t, err, paymentdomain.ErrEventAlreadyProcessed)

	var events int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM payment_events WHERE processed_at IS NOT NULL`).Scan(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestWebhookUsesMetadataInvoiceID(t *testing.T) {
	f := newFixture(t)
	id := f.seedInvoice(t, "sent")

	payload := fmt.Sprintf(`{"id":"evt_pi","type":"payment_intent.succeeded",
		"data":{"object":{"id":"pi_x","metadata":{"invoice_id":"%s"}}}}`, id)
	require.NoError(t, f.deliver(t, payload))

	ctx := issuercontext.WithIssuerID(context.Background(), "issuer-1")
	got, err := f.invoices.GetByID(ctx, id.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)
	assert.True(t, got.PaidAt.Equal(f.clock.Now()))
}

func TestWebhookIgnoresUnpaidAndUnknown(t *testing.T) {
	f := newFixture(t)
	id := f.seedInvoice(t, "sent")
	require.NoError(t, f.db.Exec(`UPDATE invoices SET stripe_checkout_session_id = 'cs_u' WHERE id = ?`, id).Error)

	require.NoError(t, f.deliver(t, `{"id":"evt_u","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_u","payment_status":"unpaid"}}}`))
	require.NoError(t, f.deliver(t, `{"id":"evt_r","type":"charge.refunded","data":{"object":{}}}`))
	require.NoError(t, f.deliver(t, `{"id":"evt_n","type":"payment_intent.succeeded","data":{"object":{"id":"pi_nobody"}}}`))

	ctx := issuercontext.WithIssuerID(context.Background(), "issuer-1")
	got, err := f.invoices.GetByID(ctx, id.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusSent, got.Status)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	id := f.seedInvoice(t, "sent")

	payload := fmt.Sprintf(`{"id":"evt_forged","type":"payment_intent.succeeded",
		"data":{"object":{"id":"pi_f","metadata":{"invoice_id":"%s"}}}}`, id)
	headers := http.Header{}
	headers.Set("Stripe-Signature", "t="+strconv.FormatInt(f.clock.Now().Unix(), 10)+",v1=00")
	err := f.svc.HandleWebhook(context.Background(), []byte(payload), headers)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	ctx := issuercontext.WithIssuerID(context.Background(), "issuer-1")
	got, err := f.invoices.GetByID(ctx, id.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusSent, got.Status)
}

func TestConnectOnboarding(t *testing.T) {
	f := newFixture(t)
	testutil.SeedIssuer(t, f.db, "issuer-1", "Jane Doe", "jane@example.com", "")
	ctx := issuercontext.WithIssuerID(context.Background(), "issuer-1")

	status, err := f.svc.AccountStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Connected)

	f.gateway.On("CreateAccount", mock.Anything, "jane@example.com").
		Return(paymentdomain.Account{ID: "acct_new"}, nil).Once()
	f.gateway.On("CreateAccountLink", mock.Anything, "acct_new",
		"http://app.test/user-profile?reauth=true",
		"http://app.test/user-profile?stripe_return=true",
	).Return("https://connect.test/onboard", nil).Twice()

	link, err := f.svc.CreateAccountLink(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://connect.test/onboard", link.URL)
	assert.Equal(t, "acct_new", link.AccountID)

	// The account is reused on the second call.
	_, err = f.svc.CreateAccountLink(ctx)
	require.NoError(t, err)

	f.gateway.On("RetrieveAccount", mock.Anything, "acct_new").
		Return(paymentdomain.Account{ID: "acct_new", DetailsSubmitted: true, PayoutsEnabled: true}, nil).Once()
	status, err = f.svc.AccountStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.True(t, status.DetailsSubmitted)
	assert.True(t, status.PayoutsEnabled)

	f.gateway.AssertExpectations(t)
}
