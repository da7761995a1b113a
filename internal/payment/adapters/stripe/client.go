// Package stripe talks to the Stripe REST API over plain form posts and
// authenticates Stripe webhook deliveries.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/chaseless/internal/config"
	paymentdomain "github.com/smallbiznis/chaseless/internal/payment/domain"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.stripe.com"

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non 2xx answer from Stripe.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("stripe: %d: %s", e.Status, e.Message)
}

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(apiKey, baseURL string, httpClient *http.Client, log *zap.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: baseURL,
		http:    httpClient,
		log:     log.Named("stripe.client"),
	}
}

// NewGateway builds the processor client from configuration.
func NewGateway(cfg config.Config, log *zap.Logger) paymentdomain.Gateway {
	return NewClient(cfg.Stripe.SecretKey, cfg.Stripe.APIBaseURL, nil, log)
}

type checkoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentIntent string `json:"payment_intent"`
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params paymentdomain.CheckoutParams) (paymentdomain.CheckoutSession, error) {
	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("payment_method_types[]", "card")
	values.Set("line_items[0][quantity]", "1")
	values.Set("line_items[0][price_data][currency]", strings.ToLower(params.Currency))
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.AmountMinor, 10))
	values.Set("line_items[0][price_data][product_data][name]", params.ProductName)
	if params.ApplicationFeeMinor > 0 {
		values.Set("payment_intent_data[application_fee_amount]", strconv.FormatInt(params.ApplicationFeeMinor, 10))
	}
	values.Set("success_url", params.SuccessURL)
	values.Set("cancel_url", params.CancelURL)
	if params.CustomerEmail != "" {
		values.Set("customer_email", params.CustomerEmail)
	}
	for key, value := range params.Metadata {
		values.Set("metadata["+key+"]", value)
		values.Set("payment_intent_data[metadata]["+key+"]", value)
	}

	var session checkoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", values, params.AccountID, params.IdempotencyKey, &session); err != nil {
		return paymentdomain.CheckoutSession{}, err
	}
	if session.ID == "" || session.URL == "" {
		return paymentdomain.CheckoutSession{}, errors.New("stripe_response_invalid")
	}
	return paymentdomain.CheckoutSession{
		ID:              session.ID,
		URL:             session.URL,
		PaymentIntentID: session.PaymentIntent,
	}, nil
}

func (c *Client) CreateAccount(ctx context.Context, email string) (paymentdomain.Account, error) {
	values := url.Values{}
	values.Set("type", "express")
	if email = strings.TrimSpace(email); email != "" {
		values.Set("email", email)
	}
	values.Set("capabilities[card_payments][requested]", "true")
	values.Set("capabilities[transfers][requested]", "true")

	var account paymentdomain.Account
	if err := c.do(ctx, http.MethodPost, "/v1/accounts", values, "", "", &account); err != nil {
		return paymentdomain.Account{}, err
	}
	if account.ID == "" {
		return paymentdomain.Account{}, errors.New("stripe_response_invalid")
	}
	return account, nil
}

func (c *Client) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	values := url.Values{}
	values.Set("account", accountID)
	values.Set("refresh_url", refreshURL)
	values.Set("return_url", returnURL)
	values.Set("type", "account_onboarding")

	var link struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/account_links", values, "", "", &link); err != nil {
		return "", err
	}
	if link.URL == "" {
		return "", errors.New("stripe_response_invalid")
	}
	return link.URL, nil
}

func (c *Client) RetrieveAccount(ctx context.Context, accountID string) (paymentdomain.Account, error) {
	var account paymentdomain.Account
	if err := c.do(ctx, http.MethodGet, "/v1/accounts/"+url.PathEscape(accountID), nil, "", "", &account); err != nil {
		return paymentdomain.Account{}, err
	}
	return account, nil
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	values url.Values,
	accountID string,
	idempotencyKey string,
	out any,
) error {
	if c.apiKey == "" {
		return paymentdomain.ErrInvalidConfig
	}

	var body io.Reader
	if values != nil {
		body = strings.NewReader(values.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if accountID != "" {
		req.Header.Set("Stripe-Account", accountID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Message: "stripe_request_failed"}
		var decoded errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err == nil {
			apiErr.Code = strings.TrimSpace(decoded.Error.Code)
			if msg := strings.TrimSpace(decoded.Error.Message); msg != "" {
				apiErr.Message = msg
			}
		}
		c.log.Warn("stripe request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code),
		)
		return apiErr
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
