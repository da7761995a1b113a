package domain

import "errors"

var (
	ErrInvalidConfig         = errors.New("payment_not_configured")
	ErrNotPayable            = errors.New("invoice_not_payable")
	ErrAccountMissing        = errors.New("payment_account_missing")
	ErrProcessorFailed       = errors.New("payment_processor_failed")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
)
