package domain

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/chaseless/internal/config"
)

var hundred = decimal.NewFromInt(100)

// FeeBreakdown splits what the payer is charged. ApplicationFee is kept by
// the platform out of PayerAmount; the processor's own fee comes out of the
// remainder on the connected account.
type FeeBreakdown struct {
	Currency       string          `json:"currency"`
	InvoiceTotal   decimal.Decimal `json:"invoice_total"`
	Surcharge      decimal.Decimal `json:"surcharge"`
	PayerAmount    decimal.Decimal `json:"payer_amount"`
	ApplicationFee decimal.Decimal `json:"application_fee"`
}

// ComputeFees applies the surcharge to the invoice total and the platform fee
// to the surcharged amount. Both steps round half up to cents.
func ComputeFees(total decimal.Decimal, fees config.FeeConfig, currency string) FeeBreakdown {
	total = total.Round(2)
	payer := total.Mul(decimal.NewFromInt(1).Add(fees.PayerSurchargePercent.Div(hundred))).Round(2)
	applicationFee := payer.Mul(fees.PlatformFeePercent.Div(hundred)).Round(2)
	return FeeBreakdown{
		Currency:       currency,
		InvoiceTotal:   total,
		Surcharge:      payer.Sub(total),
		PayerAmount:    payer,
		ApplicationFee: applicationFee,
	}
}

// MinorUnits converts a two decimal amount to cents.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
