package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/chaseless/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestComputeFees(t *testing.T) {
	defaults := config.FeeConfig{
		PayerSurchargePercent: decimal.NewFromInt(3),
		PlatformFeePercent:    decimal.NewFromInt(2),
	}

	tests := []struct {
		name      string
		total     string
		fees      config.FeeConfig
		payer     string
		appFee    string
		surcharge string
	}{
		{"round numbers", "100", defaults, "103.00", "2.06", "3.00"},
		{"invoice total", "350", defaults, "360.50", "7.21", "10.50"},
		{"half cent rounds up", "0.50", defaults, "0.52", "0.01", "0.02"},
		{"fractional total", "99.99", defaults, "102.99", "2.06", "3.00"},
		{"no fees", "42.10", config.FeeConfig{PayerSurchargePercent: decimal.Zero, PlatformFeePercent: decimal.Zero}, "42.10", "0.00", "0.00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeFees(decimal.RequireFromString(tc.total), tc.fees, "usd")
			assert.Equal(t, tc.payer, got.PayerAmount.StringFixed(2))
			assert.Equal(t, tc.appFee, got.ApplicationFee.StringFixed(2))
			assert.Equal(t, tc.surcharge, got.Surcharge.StringFixed(2))
			assert.Equal(t, "usd", got.Currency)
		})
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(36050), MinorUnits(decimal.RequireFromString("360.50")))
	assert.Equal(t, int64(1), MinorUnits(decimal.RequireFromString("0.01")))
	assert.Equal(t, int64(0), MinorUnits(decimal.Zero))
}
