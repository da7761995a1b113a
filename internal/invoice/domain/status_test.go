package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		persisted Status
		due       time.Time
		want      Status
	}{
		{"sent past due", StatusSent, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), StatusOverdue},
		{"sent due today", StatusSent, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), StatusSent},
		{"sent due later", StatusSent, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), StatusSent},
		{"draft past due", StatusDraft, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), StatusDraft},
		{"paid past due", StatusPaid, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), StatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DisplayStatus(tc.persisted, tc.due, now))
		})
	}
}

func TestNotifiesClient(t *testing.T) {
	assert.True(t, NotifiesClient(StatusDraft, StatusSent))
	assert.True(t, NotifiesClient(StatusOverdue, StatusSent))
	assert.True(t, NotifiesClient("", StatusSent))
	assert.False(t, NotifiesClient(StatusSent, StatusSent))
	assert.False(t, NotifiesClient(StatusDraft, StatusPaid))
}

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus(" Sent ")
	require.NoError(t, err)
	assert.Equal(t, StatusSent, got)

	_, err = ParseStatus("archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestPayable(t *testing.T) {
	assert.True(t, StatusDraft.Payable())
	assert.True(t, StatusSent.Payable())
	assert.True(t, StatusOverdue.Payable())
	assert.False(t, StatusPaid.Payable())
	assert.False(t, StatusVoid.Payable())
}

func TestNumericAcceptsAnything(t *testing.T) {
	var items []ItemInput
	payload := `[
		{"description":"Design","quantity":2,"unit_price":"150"},
		{"description":"Hosting","quantity":"1","unit_price":50.5},
		{"description":"Junk","quantity":"two","unit_price":{"x":1}},
		{"description":"Empty","quantity":null,"unit_price":true},
		{"description":"Huge","quantity":"1e99999999","unit_price":"-1e-99999999"},
		{"description":"Wide","quantity":"1000000000000","unit_price":"0.5e-40"}
	]`
	require.NoError(t, json.Unmarshal([]byte(payload), &items))
	require.Len(t, items, 6)

	assert.True(t, items[0].Quantity.Decimal().Equal(decimal.NewFromInt(2)))
	assert.True(t, items[0].UnitPrice.Decimal().Equal(decimal.NewFromInt(150)))
	assert.True(t, items[1].UnitPrice.Decimal().Equal(decimal.RequireFromString("50.5")))
	assert.True(t, items[2].Quantity.Decimal().IsZero())
	assert.True(t, items[2].UnitPrice.Decimal().IsZero())
	assert.True(t, items[3].Quantity.Decimal().IsZero())
	assert.True(t, items[3].UnitPrice.Decimal().IsZero())

	for _, it := range items[4:] {
		assert.True(t, it.Quantity.Decimal().IsZero(), it.Description)
		assert.True(t, it.UnitPrice.Decimal().IsZero(), it.Description)
		assert.True(t, LineAmount(it.Quantity.Decimal().Round(quantityScale), it.UnitPrice.Decimal().Round(moneyScale)).IsZero())
	}
	assert.True(t, ParseAmount("999999999999.99").Equal(decimal.RequireFromString("999999999999.99")))
	assert.True(t, ParseAmount("1.5e3").Equal(decimal.NewFromInt(1500)))
}

func TestTotalSumsRoundedLines(t *testing.T) {
	items := []Item{
		{Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(150)},
		{Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)},
		{Quantity: decimal.RequireFromString("0.333"), UnitPrice: decimal.RequireFromString("10.00")},
	}
	assert.Equal(t, "353.33", Total(items).StringFixed(2))
	assert.True(t, ParseAmount("not a number").IsZero())

	// The total is what the printed lines add up to, not the rounded exact sum.
	third := Item{Quantity: decimal.RequireFromString("0.3333"), UnitPrice: decimal.RequireFromString("0.01")}
	split := []Item{third, third, third}
	assert.Equal(t, "0.00", Total(split).StringFixed(2))
	exact := decimal.Zero
	for _, it := range split {
		exact = exact.Add(it.Quantity.Mul(it.UnitPrice))
	}
	assert.Equal(t, "0.01", exact.Round(2).StringFixed(2))
}
