package domain

import (
	"testing"
	"time"

	invoicedomain "github.com/smallbiznis/chaseless/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestRenderResolvesPlaceholders(t *testing.T) {
	data := TemplateData{
		ClientName:    "Acme",
		InvoiceNumber: "INV-2026-004",
		Amount:        "$350.00",
		DueDate:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Now:           time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC),
	}

	got := Render("Hi {{client_name}}, {{invoice_number}} ({{amount}}) was due {{due_date}}, {{days_overdue}} days ago. {{unknown}}", data)
	assert.Equal(t, "Hi Acme, INV-2026-004 ($350.00) was due 2026-03-01, 10 days ago. {{unknown}}", got)
}

func TestDaysOverdue(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysOverdue(due, time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, DaysOverdue(due, time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, 1, DaysOverdue(due, time.Date(2026, 3, 2, 0, 0, 1, 0, time.UTC)))
}

func TestDueReminders(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	base := invoicedomain.Invoice{
		Status:               invoicedomain.StatusSent,
		DueDate:              time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		AutoFollowupsEnabled: true,
	}

	t.Run("disabled", func(t *testing.T) {
		inv := base
		inv.AutoFollowupsEnabled = false
		inv.DueReminderDays = intPtr(1)
		assert.Empty(t, DueReminders(inv, now))
	})

	t.Run("not sent", func(t *testing.T) {
		inv := base
		inv.Status = invoicedomain.StatusPaid
		inv.DueReminderDays = intPtr(1)
		assert.Empty(t, DueReminders(inv, now))
	})

	t.Run("due threshold", func(t *testing.T) {
		inv := base
		inv.DueReminderDays = intPtr(7)
		got := DueReminders(inv, now)
		require.Len(t, got, 1)
		assert.Equal(t, ReminderDue, got[0].Kind)
		assert.True(t, got[0].DueAt.Equal(time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)))

		inv.DueReminderDays = intPtr(14)
		assert.Empty(t, DueReminders(inv, now))
	})

	t.Run("due already chased", func(t *testing.T) {
		inv := base
		inv.DueReminderDays = intPtr(7)
		inv.LastFollowUpAt = timePtr(time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC))
		assert.Empty(t, DueReminders(inv, now))
	})

	t.Run("view", func(t *testing.T) {
		inv := base
		inv.ViewReminderDays = intPtr(2)
		assert.Empty(t, DueReminders(inv, now), "never viewed")

		inv.ViewedAt = timePtr(time.Date(2026, 3, 17, 12, 0, 0, 0, time.UTC))
		got := DueReminders(inv, now)
		require.Len(t, got, 1)
		assert.Equal(t, ReminderView, got[0].Kind)

		inv.LastFollowUpAt = timePtr(time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC))
		assert.Empty(t, DueReminders(inv, now))
	})

	t.Run("repeat", func(t *testing.T) {
		inv := base
		inv.RepeatIntervalDays = intPtr(3)
		assert.Empty(t, DueReminders(inv, now), "no follow-up yet")

		inv.LastFollowUpAt = timePtr(time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC))
		got := DueReminders(inv, now)
		require.Len(t, got, 1)
		assert.Equal(t, ReminderRepeat, got[0].Kind)

		inv.LastFollowUpAt = timePtr(time.Date(2026, 3, 19, 12, 0, 0, 0, time.UTC))
		assert.Empty(t, DueReminders(inv, now))
	})

	t.Run("repeat waits for overdue", func(t *testing.T) {
		inv := base
		inv.DueDate = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
		inv.RepeatIntervalDays = intPtr(1)
		inv.LastFollowUpAt = timePtr(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
		assert.Empty(t, DueReminders(inv, now))
	})
}
