package domain

import (
	"time"

	invoicedomain "github.com/smallbiznis/chaseless/internal/invoice/domain"
)

const (
	ReminderView   = "view"
	ReminderDue    = "due"
	ReminderRepeat = "repeat"
)

// Reminder is a rule that has come due for an invoice.
type Reminder struct {
	Kind  string    `json:"kind"`
	DueAt time.Time `json:"due_at"`
}

const day = 24 * time.Hour

// DueReminders evaluates an invoice's follow-up rules at now. It only
// reports; sending is the caller's decision.
//
//   - view: the client opened the invoice ViewReminderDays ago and has not
//     been chased since.
//   - due: the invoice is DueReminderDays past its due date and has not been
//     chased since that point.
//   - repeat: the invoice is overdue and the last follow-up is at least
//     RepeatIntervalDays old.
func DueReminders(invoice invoicedomain.Invoice, now time.Time) []Reminder {
	if !invoice.AutoFollowupsEnabled || invoice.Status != invoicedomain.StatusSent {
		return nil
	}

	var out []Reminder
	chasedSince := func(t time.Time) bool {
		return invoice.LastFollowUpAt != nil && !invoice.LastFollowUpAt.Before(t)
	}

	if days := positive(invoice.ViewReminderDays); days > 0 && invoice.ViewedAt != nil {
		at := invoice.ViewedAt.Add(time.Duration(days) * day)
		if !now.Before(at) && !chasedSince(*invoice.ViewedAt) {
			out = append(out, Reminder{Kind: ReminderView, DueAt: at})
		}
	}

	dueDay := invoicedomain.StartOfDay(invoice.DueDate)
	if days := positive(invoice.DueReminderDays); days > 0 {
		at := dueDay.Add(time.Duration(days) * day)
		if !now.Before(at) && !chasedSince(at) {
			out = append(out, Reminder{Kind: ReminderDue, DueAt: at})
		}
	}

	overdue := invoicedomain.DisplayStatus(invoice.Status, invoice.DueDate, now) == invoicedomain.StatusOverdue
	if days := positive(invoice.RepeatIntervalDays); days > 0 && overdue && invoice.LastFollowUpAt != nil {
		at := invoice.LastFollowUpAt.Add(time.Duration(days) * day)
		if !now.Before(at) {
			out = append(out, Reminder{Kind: ReminderRepeat, DueAt: at})
		}
	}
	return out
}

func positive(v *int) int {
	if v == nil || *v <= 0 {
		return 0
	}
	return *v
}
