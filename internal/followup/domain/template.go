package domain

import (
	"strconv"
	"strings"
	"time"

	invoicedomain "github.com/smallbiznis/chaseless/internal/invoice/domain"
)

// DefaultMessage fills a templated request when the invoice has no
// template of its own.
const DefaultMessage = "Hi {{client_name}}, this is a friendly reminder that invoice {{invoice_number}} for {{amount}} was due on {{due_date}}."

// Placeholders resolvable in a follow-up message.
const (
	TokenClientName    = "{{client_name}}"
	TokenInvoiceNumber = "{{invoice_number}}"
	TokenAmount        = "{{amount}}"
	TokenDueDate       = "{{due_date}}"
	TokenDaysOverdue   = "{{days_overdue}}"
)

// TemplateData is what placeholders resolve against.
type TemplateData struct {
	ClientName    string
	InvoiceNumber string
	Amount        string
	DueDate       time.Time
	Now           time.Time
}

// Render resolves every known placeholder. Unknown tokens are left as written.
func Render(message string, data TemplateData) string {
	replacer := strings.NewReplacer(
		TokenClientName, data.ClientName,
		TokenInvoiceNumber, data.InvoiceNumber,
		TokenAmount, data.Amount,
		TokenDueDate, data.DueDate.UTC().Format(time.DateOnly),
		TokenDaysOverdue, strconv.Itoa(DaysOverdue(data.DueDate, data.Now)),
	)
	return replacer.Replace(message)
}

// DaysOverdue counts whole calendar days past the due date, never negative.
func DaysOverdue(due, now time.Time) int {
	today := invoicedomain.StartOfDay(now)
	dueDay := invoicedomain.StartOfDay(due)
	if !dueDay.Before(today) {
		return 0
	}
	return int(today.Sub(dueDay).Hours() / 24)
}
