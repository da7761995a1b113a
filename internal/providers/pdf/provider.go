// Package pdf renders invoice documents.
package pdf

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/chaseless/internal/invoice/domain"
	"github.com/smallbiznis/chaseless/internal/notification"
	"go.uber.org/fx"
)

type Renderer interface {
	Invoice(ctx context.Context, doc Document) ([]byte, error)
}

// Document is an invoice with every value already formatted for print.
type Document struct {
	InvoiceNumber string
	IssueDate     string
	DueDate       string
	Status        string
	PaidOn        string

	IssuerName  string
	IssuerEmail string

	ClientName    string
	ClientEmail   string
	ClientAddress string

	Items []Line

	Subtotal string
	Total    string
	Notes    string

	PayLink       string
	PayOnlineNote string
}

type Line struct {
	Description string
	Quantity    string
	UnitPrice   string
	Amount      string
}

// FromInvoice formats an invoice for print. payerAmount is what an online
// payment would charge, surcharge included.
func FromInvoice(inv invoicedomain.PublicInvoice, payLink string, payerAmount decimal.Decimal, currency string) Document {
	money := func(d decimal.Decimal) string { return notification.FormatMoney(d, currency) }

	doc := Document{
		InvoiceNumber: inv.InvoiceNumber,
		IssueDate:     inv.IssueDate.UTC().Format("Jan 2, 2006"),
		DueDate:       inv.DueDate.UTC().Format("Jan 2, 2006"),
		Status:        strings.ToUpper(string(inv.DisplayStatus)),
		IssuerName:    inv.IssuerName,
		ClientName:    inv.ClientName,
		ClientEmail:   inv.ClientEmail,
		Subtotal:      money(invoicedomain.Total(inv.Items)),
		Total:         money(inv.TotalAmount),
		PayLink:       payLink,
	}
	if inv.ClientAddress != nil {
		doc.ClientAddress = *inv.ClientAddress
	}
	if inv.Notes != nil {
		doc.Notes = *inv.Notes
	}
	if inv.PaidAt != nil {
		doc.PaidOn = inv.PaidAt.UTC().Format(time.DateOnly)
	}
	if inv.Status.Payable() && payerAmount.GreaterThan(inv.TotalAmount) {
		doc.PayOnlineNote = "Card payments include a processing fee. Total online: " + money(payerAmount)
	}
	for _, item := range inv.Items {
		doc.Items = append(doc.Items, Line{
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitPrice:   money(item.UnitPrice),
			Amount:      money(item.Amount()),
		})
	}
	return doc
}

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)
