package testutil

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var seedSeq atomic.Int64

func nextSeedID() snowflake.ID {
	return snowflake.ID(900000 + seedSeq.Add(1))
}

// SeedClient inserts a client row and returns its id.
func SeedClient(t testing.TB, conn *gorm.DB, issuerID, name, email string) snowflake.ID {
	t.Helper()
	id := nextSeedID()
	now := time.Now().UTC()
	err := conn.Exec(
		`INSERT INTO clients (id, issuer_id, name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, issuerID, name, email, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return id
}

// SeedIssuer inserts an issuer profile. stripeAccountID may be empty.
func SeedIssuer(t testing.TB, conn *gorm.DB, issuerID, displayName, email, stripeAccountID string) {
	t.Helper()
	now := time.Now().UTC()
	var account *string
	if stripeAccountID != "" {
		account = &stripeAccountID
	}
	err := conn.Exec(
		`INSERT INTO issuers (id, display_name, email, stripe_account_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		issuerID, displayName, email, account, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed issuer: %v", err)
	}
}

// InvoiceSeed describes an invoice row inserted without going through the
// ledger writer.
type InvoiceSeed struct {
	IssuerID string
	ClientID snowflake.ID
	Number   string
	Status   string
	Total    string
	Issue    time.Time
	Due      time.Time
	Template *string
}

// SeedInvoice inserts an invoice header and returns its id.
func SeedInvoice(t testing.TB, conn *gorm.DB, in InvoiceSeed) snowflake.ID {
	t.Helper()
	id := nextSeedID()
	now := time.Now().UTC()
	if in.Status == "" {
		in.Status = "draft"
	}
	if in.Total == "" {
		in.Total = "0"
	}
	if in.Issue.IsZero() {
		in.Issue = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if in.Due.IsZero() {
		in.Due = in.Issue.AddDate(0, 0, 30)
	}
	if in.Number == "" {
		in.Number = "INV-SEED-" + id.String()
	}
	err := conn.Exec(
		`INSERT INTO invoices (id, issuer_id, client_id, invoice_number, issue_date, due_date, status, total_amount, followup_message_template, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.IssuerID, in.ClientID, in.Number, in.Issue, in.Due, in.Status, in.Total, in.Template, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return id
}
