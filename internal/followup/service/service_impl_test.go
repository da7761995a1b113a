package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/chaseless/internal/audit/domain"
	auditrepository "github.com/smallbiznis/chaseless/internal/audit/repository"
	auditservice "github.com/smallbiznis/chaseless/internal/audit/service"
	"github.com/smallbiznis/chaseless/internal/clock"
	"github.com/smallbiznis/chaseless/internal/config"
	"github.com/smallbiznis/chaseless/internal/followup/domain"
	"github.com/smallbiznis/chaseless/internal/followup/repository"
	invoicedomain "github.com/smallbiznis/chaseless/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/chaseless/internal/invoice/repository"
	"github.com/smallbiznis/chaseless/internal/issuercontext"
	"github.com/smallbiznis/chaseless/internal/notification"
	"github.com/smallbiznis/chaseless/internal/testutil"
	"github.com/smallbiznis/chaseless/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	reminders []notification.Reminder
	err       error
}

func (n *recordingNotifier) InvoiceSent(context.Context, notification.InvoiceSent) error {
	return nil
}

func (n *recordingNotifier) Reminder(_ context.Context, msg notification.Reminder) error {
	n.reminders = append(n.reminders, msg)
	return n.err
}

type fixture struct {
	db        *gorm.DB
	svc       domain.Service
	audit     auditdomain.Service
	notifier  *recordingNotifier
	clock     *clock.FakeClock
	ctx       context.Context
	invoiceID snowflake.ID
	clientID  snowflake.ID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := testutil.OpenDB(t)
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC))
	notifier := &recordingNotifier{}

	audit := auditservice.NewService(auditservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  auditrepository.Provide(),
	})
	cfg := config.Config{}
	cfg.Stripe.Currency = "usd"

	svc := New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Config:      cfg,
		Repo:        repository.Provide(),
		InvoiceRepo: invoicerepository.Provide(),
		Notifier:    notifier,
		Validate:    validation.New(),
		AuditSvc:    audit,
	})

	testutil.SeedIssuer(t, conn, "issuer-1", "Jane Doe", "jane@example.com", "")
	clientID := testutil.SeedClient(t, conn, "issuer-1", "Acme", "billing@acme.test")
	invoiceID := testutil.SeedInvoice(t, conn, testutil.InvoiceSeed{
		IssuerID: "issuer-1",
		ClientID: clientID,
		Number:   "INV-2026-004",
		Status:   "sent",
		Total:    "350",
		Issue:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Due:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	return fixture{
		db:        conn,
		svc:       svc,
		audit:     audit,
		notifier:  notifier,
		clock:     clk,
		ctx:       issuercontext.WithIssuerID(context.Background(), "issuer-1"),
		invoiceID: invoiceID,
		clientID:  clientID,
	}
}

func (f fixture) counters(t *testing.T) (int, *time.Time) {
	t.Helper()
	var row struct {
		FollowUpCount  int
		LastFollowUpAt *time.Time
	}
	require.NoError(t, f.db.Raw(`SELECT follow_up_count, last_follow_up_at FROM invoices WHERE id = ?`, f.invoiceID).Scan(&row).Error)
	return row.FollowUpCount, row.LastFollowUpAt
}

func TestRecordEmailFollowUp(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Record(f.ctx, f.invoiceID.String(), domain.RecordRequest{
		Method:  "Email",
		Message: "Hi {{client_name}}, {{invoice_number}} for {{amount}} is {{days_overdue}} days late.",
	})
	require.NoError(t, err)
	assert.True(t, res.Notified)
	assert.Empty(t, res.Warning)
	assert.Equal(t, domain.MethodEmail, res.FollowUp.Method)
	assert.Equal(t, "Hi Acme, INV-2026-004 for $350.00 is 10 days late.", res.FollowUp.Message)

	require.Len(t, f.notifier.reminders, 1)
	sent := f.notifier.reminders[0]
	assert.Equal(t, "billing@acme.test", sent.ClientEmail)
	assert.Equal(t, "jane@example.com", sent.IssuerEmail)
	assert.Equal(t, res.FollowUp.Message, sent.Message)

	count, last := f.counters(t)
	assert.Equal(t, 1, count)
	require.NotNil(t, last)
	assert.True(t, last.Equal(f.clock.Now()))

	logs, err := f.audit.List(f.ctx, auditdomain.ListAuditLogRequest{Action: "record_follow_up"})
	require.NoError(t, err)
	assert.Len(t, logs.AuditLogs, 1)
}

func TestRecordTemplateIsOptIn(t *testing.T) {
	f := newFixture(t)
	template := "Reminder for {{invoice_number}}"
	id := testutil.SeedInvoice(t, f.db, testutil.InvoiceSeed{
		IssuerID: "issuer-1",
		ClientID: f.clientID,
		Status:   "sent",
		Number:   "INV-2026-005",
		Template: &template,
	})

	_, err := f.svc.Record(f.ctx, id.String(), domain.RecordRequest{Method: "manual"})
	assert.ErrorIs(t, err, domain.ErrInvalidMessage)

	res, err := f.svc.Record(f.ctx, id.String(), domain.RecordRequest{Method: "manual", UseTemplate: true})
	require.NoError(t, err)
	assert.Equal(t, "Reminder for INV-2026-005", res.FollowUp.Message)
	assert.False(t, res.Notified)
	assert.Empty(t, f.notifier.reminders)

	res, err = f.svc.Record(f.ctx, f.invoiceID.String(), domain.RecordRequest{Method: "manual", UseTemplate: true})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.FollowUp.Message, "Hi Acme, this is a friendly reminder that invoice INV-2026-004"))
	assert.True(t, strings.HasSuffix(res.FollowUp.Message, "was due on 2026-03-01."))
}

func TestRecordTransportFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("connection refused")

	res, err := f.svc.Record(f.ctx, f.invoiceID.String(), domain.RecordRequest{Method: "email", Message: "Please pay"})
	require.NoError(t, err)
	assert.False(t, res.Notified)
	assert.Equal(t, invoicedomain.WarningNotificationFailed, res.Warning)

	count, _ := f.counters(t)
	assert.Equal(t, 1, count)

	items, err := f.svc.List(f.ctx, f.invoiceID.String())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRecordWithoutClientEmailWarns(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Exec(`UPDATE clients SET email = '' WHERE id = ?`, f.clientID).Error)

	res, err := f.svc.Record(f.ctx, f.invoiceID.String(), domain.RecordRequest{Method: "email", Message: "Please pay"})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.WarningEmailUnavailable, res.Warning)
	assert.Empty(t, f.notifier.reminders)

	count, _ := f.counters(t)
	assert.Equal(t, 1, count)
}

func TestRecordRejections(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Record(f.ctx, f.invoiceID.String(), domain.RecordRequest{Method: "", Message: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidMethod)
	_, err = f.svc.Record(f.ctx, f.invoiceID.String(), domain.RecordRequest{Method: "carrier-pigeon", Message: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidMethod)
	_, err = f.svc.Record(f.ctx, f.invoiceID.String(), domain.RecordRequest{Method: "manual", Message: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidMessage)
	_, err = f.svc.Record(f.ctx, f.invoiceID.String(), domain.RecordRequest{Method: "email", Message: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidMessage)

	other := issuercontext.WithIssuerID(context.Background(), "issuer-2")
	_, err = f.svc.Record(other, f.invoiceID.String(), domain.RecordRequest{Method: "email", Message: "x"})
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)
	_, err = f.svc.Record(f.ctx, "12345", domain.RecordRequest{Method: "email", Message: "x"})
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)
	_, err = f.svc.Record(f.ctx, "abc", domain.RecordRequest{Method: "email", Message: "x"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidID)

	count, last := f.counters(t)
	assert.Zero(t, count)
	assert.Nil(t, last)
	var rows int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM follow_ups`).Scan(&rows).Error)
	assert.Zero(t, rows)
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture(t)

	for _, msg := range []string{"first", "second", "third"} {
		_, err := f.svc.Record(f.ctx, f.invoiceID.String(), domain.RecordRequest{Method: "manual", Message: msg})
		require.NoError(t, err)
		f.clock.Advance(time.Hour)
	}

	items, err := f.svc.List(f.ctx, f.invoiceID.String())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "third", items[0].Message)
	assert.Equal(t, "first", items[2].Message)

	count, _ := f.counters(t)
	assert.Equal(t, 3, count)

	other := issuercontext.WithIssuerID(context.Background(), "issuer-2")
	_, err = f.svc.List(other, f.invoiceID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)
}

func TestDueRemindersReadsInvoiceRules(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Exec(
		`UPDATE invoices SET auto_followups_enabled = ?, due_reminder_days = ? WHERE id = ?`,
		true, 3, f.invoiceID,
	).Error)

	got, err := f.svc.DueReminders(f.ctx, f.invoiceID.String())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.ReminderDue, got[0].Kind)

	_, err = f.svc.Record(f.ctx, f.invoiceID.String(), domain.RecordRequest{Method: "manual", Message: "chased"})
	require.NoError(t, err)

	got, err = f.svc.DueReminders(f.ctx, f.invoiceID.String())
	require.NoError(t, err)
	assert.Empty(t, got)
}
