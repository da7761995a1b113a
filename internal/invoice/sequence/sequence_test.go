package sequence

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/chaseless/internal/clock"
	"github.com/smallbiznis/chaseless/internal/config"
	"github.com/smallbiznis/chaseless/internal/testutil"
	"github.com/smallbiznis/chaseless/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func insertInvoice(t *testing.T, conn *gorm.DB, id int64, issuerID string, clientID int64, number string, issueDate time.Time) error {
	t.Helper()
	return conn.Exec(
		`INSERT INTO invoices (id, issuer_id, client_id, invoice_number, issue_date, due_date, status, total_amount, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 'draft', 0, ?, ?)`,
		id, issuerID, clientID, number, issueDate, issueDate, fixedNow, fixedNow,
	).Error
}

func nextInTx(t *testing.T, conn *gorm.DB, a *Allocator, issuerID string, year int) string {
	t.Helper()
	var number string
	err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		number, err = a.Next(context.Background(), tx, issuerID, year)
		return err
	})
	require.NoError(t, err)
	return number
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "INV-2026-001", Format(2026, 1))
	assert.Equal(t, "INV-2026-042", Format(2026, 42))
	assert.Equal(t, "INV-2026-1000", Format(2026, 1000))
}

// Two allocations that both run before either invoice is inserted read the
// same count. The unique index is what catches the second insert.
// testutil.OpenDB pins sqlite to one connection, so overlapping transactions
// cannot run here; the interleaving is replayed in order instead. The
// goroutine version lives in sequence_postgres_test.go.
func TestCountStrategyRace(t *testing.T) {
	conn := testutil.OpenDB(t)
	clientID := int64(testutil.SeedClient(t, conn, "issuer-1", "Acme", "a@acme.test"))
	a := New(config.SequenceCount, nil, clock.NewFakeClock(fixedNow), zap.NewNop())

	first := nextInTx(t, conn, a, "issuer-1", 2026)
	second := nextInTx(t, conn, a, "issuer-1", 2026)
	assert.Equal(t, "INV-2026-001", first)
	assert.Equal(t, first, second)

	issue := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, insertInvoice(t, conn, 1, "issuer-1", clientID, first, issue))
	err := insertInvoice(t, conn, 2, "issuer-1", clientID, second, issue)
	require.Error(t, err)
	assert.True(t, db.IsDuplicateKeyErr(err))
}

func TestCounterStrategyReservesEachNumber(t *testing.T) {
	conn := testutil.OpenDB(t)
	a := New(config.SequenceCounter, nil, clock.NewFakeClock(fixedNow), zap.NewNop())

	first := nextInTx(t, conn, a, "issuer-1", 2026)
	second := nextInTx(t, conn, a, "issuer-1", 2026)
	assert.Equal(t, "INV-2026-001", first)
	assert.Equal(t, "INV-2026-002", second)

	// Other issuers and other years keep their own series.
	assert.Equal(t, "INV-2026-001", nextInTx(t, conn, a, "issuer-2", 2026))
	assert.Equal(t, "INV-2027-001", nextInTx(t, conn, a, "issuer-1", 2027))
}

func TestCounterStrategyContinuesLegacyNumbering(t *testing.T) {
	conn := testutil.OpenDB(t)
	clientID := int64(testutil.SeedClient(t, conn, "issuer-1", "Acme", "a@acme.test"))
	for i := 1; i <= 3; i++ {
		issue := time.Date(2026, time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, insertInvoice(t, conn, int64(i), "issuer-1", clientID, Format(2026, i), issue))
	}
	// Previous year's invoices do not count.
	require.NoError(t, insertInvoice(t, conn, 10, "issuer-1", clientID, "INV-2025-001", time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))

	a := New(config.SequenceCounter, nil, clock.NewFakeClock(fixedNow), zap.NewNop())

	preview, err := a.Peek(context.Background(), conn, "issuer-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-004", preview)

	assert.Equal(t, "INV-2026-004", nextInTx(t, conn, a, "issuer-1", 2026))
	assert.Equal(t, "INV-2026-005", nextInTx(t, conn, a, "issuer-1", 2026))

	preview, err = a.Peek(context.Background(), conn, "issuer-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-006", preview)
}

func TestLockStrategyWithoutRedisFallsBackToRowLock(t *testing.T) {
	conn := testutil.OpenDB(t)
	a := New(config.SequenceLock, nil, clock.NewFakeClock(fixedNow), zap.NewNop())

	ctx, release, err := a.Guard(context.Background(), "issuer-1", 2026)
	require.NoError(t, err)
	defer release()
	_, bounded := ctx.Deadline()
	assert.False(t, bounded)

	assert.Equal(t, "INV-2026-001", nextInTx(t, conn, a, "issuer-1", 2026))

	var rows int64
	require.NoError(t, conn.Raw(`SELECT COUNT(*) FROM invoice_sequences WHERE issuer_id = ?`, "issuer-1").Scan(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestLeaseEndsBeforeLockExpires(t *testing.T) {
	start := time.Now()
	ctx, cancel := withinLease(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.True(t, deadline.Before(start.Add(lockTTL)))
	assert.True(t, deadline.After(start.Add(lockTTL-leaseMargin-time.Second)))

	// A caller deadline that is already tighter wins.
	parent, cancelParent := context.WithTimeout(context.Background(), time.Second)
	defer cancelParent()
	ctx, cancel = withinLease(parent)
	defer cancel()
	parentDeadline, _ := parent.Deadline()
	deadline, _ = ctx.Deadline()
	assert.Equal(t, parentDeadline, deadline)
}

func TestExpiredLeaseAbortsTransaction(t *testing.T) {
	conn := testutil.OpenDB(t)
	a := New(config.SequenceCounter, nil, clock.NewFakeClock(fixedNow), zap.NewNop())

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := a.Next(ctx, tx, "issuer-1", 2026)
		return err
	})
	require.Error(t, err)

	var rows int64
	require.NoError(t, conn.Raw(`SELECT COUNT(*) FROM invoice_sequences WHERE issuer_id = ?`, "issuer-1").Scan(&rows).Error)
	assert.Zero(t, rows)
}

func TestUnknownStrategyDefaultsToCounter(t *testing.T) {
	a := New("bogus", nil, nil, nil)
	assert.Equal(t, config.SequenceCounter, a.Strategy())
}
