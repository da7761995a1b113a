// Package sequence allocates human readable invoice numbers of the form
// INV-<year>-<seq>, one series per issuer and calendar year.
//
// Three strategies exist. "count" is the legacy scheme: count the issuer's
// invoices in the year and add one. It reserves nothing, so two concurrent
// creates can read the same count. "counter" increments a row in
// invoice_sequences inside the creating transaction, which serializes
// allocations on that row. "lock" holds a Redis lock on (issuer, year) for
// the lifetime of the creating transaction, or a row lock on the counter row
// when Redis is not configured. Whatever the strategy, the unique index on
// (issuer_id, invoice_number) rejects a duplicate at insert time.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/smallbiznis/chaseless/internal/clock"
	"github.com/smallbiznis/chaseless/internal/config"
	"github.com/smallbiznis/chaseless/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	lockTTL     = 15 * time.Second
	lockWait    = 5 * time.Second
	lockBackoff = 50 * time.Millisecond
	// The lock is not refreshed, so the guarded transaction has to finish
	// this long before the lease runs out.
	leaseMargin = time.Second
)

var ErrLockNotObtained = errors.New("invoice_sequence_busy")

// Allocator hands out invoice numbers.
type Allocator struct {
	strategy string
	locker   *redislock.Client
	clock    clock.Clock
	log      *zap.Logger
}

// Counter is the invoice_sequences row.
type Counter struct {
	IssuerID   string    `gorm:"primaryKey"`
	PeriodYear int       `gorm:"primaryKey"`
	LastValue  int       `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (Counter) TableName() string { return "invoice_sequences" }

type Params struct {
	fx.In

	Config config.Config
	Locker *redislock.Client `optional:"true"`
	Clock  clock.Clock
	Log    *zap.Logger
}

func Provide(p Params) *Allocator {
	return New(p.Config.SequenceStrategy, p.Locker, p.Clock, p.Log)
}

// New builds an allocator. locker may be nil; the lock strategy then falls
// back to a row lock.
func New(strategy string, locker *redislock.Client, clk clock.Clock, log *zap.Logger) *Allocator {
	switch strategy {
	case config.SequenceCount, config.SequenceCounter, config.SequenceLock:
	default:
		strategy = config.SequenceCounter
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Allocator{
		strategy: strategy,
		locker:   locker,
		clock:    clk,
		log:      log.Named("invoice.sequence"),
	}
}

func (a *Allocator) Strategy() string { return a.strategy }

// Format renders a sequence value. Values past 999 simply grow wider.
func Format(year int, seq int) string {
	return fmt.Sprintf("INV-%d-%03d", year, seq)
}

// Guard must be taken before the creating transaction starts and released
// after it commits or rolls back. Only the lock strategy with Redis does
// anything here; the creating transaction must run under the returned
// context so it cannot outlive the lock.
func (a *Allocator) Guard(ctx context.Context, issuerID string, year int) (context.Context, func(), error) {
	if a.strategy != config.SequenceLock || a.locker == nil {
		return ctx, func() {}, nil
	}

	obtainCtx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()

	key := fmt.Sprintf("lock:invoice-seq:%s:%d", issuerID, year)
	lock, err := a.locker.Obtain(obtainCtx, key, lockTTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(lockBackoff),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		a.log.Warn("sequence lock busy", zap.String("issuer_id", issuerID), zap.Int("year", year))
		return nil, nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, nil, err
	}

	leaseCtx, cancelLease := withinLease(ctx)
	return leaseCtx, func() {
		cancelLease()
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			a.log.Warn("sequence lock release failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func withinLease(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, lockTTL-leaseMargin)
}

// Next returns the number for a new invoice. tx must be the creating
// transaction.
func (a *Allocator) Next(ctx context.Context, tx *gorm.DB, issuerID string, year int) (string, error) {
	var (
		seq int
		err error
	)
	switch a.strategy {
	case config.SequenceCount:
		seq, err = countInYear(ctx, tx, issuerID, year)
		seq++
	case config.SequenceLock:
		seq, err = a.nextUnderLock(ctx, tx, issuerID, year)
	default:
		seq, err = a.nextFromCounter(ctx, tx, issuerID, year)
	}
	if err != nil {
		return "", err
	}
	return Format(year, seq), nil
}

// Peek previews the next number without reserving it.
func (a *Allocator) Peek(ctx context.Context, conn *gorm.DB, issuerID string, year int) (string, error) {
	count, err := countInYear(ctx, conn, issuerID, year)
	if err != nil {
		return "", err
	}
	if a.strategy == config.SequenceCount {
		return Format(year, count+1), nil
	}

	var last int
	err = conn.WithContext(ctx).Raw(
		`SELECT last_value FROM invoice_sequences WHERE issuer_id = ? AND period_year = ?`,
		issuerID,
		year,
	).Scan(&last).Error
	if err != nil {
		return "", err
	}
	return Format(year, max(last, count)+1), nil
}

func (a *Allocator) nextFromCounter(ctx context.Context, tx *gorm.DB, issuerID string, year int) (int, error) {
	if err := a.ensureCounter(ctx, tx, issuerID, year); err != nil {
		return 0, err
	}

	count, err := countInYear(ctx, tx, issuerID, year)
	if err != nil {
		return 0, err
	}

	// The update takes the row lock; a concurrent allocator for the same
	// (issuer, year) waits here until this transaction ends.
	err = tx.WithContext(ctx).Exec(
		`UPDATE invoice_sequences
		 SET last_value = CASE WHEN last_value < ? THEN ? ELSE last_value END + 1,
		     updated_at = ?
		 WHERE issuer_id = ? AND period_year = ?`,
		count,
		count,
		a.clock.Now(),
		issuerID,
		year,
	).Error
	if err != nil {
		return 0, err
	}

	var last int
	err = tx.WithContext(ctx).Raw(
		`SELECT last_value FROM invoice_sequences WHERE issuer_id = ? AND period_year = ?`,
		issuerID,
		year,
	).Scan(&last).Error
	if err != nil {
		return 0, err
	}
	return last, nil
}

func (a *Allocator) nextUnderLock(ctx context.Context, tx *gorm.DB, issuerID string, year int) (int, error) {
	if a.locker == nil {
		if err := a.ensureCounter(ctx, tx, issuerID, year); err != nil {
			return 0, err
		}
		var row Counter
		err := tx.WithContext(ctx).
			Clauses(db.ForUpdate()).
			Where("issuer_id = ? AND period_year = ?", issuerID, year).
			Take(&row).Error
		if err != nil {
			return 0, err
		}
	}

	count, err := countInYear(ctx, tx, issuerID, year)
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}

func (a *Allocator) ensureCounter(ctx context.Context, tx *gorm.DB, issuerID string, year int) error {
	row := Counter{
		IssuerID:   issuerID,
		PeriodYear: year,
		LastValue:  0,
		UpdatedAt:  a.clock.Now(),
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func countInYear(ctx context.Context, conn *gorm.DB, issuerID string, year int) (int, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var count int64
	err := conn.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM invoices
		 WHERE issuer_id = ? AND issue_date >= ? AND issue_date < ?`,
		issuerID,
		start,
		end,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
