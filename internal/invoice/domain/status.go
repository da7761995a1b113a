package domain

import (
	"strings"
	"time"
)

type Status string

const (
	StatusDraft   Status = "draft"
	StatusSent    Status = "sent"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
	StatusVoid    Status = "void"
)

// ParseStatus accepts exactly the five persisted statuses.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusDraft:
		return StatusDraft, nil
	case StatusSent:
		return StatusSent, nil
	case StatusPaid:
		return StatusPaid, nil
	case StatusOverdue:
		return StatusOverdue, nil
	case StatusVoid:
		return StatusVoid, nil
	default:
		return "", ErrInvalidStatus
	}
}

// DisplayStatus is what listings show. A sent invoice whose due date is
// before today reads as overdue; the stored status is untouched.
func DisplayStatus(persisted Status, due time.Time, now time.Time) Status {
	if persisted != StatusSent {
		return persisted
	}
	today := StartOfDay(now)
	if StartOfDay(due).Before(today) {
		return StatusOverdue
	}
	return persisted
}

// NotifiesClient reports whether moving from prior to target sends the
// invoice to the client. Only the edge into sent does; prior must be the
// stored status, never the display status.
func NotifiesClient(prior, target Status) bool {
	return target == StatusSent && prior != StatusSent
}

// Payable reports whether a checkout session may be opened.
func (s Status) Payable() bool {
	return s != StatusPaid && s != StatusVoid
}

func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
