// Package compensation tracks an employee's basic pay and allowances as a
// ledger of non-overlapping, time-bounded revisions.
//
// Ledger functions are pure: ledgers go in, new ledgers come out, and
// nothing touches storage. Effective dates are supplied by the caller; the
// Classifier's id source and createdAt clock are injectable.
package compensation

import (
	"time"

	compensationerrors "go-hris-ledger/internal/compensation/errors"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one compensation revision. The interval is half-open:
// [FromDate, ToDate). A nil ToDate marks the open entry.
type LedgerEntry struct {
	ID             string          `json:"id,omitempty"`
	Month          string          `json:"month"`
	FromDate       time.Time       `json:"fromDate"`
	ToDate         *time.Time      `json:"toDate"`
	Basic          decimal.Decimal `json:"basic"`
	OtherAllowance decimal.Decimal `json:"otherAllowance"`
	TotalSalary    decimal.Decimal `json:"totalSalary"`
	CreatedAt      time.Time       `json:"createdAt"`
	IsInitial      bool            `json:"isInitial"`
}

// NewEntry builds an open entry. The total is always derived.
func NewEntry(id string, rev Revision, from, createdAt time.Time, initial bool) LedgerEntry {
	return LedgerEntry{
		ID:             id,
		Month:          rev.Month,
		FromDate:       DateOf(from),
		Basic:          rev.Basic,
		OtherAllowance: rev.OtherAllowance,
		TotalSalary:    EntryTotal(rev.Basic, rev.OtherAllowance),
		CreatedAt:      createdAt,
		IsInitial:      initial,
	}
}

func (e LedgerEntry) IsOpen() bool {
	return e.ToDate == nil
}

// Recompute returns a copy whose TotalSalary matches its value fields.
func (e LedgerEntry) Recompute() LedgerEntry {
	e.TotalSalary = EntryTotal(e.Basic, e.OtherAllowance)
	return e
}

// Overlaps reports whether the two half-open intervals share any instant.
func (e LedgerEntry) Overlaps(other LedgerEntry) bool {
	return e.FromDate.Before(other.end()) && other.FromDate.Before(e.end())
}

func (e LedgerEntry) end() time.Time {
	if e.ToDate == nil {
		return maxTime
	}
	return *e.ToDate
}

func (e LedgerEntry) closedAt(to time.Time) LedgerEntry {
	to = DateOf(to)
	e.ToDate = &to
	return e
}

var maxTime = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// Validate checks a single entry.
func (e LedgerEntry) Validate() error {
	if e.Basic.IsNegative() || e.Basic.GreaterThan(MaxAmount) {
		return compensationerrors.Validation("basic", boundsReason)
	}
	if e.OtherAllowance.IsNegative() || e.OtherAllowance.GreaterThan(MaxAmount) {
		return compensationerrors.Validation("otherAllowance", boundsReason)
	}
	if e.ToDate != nil && e.ToDate.Before(e.FromDate) {
		return compensationerrors.Validation("toDate", "must not precede fromDate")
	}
	if !e.TotalSalary.Equal(EntryTotal(e.Basic, e.OtherAllowance)) {
		return compensationerrors.ErrLedgerInconsistent
	}
	return nil
}

// ValidateLedger checks the ledger-wide invariants: valid entries, at most
// one open entry, no overlapping intervals.
func ValidateLedger(ledger []LedgerEntry) error {
	open := 0
	for i, e := range ledger {
		if err := e.Validate(); err != nil {
			return err
		}
		if e.IsOpen() {
			open++
		}
		for _, other := range ledger[i+1:] {
			if e.Overlaps(other) {
				return compensationerrors.ErrLedgerInconsistent
			}
		}
	}
	if open > 1 {
		return compensationerrors.ErrMultipleOpenEntries
	}
	return nil
}

// OpenIndex returns the index of the open entry, or -1.
func OpenIndex(ledger []LedgerEntry) int {
	for i, e := range ledger {
		if e.IsOpen() {
			return i
		}
	}
	return -1
}

// LatestBoundary returns the latest fromDate or toDate in the ledger. A new
// open entry may not start before it without overlapping existing history.
// The zero time is returned for an empty ledger.
func LatestBoundary(ledger []LedgerEntry) time.Time {
	var latest time.Time
	for _, e := range ledger {
		if e.FromDate.After(latest) {
			latest = e.FromDate
		}
		if e.ToDate != nil && e.ToDate.After(latest) {
			latest = *e.ToDate
		}
	}
	return latest
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FirstOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func MonthName(t time.Time) string {
	return t.Month().String()
}
