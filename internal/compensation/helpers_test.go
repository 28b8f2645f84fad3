package compensation_test

import (
	"fmt"
	"testing"
	"time"

	"go-hris-ledger/internal/compensation"

	"github.com/shopspring/decimal"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestClassifier(t *testing.T) *compensation.Classifier {
	t.Helper()
	n := 0
	return compensation.NewClassifier(
		compensation.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("rev-%d", n)
		}),
		compensation.WithClock(func() time.Time {
			return date("2025-01-10")
		}),
	)
}

func entry(from string, to string, basic, other string) compensation.LedgerEntry {
	e := compensation.LedgerEntry{
		Month:          date(from).Month().String(),
		FromDate:       date(from),
		Basic:          dec(basic),
		OtherAllowance: dec(other),
	}
	if to != "" {
		e.ToDate = datePtr(to)
	}
	return e.Recompute()
}

func countOpen(ledger []compensation.LedgerEntry) int {
	n := 0
	for _, e := range ledger {
		if e.IsOpen() {
			n++
		}
	}
	return n
}
