package compensation

import (
	"time"

	compensationerrors "go-hris-ledger/internal/compensation/errors"

	"github.com/oklog/ulid/v2"
)

// Intent is what the user asked for.
type Intent string

const (
	IntentEditCurrent Intent = "edit_current"
	IntentAddNew      Intent = "add_new"
)

// Kind identifies a classified ledger operation.
type Kind string

const (
	KindPopulateFromLegacy  Kind = "populate_from_legacy"
	KindCorrectOpenRevision Kind = "correct_open_revision"
	KindAppendNewRevision   Kind = "append_new_revision"
)

// ClassifiedOp is one ledger mutation. Target is the raw index of the entry
// to close, or -1 when nothing is closed.
type ClassifiedOp struct {
	Kind   Kind
	Reason string
	Target int
	Entry  LedgerEntry
}

// Plan is applied in order; later ops see the ledger produced by earlier ones.
type Plan []ClassifiedOp

// Last returns the op that carries the user's edit.
func (p Plan) Last() ClassifiedOp {
	if len(p) == 0 {
		return ClassifiedOp{}
	}
	return p[len(p)-1]
}

type Classifier struct {
	newID func() string
	now   func() time.Time
}

type ClassifierOption func(*Classifier)

func WithIDGenerator(fn func() string) ClassifierOption {
	return func(c *Classifier) { c.newID = fn }
}

// WithClock sets the source of createdAt stamps.
func WithClock(fn func() time.Time) ClassifierOption {
	return func(c *Classifier) { c.now = fn }
}

func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		newID: func() string { return ulid.Make().String() },
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaterializeLegacy builds the synthetic first entry for an employee that
// has pay on record but no ledger. It is a read-time view: nothing is
// persisted until the user edits.
func (c *Classifier) MaterializeLegacy(s Snapshot, today time.Time) (ClassifiedOp, bool) {
	if !s.HasLegacyValues() {
		return ClassifiedOp{}, false
	}

	anchor := today
	if !s.CreatedAt.IsZero() {
		anchor = s.CreatedAt
	}
	if s.DateOfJoining != nil && !s.DateOfJoining.IsZero() {
		anchor = *s.DateOfJoining
	}
	from := FirstOfMonth(anchor)

	entry := NewEntry(c.newID(), Revision{
		Month:          MonthName(from),
		Basic:          s.Basic,
		OtherAllowance: s.OtherAllowance,
	}, from, c.now(), true)

	return ClassifiedOp{
		Kind:   KindPopulateFromLegacy,
		Reason: "employee has current pay but no salary history yet",
		Target: -1,
		Entry:  entry,
	}, true
}

// Classify decides how a proposed revision changes the ledger. today is the
// effective date of the change and becomes the new entry's fromDate.
func (c *Classifier) Classify(s Snapshot, rev Revision, intent Intent, today time.Time) (Plan, error) {
	if intent != IntentEditCurrent && intent != IntentAddNew {
		return nil, compensationerrors.Validation("mode", "is invalid")
	}

	today = DateOf(today)
	ledger := s.SalaryHistory

	var plan Plan
	if op, ok := c.MaterializeLegacy(s, today); ok {
		plan = append(plan, op)
		ledger = []LedgerEntry{op.Entry}
	}

	if today.Before(LatestBoundary(ledger)) {
		return nil, compensationerrors.Validation("fromDate", overlapReason)
	}

	open := openCandidate(ledger, s.CurrentRevisionID)

	if rev.Month == "" {
		rev.Month = MonthName(today)
	}

	if intent == IntentEditCurrent && open >= 0 && matchesCurrent(ledger[open], s) {
		return append(plan, ClassifiedOp{
			Kind:   KindCorrectOpenRevision,
			Reason: "current salary corrected; previous rate kept for the period it was in force",
			Target: open,
			Entry:  NewEntry(c.newID(), rev, today, c.now(), true),
		}), nil
	}

	reason := "new salary record added"
	if intent == IntentEditCurrent {
		reason = "no open revision matches the current salary; recorded as a new revision"
	}
	return append(plan, ClassifiedOp{
		Kind:   KindAppendNewRevision,
		Reason: reason,
		Target: open,
		Entry:  NewEntry(c.newID(), rev, today, c.now(), false),
	}), nil
}

const overlapReason = "must not precede the latest salary history date"

// openCandidate finds the open entry by identity: the tracked revision id
// first, then the open entry with the latest fromDate.
func openCandidate(ledger []LedgerEntry, currentID string) int {
	if currentID != "" {
		for i, e := range ledger {
			if e.ID == currentID && e.IsOpen() {
				return i
			}
		}
	}

	best := -1
	for i, e := range ledger {
		if !e.IsOpen() {
			continue
		}
		if best < 0 || !e.FromDate.Before(ledger[best].FromDate) {
			best = i
		}
	}
	return best
}

func matchesCurrent(e LedgerEntry, s Snapshot) bool {
	if e.IsInitial {
		return true
	}
	return e.Basic.Equal(s.Basic) && e.OtherAllowance.Equal(s.OtherAllowance)
}
