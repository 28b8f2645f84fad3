package compensation

import (
	"slices"

	compensationerrors "go-hris-ledger/internal/compensation/errors"
)

// Apply performs one classified operation and returns a new ledger. The
// input is never modified; on error it is returned as is.
func Apply(ledger []LedgerEntry, op ClassifiedOp) ([]LedgerEntry, error) {
	switch op.Kind {
	case KindPopulateFromLegacy:
		if len(ledger) > 0 {
			return ledger, compensationerrors.ErrLedgerNotEmpty
		}
		entry := op.Entry.Recompute()
		entry.ToDate = nil
		return []LedgerEntry{entry}, nil

	case KindCorrectOpenRevision, KindAppendNewRevision:
		if op.Entry.FromDate.Before(LatestBoundary(ledger)) {
			return ledger, compensationerrors.Validation("fromDate", overlapReason)
		}
		next := slices.Clone(ledger)

		if op.Target >= 0 {
			if op.Target >= len(next) {
				return ledger, compensationerrors.ErrEntryNotFound
			}
			target := next[op.Target]
			if !target.IsOpen() {
				return ledger, compensationerrors.ErrEntryAlreadyClosed
			}
			next[op.Target] = target.closedAt(op.Entry.FromDate)
		} else if op.Kind == KindCorrectOpenRevision {
			return ledger, compensationerrors.ErrEntryNotFound
		}

		if OpenIndex(next) >= 0 {
			return ledger, compensationerrors.ErrMultipleOpenEntries
		}

		entry := op.Entry.Recompute()
		entry.ToDate = nil
		return append(next, entry), nil

	default:
		return ledger, compensationerrors.ErrUnknownOperation
	}
}

// ApplyPlan applies every op in order. Either all succeed or the original
// ledger is returned with the first error.
func ApplyPlan(ledger []LedgerEntry, plan Plan) ([]LedgerEntry, error) {
	next := ledger
	for _, op := range plan {
		var err error
		next, err = Apply(next, op)
		if err != nil {
			return ledger, err
		}
	}
	return next, nil
}

// EditHistorical replaces the value fields of the entry at a sorted-view
// position. fromDate and toDate are left untouched. An empty month keeps the
// existing label.
func EditHistorical(ledger []LedgerEntry, position int, rev Revision) ([]LedgerEntry, error) {
	idx, err := rawIndex(ledger, position)
	if err != nil {
		return ledger, err
	}

	next := slices.Clone(ledger)
	entry := next[idx]
	if rev.Month != "" {
		entry.Month = rev.Month
	}
	entry.Basic = rev.Basic
	entry.OtherAllowance = rev.OtherAllowance
	next[idx] = entry.Recompute()

	return next, nil
}

// Delete removes the entry at a sorted-view position. The gap it leaves in
// date coverage is kept.
func Delete(ledger []LedgerEntry, position int) ([]LedgerEntry, error) {
	idx, err := rawIndex(ledger, position)
	if err != nil {
		return ledger, err
	}

	next := make([]LedgerEntry, 0, len(ledger)-1)
	next = append(next, ledger[:idx]...)
	next = append(next, ledger[idx+1:]...)
	return next, nil
}

// rawIndex translates a sorted-view position into a storage index.
func rawIndex(ledger []LedgerEntry, position int) (int, error) {
	if position < 0 || position >= len(ledger) {
		return -1, compensationerrors.ErrEntryNotFound
	}
	return SortedIndices(ledger)[position], nil
}
