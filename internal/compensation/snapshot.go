package compensation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Allowance is an entry of the simpler, unversioned allowances list.
type Allowance struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Snapshot is the employee compensation state as loaded by the caller.
// CurrentRevisionID points at the open entry when the caller tracks it.
type Snapshot struct {
	Basic                decimal.Decimal
	OtherAllowance       decimal.Decimal
	HouseRentAllowance   decimal.Decimal
	AdditionalAllowances []Allowance
	DateOfJoining        *time.Time
	CreatedAt            time.Time
	CurrentRevisionID    string
	SalaryHistory        []LedgerEntry
}

// HasLegacyValues reports whether the employee carries pay that was never
// versioned in the ledger.
func (s Snapshot) HasLegacyValues() bool {
	return len(s.SalaryHistory) == 0 && (!s.Basic.IsZero() || !s.OtherAllowance.IsZero())
}

// Payload is the flattened write handed back for a full overwrite.
type Payload struct {
	Basic             decimal.Decimal `json:"basic"`
	OtherAllowance    decimal.Decimal `json:"otherAllowance"`
	CurrentRevisionID string          `json:"currentRevisionId,omitempty"`
	SalaryHistory     []LedgerEntry   `json:"salaryHistory"`
}

// NewPayload derives the top-level values from the open entry. Without an
// open entry the previous values are kept.
func NewPayload(s Snapshot, ledger []LedgerEntry) Payload {
	p := Payload{
		Basic:          s.Basic,
		OtherAllowance: s.OtherAllowance,
		SalaryHistory:  ledger,
	}
	if i := OpenIndex(ledger); i >= 0 {
		p.Basic = ledger[i].Basic
		p.OtherAllowance = ledger[i].OtherAllowance
		p.CurrentRevisionID = ledger[i].ID
	}
	return p
}
