package employeesalary

import (
	"time"

	"go-hris-ledger/internal/compensation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EmployeeCompensation is the stored compensation profile of one employee.
// SalaryHistory is always written as a whole.
type EmployeeCompensation struct {
	ID                   uuid.UUID                  `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID            uuid.UUID                  `gorm:"type:uuid;index" json:"companyId"`
	EmployeeID           uuid.UUID                  `gorm:"type:uuid;uniqueIndex:uq_employee_compensation_employee" json:"employeeId"`
	Basic                decimal.Decimal            `gorm:"type:numeric(12,2)" json:"basic"`
	OtherAllowance       decimal.Decimal            `gorm:"type:numeric(12,2)" json:"otherAllowance"`
	HouseRentAllowance   decimal.Decimal            `gorm:"type:numeric(12,2)" json:"houseRentAllowance"`
	AdditionalAllowances []compensation.Allowance   `gorm:"type:jsonb;serializer:json" json:"additionalAllowances"`
	DateOfJoining        *time.Time                 `json:"dateOfJoining,omitempty"`
	CurrentRevisionID    string                     `json:"currentRevisionId,omitempty"`
	SalaryHistory        []compensation.LedgerEntry `gorm:"type:jsonb;serializer:json" json:"salaryHistory"`
	CreatedAt            time.Time                  `json:"createdAt"`
	UpdatedAt            time.Time                  `json:"updatedAt"`
}

func (EmployeeCompensation) TableName() string {
	return "employee_compensations"
}

func (e EmployeeCompensation) Snapshot() compensation.Snapshot {
	return compensation.Snapshot{
		Basic:                e.Basic,
		OtherAllowance:       e.OtherAllowance,
		HouseRentAllowance:   e.HouseRentAllowance,
		AdditionalAllowances: e.AdditionalAllowances,
		DateOfJoining:        e.DateOfJoining,
		CreatedAt:            e.CreatedAt,
		CurrentRevisionID:    e.CurrentRevisionID,
		SalaryHistory:        e.SalaryHistory,
	}
}

// apply copies a computed payload onto the profile.
func (e *EmployeeCompensation) apply(p compensation.Payload) {
	e.Basic = p.Basic
	e.OtherAllowance = p.OtherAllowance
	e.CurrentRevisionID = p.CurrentRevisionID
	e.SalaryHistory = p.SalaryHistory
}
