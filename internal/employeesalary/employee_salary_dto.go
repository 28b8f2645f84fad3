package employeesalary

import (
	"bytes"
	"encoding/json"

	"go-hris-ledger/internal/compensation"

	"github.com/shopspring/decimal"
)

type Mode string

const (
	ModeEditCurrent      Mode = "edit_current"
	ModeAddNew           Mode = "add_new"
	ModeEditHistorical   Mode = "edit_historical"
	ModeDeleteHistorical Mode = "delete_historical"
)

// RawAmount keeps an amount exactly as submitted. A JSON number or string is
// taken as text, null is empty, and any other token (true, an object, an
// array) is kept verbatim so the numeric check rejects it under its field.
type RawAmount string

func (a *RawAmount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = RawAmount(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			*a = RawAmount(b)
			return nil
		}
		*a = RawAmount(n.String())
	}
	return nil
}

type ReplaceCompensationRequest struct {
	Mode           Mode      `json:"mode" binding:"required,oneof=edit_current add_new edit_historical delete_historical"`
	Position       *int      `json:"position" binding:"omitempty,min=0"`
	EffectiveDate  string    `json:"effectiveDate" binding:"omitempty,datetime=2006-01-02"`
	Month          string    `json:"month"`
	Basic          RawAmount `json:"basic" binding:"omitempty,numeric"`
	OtherAllowance RawAmount `json:"otherAllowance" binding:"omitempty,numeric"`
}

func (r ReplaceCompensationRequest) RevisionInput() compensation.RevisionInput {
	return compensation.RevisionInput{
		Month:          r.Month,
		Basic:          string(r.Basic),
		OtherAllowance: string(r.OtherAllowance),
	}
}

type HistoryQuery struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1,max=100"`
}

type CompensationResponse struct {
	EmployeeID           string                   `json:"employeeId"`
	Basic                decimal.Decimal          `json:"basic"`
	OtherAllowance       decimal.Decimal          `json:"otherAllowance"`
	HouseRentAllowance   decimal.Decimal          `json:"houseRentAllowance"`
	AdditionalAllowances []compensation.Allowance `json:"additionalAllowances"`
	TotalSalary          decimal.Decimal          `json:"totalSalary"`
	CurrentRevisionID    string                   `json:"currentRevisionId,omitempty"`
	History              compensation.View        `json:"history"`
}
