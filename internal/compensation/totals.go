package compensation

import "github.com/shopspring/decimal"

// Round2 rounds half away from zero to two decimal places.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// EntryTotal is the derived totalSalary of a revision.
func EntryTotal(basic, otherAllowance decimal.Decimal) decimal.Decimal {
	return Round2(basic.Add(otherAllowance))
}

// AggregateTotal is the employee's current pay across the versioned fields
// and the unversioned allowances.
func AggregateTotal(s Snapshot) decimal.Decimal {
	total := s.Basic.Add(s.OtherAllowance).Add(s.HouseRentAllowance)
	for _, a := range s.AdditionalAllowances {
		total = total.Add(a.Amount)
	}
	return Round2(total)
}
