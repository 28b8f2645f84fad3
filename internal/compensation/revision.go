package compensation

import (
	"strings"

	compensationerrors "go-hris-ledger/internal/compensation/errors"
	"go-hris-ledger/internal/shared/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxAmount bounds both basic and otherAllowance.
var MaxAmount = decimal.NewFromInt(10_000_000)

const boundsReason = "must be between 0 and 10000000"

// Revision is a validated set of value fields for one ledger entry.
type Revision struct {
	Month          string
	Basic          decimal.Decimal
	OtherAllowance decimal.Decimal
}

// RevisionInput is the raw, unvalidated form submitted by the user.
type RevisionInput struct {
	Month          string `json:"month" validate:"omitempty,oneof=January February March April May June July August September October November December"`
	Basic          string `json:"basic" validate:"required,numeric"`
	OtherAllowance string `json:"otherAllowance" validate:"omitempty,numeric"`
}

var (
	validate   = newValidator()
	monthCaser = cases.Title(language.English)
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(apperror.JSONTagName)
	return v
}

// ParseRevision validates in and converts it into a Revision. Errors are
// ValidationErrors keyed to the json field name.
func ParseRevision(in RevisionInput) (Revision, error) {
	in.Month = monthCaser.String(strings.TrimSpace(in.Month))
	in.Basic = strings.TrimSpace(in.Basic)
	in.OtherAllowance = strings.TrimSpace(in.OtherAllowance)

	if err := validate.Struct(in); err != nil {
		return Revision{}, apperror.MapValidationError(err)
	}

	basic, err := parseAmount("basic", in.Basic)
	if err != nil {
		return Revision{}, err
	}

	other := decimal.Zero
	if in.OtherAllowance != "" {
		other, err = parseAmount("otherAllowance", in.OtherAllowance)
		if err != nil {
			return Revision{}, err
		}
	}

	return Revision{
		Month:          in.Month,
		Basic:          basic,
		OtherAllowance: other,
	}, nil
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, compensationerrors.Validation(field, "must be numeric")
	}
	if v.IsNegative() || v.GreaterThan(MaxAmount) {
		return decimal.Zero, compensationerrors.Validation(field, boundsReason)
	}
	// Stored amounts carry two decimals, matching the numeric(12,2) columns.
	return Round2(v), nil
}
