package compensationerrors

import (
	"net/http"
	"strings"

	"go-hris-ledger/internal/shared/apperror"
)

// ValidationError is the field-level rejection returned before any ledger
// mutation happens. Use errors.As to read the offending field.
type ValidationError = apperror.FieldError

var (
	ErrEntryNotFound = apperror.New(
		apperror.CodeNotFound,
		"Salary history entry not found",
		http.StatusNotFound,
	)
	ErrCompensationNotFound = apperror.New(
		apperror.CodeNotFound,
		"Compensation profile not found",
		http.StatusNotFound,
	)
	ErrCompensationAlreadyExists = apperror.New(
		apperror.CodeConflict,
		"Compensation profile for this employee already exists",
		http.StatusConflict,
	)
	ErrEntryAlreadyClosed = apperror.New(
		apperror.CodeInvalidState,
		"Salary history entry is already closed",
		http.StatusConflict,
	)
	ErrLedgerNotEmpty = apperror.New(
		apperror.CodeInvalidState,
		"Salary history already has entries",
		http.StatusConflict,
	)
	ErrMultipleOpenEntries = apperror.New(
		apperror.CodeInvalidState,
		"Salary history would have more than one open entry",
		http.StatusConflict,
	)
	ErrLedgerInconsistent = apperror.New(
		apperror.CodeInvalidState,
		"Salary history is inconsistent",
		http.StatusConflict,
	)
	ErrUnknownOperation = apperror.New(
		apperror.CodeInvalidInput,
		"Unknown salary history operation",
		http.StatusBadRequest,
	)
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid employee ID",
		http.StatusBadRequest,
	)
	ErrPersistence = apperror.New(
		apperror.CodePersistenceFailed,
		"Failed to save compensation, please try again",
		http.StatusInternalServerError,
	)
)

// Validation builds a ValidationError keyed to field.
func Validation(field, reason string) *apperror.AppError {
	return apperror.Validation(field, reason)
}

// PersistenceFailed reports a failed write. The raw reason is surfaced to the
// user when the store gave one.
func PersistenceFailed(err error) *apperror.AppError {
	if err == nil {
		return nil
	}
	message := ErrPersistence.Message
	if reason := strings.TrimSpace(err.Error()); reason != "" {
		message = "Failed to save compensation: " + reason
	}
	return apperror.Wrap(err, ErrPersistence.Code, message, ErrPersistence.HTTPStatus)
}
