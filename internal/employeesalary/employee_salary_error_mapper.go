package employeesalary

import (
	"errors"
	"strings"

	compensationerrors "go-hris-ledger/internal/compensation/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueEmployeeConstraint = "uq_employee_compensation_employee"

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return compensationerrors.ErrCompensationNotFound
	}

	if isUniqueEmployeeViolation(err) {
		return compensationerrors.ErrCompensationAlreadyExists
	}

	return err
}

// mapWriteError is mapRepositoryError for the write path, where anything
// unrecognised becomes a persistence failure.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || isUniqueEmployeeViolation(err) {
		return mapRepositoryError(err)
	}
	return compensationerrors.PersistenceFailed(err)
}

func isUniqueEmployeeViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == uniqueEmployeeConstraint
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key value") && strings.Contains(errMsg, uniqueEmployeeConstraint)
}
