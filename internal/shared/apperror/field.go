package apperror

import (
	"fmt"
	"net/http"
)

// FieldError describes why a single input field was rejected.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Validation returns an INVALID_INPUT error keyed to field.
func Validation(field, reason string) *AppError {
	fe := &FieldError{Field: field, Reason: reason}
	return Wrap(fe, CodeInvalidInput, fe.Error(), http.StatusBadRequest)
}

func RequiredField(field string) *AppError {
	return Validation(field, "is required")
}

func InvalidField(field string) *AppError {
	return Validation(field, "is invalid")
}
