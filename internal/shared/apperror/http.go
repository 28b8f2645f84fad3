package apperror

import (
	"errors"
	"net/http"
)

type HTTPError struct {
	Status  int
	Code    string
	Message string
	Details any
}

// ToHTTP maps any error returned by a service into the response envelope
// fields. Unknown errors never leak their message.
func ToHTTP(err error) HTTPError {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return HTTPError{
			Status:  ErrInternal.HTTPStatus,
			Code:    ErrInternal.Code,
			Message: ErrInternal.Message,
		}
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	httpErr := HTTPError{
		Status:  status,
		Code:    appErr.Code,
		Message: appErr.Message,
	}

	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		httpErr.Details = fieldErr
	}

	return httpErr
}
