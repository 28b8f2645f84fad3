package apperror

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func formatFieldName(s string) string {
	// recipient_phone -> Recipient Phone
	s = strings.ReplaceAll(s, "_", " ")
	caser := cases.Title(language.English)
	return caser.String(s)
}

// MapValidationError turns the first validator failure into a field error.
// Field names come from json tags, see Init. A JSON type mismatch is keyed
// to the offending field as well.
func MapValidationError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return Validation(typeErr.Field, "has invalid type")
	}

	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		e := errs[0]

		switch e.Tag() {
		case "required":
			return RequiredField(e.Field())
		case "numeric":
			return Validation(e.Field(), "must be numeric")
		case "oneof":
			return Validation(e.Field(), "must be one of "+e.Param())
		default:
			return Validation(e.Field(), formatFieldName(e.Tag())+" check failed")
		}
	}

	return ErrInvalidInput
}
