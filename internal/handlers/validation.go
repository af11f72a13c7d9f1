package handlers

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Shared validator instance. Struct tag parsing is cached internally, so a
// single instance serves every handler.
var validate = validator.New()

// ValidateRequest checks the validate tags on a decoded request body and
// returns an error describing the first failing field.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		return fmt.Errorf("validation failed: %s: %s", fe.Field(), tagMessage(fe))
	}
	return fmt.Errorf("validation failed: %w", err)
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
