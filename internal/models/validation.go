package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared by every request schema; validator caches struct metadata
// and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateStruct runs tag validation on s and converts failures into a
// validation AppError listing every rejected field.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewValidationError("request validation failed", nil, err)
	}

	details := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, FieldError{
			Field:  fieldPath(fe.Namespace()),
			Reason: describeTag(fe),
		})
	}
	return NewValidationError("request validation failed", details, err)
}

// fieldPath drops the struct name from a validator namespace,
// "TextAnalysisRequest.prompt" becomes "prompt".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("must have at least %s items or characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have at most %s items or characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// requiredField builds a single-field validation error for checks that
// depend on other fields and cannot be expressed as struct tags.
func requiredField(field, reason string) error {
	return NewValidationError("request validation failed", []FieldError{{Field: field, Reason: reason}}, nil)
}
