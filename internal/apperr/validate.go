package apperr

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report JSON field names so messages match what the client sent.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// ValidateStruct checks the `validate` tags of v and returns the first
// failing field as a Validation error.
func ValidateStruct(v interface{}) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return describe(fieldErrs[0])
	}
	return Internal(err, "validation failed")
}

func describe(fe validator.FieldError) error {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return Validation("%s is required", field)
	case "email":
		return Validation("%s must be a valid email", field)
	case "min":
		if fe.Kind() == reflect.String {
			return Validation("%s must be at least %s characters", field, fe.Param())
		}
		return Validation("%s must contain at least %s entries", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return Validation("%s must be at most %s characters", field, fe.Param())
		}
		return Validation("%s must contain at most %s entries", field, fe.Param())
	case "gt":
		return Validation("%s must be greater than %s", field, fe.Param())
	case "gte":
		return Validation("%s must be at least %s", field, fe.Param())
	case "lte":
		return Validation("%s must be at most %s", field, fe.Param())
	case "oneof":
		return Validation("%s must be one of [%s]", field, fe.Param())
	default:
		return Validation("%s is invalid (%s)", field, fe.Tag())
	}
}
