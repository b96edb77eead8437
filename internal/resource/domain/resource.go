package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Resource is the capability shared by every provider resource model.
type Resource interface {
	Hydrate(data map[string]any) error
	Serialize() map[string]any
	Validate() error
}

var ErrInvalidResource = errors.New("invalid_resource")

// ValidationError identifies the field of a resource that failed a rule.
type ValidationError struct {
	Resource string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Resource, e.Reason)
	}
	return fmt.Sprintf("%s.%s: %s", e.Resource, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidResource
}

func invalidField(resource, field, reason string) *ValidationError {
	return &ValidationError{Resource: resource, Field: field, Reason: reason}
}

// nested re-roots a child resource's validation error under the parent field.
func nested(resource, key string, err error) error {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	field := key
	if ve.Field != "" {
		field = key + "." + ve.Field
	}
	return invalidField(resource, field, ve.Reason)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterStructValidation(validateMoney, Money{})
	v.RegisterStructValidation(validateFrequency, Frequency{})
	v.RegisterStructValidation(validateBillingCycle, BillingCycle{})
	v.RegisterStructValidation(validatePlan, Plan{})
	return v
}

// validateStruct runs the tag and struct-level rules and reports the first
// failure as a ValidationError.
func validateStruct(resource string, target any) error {
	err := validate.Struct(target)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return invalidField(resource, fieldPath(fe), reason(fe))
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "iso4217":
		return "must be a valid ISO 4217 currency code"
	case "iso3166_1_alpha2":
		return "must be a valid two-letter country code"
	case "numeric":
		return "must be numeric"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "non_negative":
		return "must not be negative"
	case "interval_range":
		return fmt.Sprintf("must be between 1 and %s for this interval unit", fe.Param())
	case "regular_only":
		return "may only be 0 for REGULAR billing cycles"
	case "one_regular":
		return "must contain exactly one REGULAR billing cycle"
	case "max_one_trial":
		return "must contain at most one TRIAL billing cycle"
	case "unique_sequence":
		return "sequences must be unique"
	case "currency_mismatch":
		return "all billing cycles must use the same currency"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// parseEnum accepts an empty value or one of the allowed members.
func parseEnum[T ~string](resource, field, raw string, allowed ...T) (T, error) {
	value := T(strings.ToUpper(strings.TrimSpace(raw)))
	if value == "" {
		return value, nil
	}
	for _, a := range allowed {
		if value == a {
			return value, nil
		}
	}
	names := make([]string, 0, len(allowed))
	for _, a := range allowed {
		names = append(names, string(a))
	}
	return "", invalidField(resource, field, fmt.Sprintf("must be one of [%s]", strings.Join(names, " ")))
}
