package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"go-api-template/pkg/apierror"
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	_ = v.RegisterValidation("has_upper", containsRune(unicode.IsUpper))
	_ = v.RegisterValidation("has_lower", containsRune(unicode.IsLower))
	_ = v.RegisterValidation("has_digit", containsRune(unicode.IsDigit))

	return &Validator{validate: v}
}

func containsRune(match func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), match) >= 0
	}
}

// Struct validates v and returns an *apierror.APIError listing every failing field.
func (v *Validator) Struct(value any) error {
	err := v.validate.Struct(value)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("validate request: %w", err)
	}

	fields := make([]apierror.FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, apierror.FieldError{
			Path:    fe.Field(),
			Message: message(fe),
		})
	}

	return apierror.Validation("Validation error", fields)
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	label := strings.ToUpper(field[:1]) + field[1:]

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "email":
		return "Please enter a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", label, fe.Param())
	case "has_upper":
		return fmt.Sprintf("%s must contain at least one uppercase letter", label)
	case "has_lower":
		return fmt.Sprintf("%s must contain at least one lowercase letter", label)
	case "has_digit":
		return fmt.Sprintf("%s must contain at least one number", label)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
