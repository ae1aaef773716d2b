package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError names one request field and the rule it broke
type FieldError struct {
	Field   string
	Rule    string
	Message string
}

// ValidationError is returned when a request fails input validation
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// newValidationError builds a ValidationError with a single field failure
func newValidationError(field, rule, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Rule: rule, Message: message}}}
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// newValidator returns a validator that reports fields by their json names
func newValidator() *validator.Validate {
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

	// the registration can only fail on an empty tag or nil func
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	return v
}

// fieldMessages holds the human readable message per field and rule
var fieldMessages = map[string]string{
	"text.required":     "Task text is required",
	"text.min":          "Task text cannot be empty",
	"text.max":          "Task text must be between 1 and 500 characters",
	"description.max":   "Description must be less than 2000 characters",
	"priority.oneof":    "Priority must be low, normal, or high",
	"username.required": "Username is required",
	"username.min":      "Username must be between 3 and 30 characters",
	"username.max":      "Username must be between 3 and 30 characters",
	"username.username": "Username can only contain letters, numbers and underscores",
	"email.required":    "Email is required",
	"email.email":       "Please provide a valid email",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 6 characters",
	"role.oneof":        "Role must be user or admin",
}

// validate runs struct validation and converts failures to a ValidationError
func validate(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate request: %w", err)
	}

	result := &ValidationError{}
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed on the %s rule", fe.Tag())
		}
		result.Errors = append(result.Errors, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: msg,
		})
	}

	return result
}
