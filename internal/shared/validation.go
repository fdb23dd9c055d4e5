package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks request structs against their `validate` tags.
type Validator struct {
	validate *validator.Validate
}

// NewValidator constructs a Validator.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// ValidationError lists failing fields with their messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap lets callers match ErrInvalidRequest.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// Struct validates req. Failures are returned as *ValidationError.
func (v *Validator) Struct(req any) error {
	if v == nil || v.validate == nil {
		v = NewValidator()
	}
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		fields[fieldErr.Field()] = fieldErr.Tag()
	}
	return &ValidationError{Fields: fields}
}
