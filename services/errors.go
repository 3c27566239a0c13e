package services

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrAuthenticationFailed = errors.New("email or password is incorrect")
	ErrInvalidToken         = errors.New("token is invalid or expired")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrNotFound             = errors.New("not found")
	ErrBadArchive           = errors.New("uploaded file is not a valid zip archive")
	ErrEmptyLibrary         = errors.New("implant library is empty")
	ErrNoArchive            = errors.New("case has no uploaded archive")
	ErrEmailTaken           = errors.New("account with this email already exists")
	ErrBusy                 = errors.New("resource is busy, try again")
)

// ValidationError carries per-field messages of a rejected input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrValidation, e.Fields)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// newValidationError converts ozzo field errors into a ValidationError.
func newValidationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		fields := make(map[string]string, len(errs))
		for field, fieldErr := range errs {
			fields[field] = fieldErr.Error()
		}
		return &ValidationError{Fields: fields}
	}
	return &ValidationError{Fields: map[string]string{"detail": err.Error()}}
}

func fieldError(field, message string) error {
	return &ValidationError{Fields: map[string]string{field: message}}
}
