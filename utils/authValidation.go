package utils

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const MinPasswordLength = 6

var (
	ErrPasswordTooShort = errors.New("password must be at least 6 characters long")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// ValidateLogin checks that both login fields are present.
func ValidateLogin(email, password string) error {
	return validation.Errors{
		"email":    validation.Validate(email, validation.Required.Error("email and password required")),
		"password": validation.Validate(password, validation.Required.Error("email and password required")),
	}.Filter()
}

// ValidateAccountData validates the identity fields shared by every registration path.
func ValidateAccountData(email, name, surname, patronymic string) error {
	return validation.Errors{
		"email":      validation.Validate(email, validation.Required, validation.Length(3, 254), is.EmailFormat),
		"name":       validation.Validate(name, validation.Required, validation.Length(1, 50)),
		"surname":    validation.Validate(surname, validation.Required, validation.Length(1, 50)),
		"patronymic": validation.Validate(patronymic, validation.Length(0, 50)),
	}.Filter()
}

// ValidatePasswordPair checks length and confirmation of a new password.
func ValidatePasswordPair(password, password2 string) error {
	errs := validation.Errors{
		"password":  validation.Validate(password, validation.Required, validation.By(validatePassword)),
		"password2": validation.Validate(password2, validation.Required),
	}
	if password != "" && password2 != "" && password != password2 {
		errs["password"] = ErrPasswordMismatch
	}
	return errs.Filter()
}

// validatePassword checks the password length.
func validatePassword(value interface{}) error {
	password, _ := value.(string)
	if len([]rune(password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// NormalizeEmail trims the address and lower-cases its domain part.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
