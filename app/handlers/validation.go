package main

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/coffeeshop/account-service/app/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// validateRequest validates a request DTO and returns a formatted error
func validateRequest(req interface{}) *errors.AppError {
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// formatValidationErrors formats validator errors into user-friendly messages
func formatValidationErrors(err error) *errors.AppError {
	var messages []string

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			messages = append(messages, formatFieldError(fieldError))
		}
	} else {
		return errors.NewValidation(err.Error())
	}

	return errors.NewValidation(strings.Join(messages, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// sanitizeInput trims whitespace, strips null bytes and caps length in runes.
// preserveSpecialChars keeps control characters intact for passwords.
func sanitizeInput(input string, maxLength int, preserveSpecialChars bool) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	if !preserveSpecialChars {
		var builder strings.Builder
		for _, r := range input {
			if unicode.IsPrint(r) {
				builder.WriteRune(r)
			}
		}
		input = builder.String()
	}

	if maxLength > 0 && utf8.RuneCountInString(input) > maxLength {
		runes := []rune(input)
		input = string(runes[:maxLength])
	}
	return input
}

// sanitizeEmail trims and caps an email address. Case is preserved: lookups
// match the address exactly as it was stored at signup.
func sanitizeEmail(email string, maxLength int) string {
	return sanitizeInput(email, maxLength, false)
}
