package validation

import (
	"strings"
)

// ValidateAmount checks a cash amount arriving as a string: required,
// numeric and strictly positive.
func ValidateAmount(amount string) error {
	errors := make(map[string]string)

	if strings.TrimSpace(amount) == "" {
		errors["amount"] = "amount is required"
	} else if _, err := parsePositiveDecimal(amount); err != nil {
		errors["amount"] = err.Error()
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
