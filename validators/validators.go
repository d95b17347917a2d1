package validators

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"marketplace/models"
)

var (
	emailRegex       = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	orderNumberRegex = regexp.MustCompile(`^ORD-\d{4}-\d{6}$`)
)

const (
	maxOrderNumberLen = 50
	maxEmailLen       = 255
)

func ValidateString(field, val string, minLen, maxLen int) error {
	length := utf8.RuneCountInString(val)
	if length < minLen || length > maxLen {
		return fmt.Errorf("%s must be between %d and %d characters", field, minLen, maxLen)
	}
	return nil
}

func ValidateEmail(email string) error {
	if utf8.RuneCountInString(email) > maxEmailLen {
		return fmt.Errorf("email must be at most %d characters", maxEmailLen)
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateAddress caps the length of every shipping-address field. Presence
// of the required fields is the engine's concern; this only rejects payloads
// that could not fit the persisted snapshot.
func ValidateAddress(addr models.ShippingAddress) error {
	checks := []struct {
		field  string
		val    string
		maxLen int
	}{
		{"first_name", addr.FirstName, 100},
		{"last_name", addr.LastName, 100},
		{"street", addr.Street, 255},
		{"city", addr.City, 100},
		{"postal_code", addr.PostalCode, 20},
		{"country", addr.Country, 100},
		{"phone", addr.Phone, 20},
		{"email", addr.Email, maxEmailLen},
	}
	for _, c := range checks {
		if err := ValidateString(c.field, c.val, 0, c.maxLen); err != nil {
			return err
		}
	}
	return nil
}

// ValidateOrderNumber checks the public tracking id format before any
// database access.
func ValidateOrderNumber(orderNumber string) error {
	if utf8.RuneCountInString(orderNumber) > maxOrderNumberLen {
		return fmt.Errorf("order number must be at most %d characters", maxOrderNumberLen)
	}
	if !orderNumberRegex.MatchString(orderNumber) {
		return fmt.Errorf("order number must look like ORD-2025-123456")
	}
	return nil
}
