package validators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"marketplace/models"
)

func TestValidateString(t *testing.T) {
	assert.NoError(t, ValidateString("name", "Anna", 1, 50))
	assert.Error(t, ValidateString("name", "", 1, 50))
	assert.Error(t, ValidateString("name", strings.Repeat("x", 51), 1, 50))
	// Rune count, not byte count.
	assert.NoError(t, ValidateString("name", "Анна", 1, 4))
}

func TestValidateAddress(t *testing.T) {
	addr := models.ShippingAddress{
		FirstName: "Anna",
		LastName:  "Petrova",
		Street:    "12 Rue de la Paix",
	}
	assert.NoError(t, ValidateAddress(addr))

	addr.Street = strings.Repeat("s", 256)
	err := ValidateAddress(addr)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "street")
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("anna@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail(strings.Repeat("a", 250)+"@example.com"))
}

func TestValidateOrderNumber(t *testing.T) {
	assert.NoError(t, ValidateOrderNumber("ORD-2025-288344"))
	assert.Error(t, ValidateOrderNumber("ORD-25-1"))
	assert.Error(t, ValidateOrderNumber("DROP TABLE orders"))
	assert.Error(t, ValidateOrderNumber("ORD-2025-288344"+strings.Repeat("0", 40)))
}
