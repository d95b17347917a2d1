package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderNumberFormat(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		number := NewOrderNumber(now)
		assert.True(t, OrderNumberPattern.MatchString(number), "bad number %q", number)
		assert.True(t, strings.HasPrefix(number, "ORD-2025-"))
	}
}

func TestNewOrderNumberUsesGivenYear(t *testing.T) {
	number := NewOrderNumber(time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, strings.HasPrefix(number, "ORD-2031-"))
}
