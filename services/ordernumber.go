package services

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"
)

// OrderNumberPattern is the public shape of an order number, e.g.
// ORD-2025-288344.
var OrderNumberPattern = regexp.MustCompile(`^ORD-\d{4}-\d{6}$`)

// NewOrderNumber draws a random six-digit number scoped to the current
// year. Draws can collide; the engine retries persistence on the
// order_number uniqueness constraint.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%04d-%06d", now.Year(), rand.IntN(1000000))
}
