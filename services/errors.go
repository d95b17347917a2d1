package services

import (
	"errors"
	"fmt"

	"marketplace/models"
)

var ErrEmptyCart = errors.New("cart is empty")

var ErrIncompleteAddress = errors.New("shipping address must include first name, last name and street")

var ErrOrderNotFound = errors.New("order not found")

type ProductNotFoundError struct {
	VariantID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product variant %d not found", e.VariantID)
}

type InsufficientStockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// DataIntegrityError reports a mismatch between the product id asserted by
// the client and the product the variant actually belongs to.
type DataIntegrityError struct {
	VariantID         int64
	ClaimedProductID  int64
	ResolvedProductID int64
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("variant %d belongs to product %d, not %d",
		e.VariantID, e.ResolvedProductID, e.ClaimedProductID)
}

type InvalidStatusTransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// OrderCreationFailed wraps any persistence failure that forced the
// checkout transaction to roll back.
type OrderCreationFailed struct {
	Cause error
}

func (e *OrderCreationFailed) Error() string {
	return fmt.Sprintf("order creation failed: %v", e.Cause)
}

func (e *OrderCreationFailed) Unwrap() error { return e.Cause }
