package services

import (
	"context"
	"errors"

	"marketplace/models"
)

// ErrOrderNumberTaken reports that an order number in the submitted set hit
// the order_number uniqueness constraint. The engine retries the whole
// transaction with fresh numbers.
var ErrOrderNumberTaken = errors.New("order number already taken")

// ErrStatusConflict reports that the order's status changed between the
// transition check and the write.
var ErrStatusConflict = errors.New("order status changed concurrently")

// Store is the persistence contract of the order core. CreateOrders must be
// atomic: either every order, item, history row and stock decrement of the
// checkout is persisted, or none of them. Stock decrements must be
// conditional writes (decrement only while stock suffices), never
// read-then-write.
type Store interface {
	// ResolveVariants returns catalog data for the given variant ids in one
	// batched read. Inactive variants, products and shops are omitted.
	ResolveVariants(ctx context.Context, variantIDs []int64) (map[int64]models.VariantInfo, error)

	// CreateOrders persists one checkout. When clearCartFor is non-nil the
	// purchased variants are removed from that user's persisted cart in the
	// same transaction. Returns *InsufficientStockError when a conditional
	// decrement finds too little stock, ErrOrderNumberTaken on an
	// order_number conflict.
	CreateOrders(ctx context.Context, specs []models.OrderSpec, clearCartFor *int64) ([]models.Order, error)

	OrderByID(ctx context.Context, orderID int64) (*models.Order, error)
	OrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	OrdersByUser(ctx context.Context, userID int64, f models.OrderFilter) ([]models.Order, error)
	OrdersByShop(ctx context.Context, shopID int64, f models.OrderFilter) ([]models.Order, error)

	// UpdateOrderStatus writes the new status guarded by the expected
	// current one and appends the history row in the same transaction.
	// Returns ErrStatusConflict when the guard does not match.
	UpdateOrderStatus(ctx context.Context, orderID int64, from, to models.OrderStatus, comment string, updatedBy *int64) (*models.Order, error)

	// CartLines reads the user's persisted cart as checkout input.
	CartLines(ctx context.Context, userID int64) ([]models.CartLine, error)

	// ShopOwner returns the owning user of a shop, or ErrShopNotFound.
	ShopOwner(ctx context.Context, shopID int64) (int64, error)
}

var ErrShopNotFound = errors.New("shop not found")
