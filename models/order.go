package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID              int64                `json:"id"`
	OrderNumber     string               `json:"order_number"`
	CheckoutID      uuid.UUID            `json:"checkout_id"`
	UserID          *int64               `json:"user_id,omitempty"`
	ShopID          int64                `json:"shop_id"`
	ShopName        string               `json:"shop_name"`
	ShopSlug        string               `json:"shop_slug"`
	Subtotal        decimal.Decimal      `json:"subtotal"`
	ShippingCost    decimal.Decimal      `json:"shipping_cost"`
	Tax             decimal.Decimal      `json:"tax"`
	TotalAmount     decimal.Decimal      `json:"total_amount"`
	ShippingAddress ShippingAddress      `json:"shipping_address"`
	PaymentMethod   string               `json:"payment_method"`
	PaymentStatus   string               `json:"payment_status"`
	Status          OrderStatus          `json:"status"`
	Items           []OrderItem          `json:"items"`
	History         []OrderStatusHistory `json:"history,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type OrderItem struct {
	ID                int64             `json:"id"`
	OrderID           int64             `json:"order_id"`
	ProductID         int64             `json:"product_id"`
	ProductVariantID  int64             `json:"product_variant_id"`
	Quantity          int               `json:"quantity"`
	UnitPrice         decimal.Decimal   `json:"unit_price"`
	Subtotal          decimal.Decimal   `json:"subtotal"`
	ProductName       string            `json:"product_name"`
	ProductImageURL   string            `json:"product_image_url"`
	VariantAttributes map[string]string `json:"variant_attributes,omitempty"`
}

type OrderStatusHistory struct {
	ID        int64       `json:"id"`
	OrderID   int64       `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Comment   string      `json:"comment"`
	CreatedBy *int64      `json:"created_by,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// OrderSpec is a fully priced per-shop order ready to be persisted. The
// engine computes it; the store writes it atomically together with the
// sibling specs from the same checkout.
type OrderSpec struct {
	OrderNumber     string
	CheckoutID      uuid.UUID
	UserID          *int64
	ShopID          int64
	Subtotal        decimal.Decimal
	ShippingCost    decimal.Decimal
	Tax             decimal.Decimal
	TotalAmount     decimal.Decimal
	ShippingAddress ShippingAddress
	PaymentMethod   string
	PaymentStatus   string
	Status          OrderStatus
	Lines           []OrderLineSpec
}

type OrderFilter struct {
	Status OrderStatus
	Limit  int
}
