package models

import "github.com/shopspring/decimal"

// VariantInfo is the authoritative catalog view of one purchasable variant,
// resolved in a single batched read at checkout time.
type VariantInfo struct {
	VariantID     int64             `json:"variant_id"`
	ProductID     int64             `json:"product_id"`
	ShopID        int64             `json:"shop_id"`
	ProductName   string            `json:"product_name"`
	ImageURL      string            `json:"image_url"`
	Price         decimal.Decimal   `json:"price"`
	StockQuantity int               `json:"stock_quantity"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// OrderLineSpec is a cart line enriched with catalog data and priced with
// the server-side price. Immutable once built.
type OrderLineSpec struct {
	ShopID            int64
	ProductID         int64
	VariantID         int64
	ProductName       string
	ImageURL          string
	VariantAttributes map[string]string
	Quantity          int
	UnitPrice         decimal.Decimal
	Subtotal          decimal.Decimal
}
