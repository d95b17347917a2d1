package models

import "github.com/shopspring/decimal"

// CartLine is one requested purchase as the caller asserts it. UnitPrice is
// advisory only: money math always uses the server-resolved price.
type CartLine struct {
	ProductID             int64             `json:"product_id"`
	VariantID             int64             `json:"variant_id"`
	Quantity              int               `json:"quantity"`
	UnitPrice             decimal.Decimal   `json:"unit_price"`
	SelectedVariantLabels map[string]string `json:"selected_variant_labels,omitempty"`
}

type ShippingAddress struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

type CheckoutRequest struct {
	Items   []CartLine      `json:"items"`
	Address ShippingAddress `json:"address"`
	Total   decimal.Decimal `json:"total"` // client figure, never trusted
}

type CartCheckoutRequest struct {
	Address ShippingAddress `json:"address"`
}

type LookupRequest struct {
	OrderNumber string `json:"orderNumber"`
	Email       string `json:"email"`
}

type CartItemRequest struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

type CartItem struct {
	CartItemID int64           `json:"cart_item_id"`
	Quantity   int             `json:"quantity"`
	Variant    VariantInfo     `json:"variant"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

type StatusUpdateRequest struct {
	Status  OrderStatus `json:"status"`
	Comment string      `json:"comment"`
}
