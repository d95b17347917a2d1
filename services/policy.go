package services

import "github.com/shopspring/decimal"

// ShippingPolicy returns the shipping cost for one per-shop order.
type ShippingPolicy func(subtotal decimal.Decimal, lineCount int) decimal.Decimal

// TaxPolicy returns the tax for one per-shop order.
type TaxPolicy func(subtotal decimal.Decimal) decimal.Decimal

func FreeShipping(decimal.Decimal, int) decimal.Decimal { return decimal.Zero }

func NoTax(decimal.Decimal) decimal.Decimal { return decimal.Zero }

// FlatShipping charges the same amount per shop regardless of cart size.
func FlatShipping(flat decimal.Decimal) ShippingPolicy {
	return func(decimal.Decimal, int) decimal.Decimal { return flat }
}

// RateTax applies a fractional rate to the subtotal, rounded to cents.
func RateTax(rate decimal.Decimal) TaxPolicy {
	return func(subtotal decimal.Decimal) decimal.Decimal {
		return subtotal.Mul(rate).Round(2)
	}
}
