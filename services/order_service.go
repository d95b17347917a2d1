package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace/models"
)

const (
	paymentMethodCard    = "card"
	paymentStatusPending = "pending"

	// Fresh numbers are drawn and the whole transaction is re-run on an
	// order_number conflict, at most this many times.
	maxNumberAttempts = 3

	defaultListLimit = 50
	maxListLimit     = 100
)

var ErrInvalidQuantity = errors.New("line quantity must be at least 1")

// LineSource supplies the cart lines for one checkout. The engine is the
// same for both entry points; only the source differs.
type LineSource interface {
	Lines(ctx context.Context) ([]models.CartLine, error)
	// ClearCartFor names the user whose persisted cart rows must be removed
	// once the checkout commits; nil when the lines arrived in the request
	// payload.
	ClearCartFor() *int64
}

// PayloadSource serves lines straight from the request body.
type PayloadSource []models.CartLine

func (p PayloadSource) Lines(context.Context) ([]models.CartLine, error) { return p, nil }
func (p PayloadSource) ClearCartFor() *int64                             { return nil }

type storedCartSource struct {
	store  Store
	userID int64
}

func (s *storedCartSource) Lines(ctx context.Context) ([]models.CartLine, error) {
	return s.store.CartLines(ctx, s.userID)
}

func (s *storedCartSource) ClearCartFor() *int64 { return &s.userID }

type OrderService struct {
	store    Store
	shipping ShippingPolicy
	tax      TaxPolicy
}

// NewOrderService builds the engine. Nil policies default to free shipping
// and no tax.
func NewOrderService(store Store, shipping ShippingPolicy, tax TaxPolicy) *OrderService {
	if shipping == nil {
		shipping = FreeShipping
	}
	if tax == nil {
		tax = NoTax
	}
	return &OrderService{store: store, shipping: shipping, tax: tax}
}

// CartSource reads the checkout lines from the user's persisted cart and
// clears the purchased rows on success.
func (s *OrderService) CartSource(userID int64) LineSource {
	return &storedCartSource{store: s.store, userID: userID}
}

// Checkout converts one cart into one persisted order per shop, or nothing.
// All validation runs before any write; persistence is a single atomic unit
// across every shop involved.
func (s *OrderService) Checkout(ctx context.Context, userID *int64, source LineSource, addr models.ShippingAddress) ([]models.Order, error) {
	lines, err := source.Lines(ctx)
	if err != nil {
		return nil, &OrderCreationFailed{Cause: err}
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if strings.TrimSpace(addr.FirstName) == "" ||
		strings.TrimSpace(addr.LastName) == "" ||
		strings.TrimSpace(addr.Street) == "" {
		return nil, ErrIncompleteAddress
	}
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	specs, err := s.resolveLines(ctx, lines)
	if err != nil {
		return nil, err
	}

	groups := GroupByShop(specs)
	checkoutID := uuid.New()
	now := time.Now()

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		orderSpecs := make([]models.OrderSpec, 0, len(groups))
		for _, g := range groups {
			subtotal := decimal.Zero
			for _, l := range g.Lines {
				subtotal = subtotal.Add(l.Subtotal)
			}
			shipping := s.shipping(subtotal, len(g.Lines))
			tax := s.tax(subtotal)
			orderSpecs = append(orderSpecs, models.OrderSpec{
				OrderNumber:     NewOrderNumber(now),
				CheckoutID:      checkoutID,
				UserID:          userID,
				ShopID:          g.ShopID,
				Subtotal:        subtotal,
				ShippingCost:    shipping,
				Tax:             tax,
				TotalAmount:     subtotal.Add(shipping).Add(tax),
				ShippingAddress: addr,
				PaymentMethod:   paymentMethodCard,
				PaymentStatus:   paymentStatusPending,
				Status:          models.StatusPending,
				Lines:           g.Lines,
			})
		}

		orders, err := s.store.CreateOrders(ctx, orderSpecs, source.ClearCartFor())
		if errors.Is(err, ErrOrderNumberTaken) {
			continue
		}
		if err != nil {
			var stock *InsufficientStockError
			if errors.As(err, &stock) {
				return nil, stock
			}
			return nil, &OrderCreationFailed{Cause: err}
		}
		return orders, nil
	}
	return nil, &OrderCreationFailed{Cause: ErrOrderNumberTaken}
}

// resolveLines batches the catalog lookup and enriches every cart line with
// authoritative shop, price and snapshot data. Client prices are ignored.
func (s *OrderService) resolveLines(ctx context.Context, lines []models.CartLine) ([]models.OrderLineSpec, error) {
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]bool, len(lines))
	for _, line := range lines {
		if !seen[line.VariantID] {
			seen[line.VariantID] = true
			ids = append(ids, line.VariantID)
		}
	}

	variants, err := s.store.ResolveVariants(ctx, ids)
	if err != nil {
		return nil, &OrderCreationFailed{Cause: err}
	}

	specs := make([]models.OrderLineSpec, 0, len(lines))
	for _, line := range lines {
		v, ok := variants[line.VariantID]
		if !ok {
			return nil, &ProductNotFoundError{VariantID: line.VariantID}
		}
		if line.ProductID != v.ProductID {
			return nil, &DataIntegrityError{
				VariantID:         line.VariantID,
				ClaimedProductID:  line.ProductID,
				ResolvedProductID: v.ProductID,
			}
		}
		if v.StockQuantity < line.Quantity {
			return nil, &InsufficientStockError{
				ProductName: v.ProductName,
				Requested:   line.Quantity,
				Available:   v.StockQuantity,
			}
		}
		attrs := line.SelectedVariantLabels
		if len(attrs) == 0 {
			attrs = v.Attributes
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		specs = append(specs, models.OrderLineSpec{
			ShopID:            v.ShopID,
			ProductID:         v.ProductID,
			VariantID:         v.VariantID,
			ProductName:       v.ProductName,
			ImageURL:          v.ImageURL,
			VariantAttributes: attrs,
			Quantity:          line.Quantity,
			UnitPrice:         v.Price,
			Subtotal:          v.Price.Mul(qty),
		})
	}
	return specs, nil
}

func (s *OrderService) OrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	return s.store.OrderByID(ctx, orderID)
}

// TrackOrder is the public lookup path. The stored shipping email must
// match exactly; on mismatch the order does not exist as far as the caller
// can tell.
func (s *OrderService) TrackOrder(ctx context.Context, orderNumber, email string) (*models.Order, error) {
	order, err := s.store.OrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.ShippingAddress.Email != email {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) OrdersForUser(ctx context.Context, userID int64, f models.OrderFilter) ([]models.Order, error) {
	return s.store.OrdersByUser(ctx, userID, normalizeFilter(f))
}

func (s *OrderService) OrdersForShop(ctx context.Context, shopID int64, f models.OrderFilter) ([]models.Order, error) {
	return s.store.OrdersByShop(ctx, shopID, normalizeFilter(f))
}

func (s *OrderService) ShopOwner(ctx context.Context, shopID int64) (int64, error) {
	return s.store.ShopOwner(ctx, shopID)
}

func normalizeFilter(f models.OrderFilter) models.OrderFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return f
}
