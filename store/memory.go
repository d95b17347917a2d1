package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketplace/models"
	"marketplace/services"
)

// MemoryStore is a mutex-guarded Store for tests and embedding. It applies
// the same all-or-nothing rules as PostgresStore: a checkout either lands
// completely or leaves no trace, and stock never goes negative.
type MemoryStore struct {
	mu       sync.Mutex
	shops    map[int64]memShop
	variants map[int64]*models.VariantInfo
	orders   map[int64]*models.Order
	numbers  map[string]int64
	carts    map[int64][]models.CartLine

	nextOrderID   int64
	nextItemID    int64
	nextHistoryID int64
}

type memShop struct {
	name  string
	slug  string
	owner int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shops:    make(map[int64]memShop),
		variants: make(map[int64]*models.VariantInfo),
		orders:   make(map[int64]*models.Order),
		numbers:  make(map[string]int64),
		carts:    make(map[int64][]models.CartLine),
	}
}

func (s *MemoryStore) AddShop(id int64, name, slug string, owner int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shops[id] = memShop{name: name, slug: slug, owner: owner}
}

func (s *MemoryStore) AddVariant(v models.VariantInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := v
	s.variants[v.VariantID] = &copied
}

func (s *MemoryStore) Stock(variantID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.variants[variantID]; ok {
		return v.StockQuantity
	}
	return 0
}

func (s *MemoryStore) SeedCart(userID int64, lines ...models.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[userID] = append(s.carts[userID], lines...)
}

func (s *MemoryStore) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *MemoryStore) ResolveVariants(_ context.Context, variantIDs []int64) (map[int64]models.VariantInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]models.VariantInfo, len(variantIDs))
	for _, id := range variantIDs {
		if v, ok := s.variants[id]; ok {
			out[id] = *v
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateOrders(_ context.Context, specs []models.OrderSpec, clearCartFor *int64) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, spec := range specs {
		if _, taken := s.numbers[spec.OrderNumber]; taken {
			return nil, services.ErrOrderNumberTaken
		}
	}

	// Stage decrements against a scratch copy so a late failure mutates
	// nothing.
	staged := make(map[int64]int)
	for _, spec := range specs {
		for _, line := range spec.Lines {
			v, ok := s.variants[line.VariantID]
			if !ok {
				return nil, &services.InsufficientStockError{
					ProductName: line.ProductName, Requested: line.Quantity,
				}
			}
			if _, seen := staged[line.VariantID]; !seen {
				staged[line.VariantID] = v.StockQuantity
			}
			if staged[line.VariantID] < line.Quantity {
				return nil, &services.InsufficientStockError{
					ProductName: line.ProductName,
					Requested:   line.Quantity,
					Available:   staged[line.VariantID],
				}
			}
			staged[line.VariantID] -= line.Quantity
		}
	}
	for id, remaining := range staged {
		s.variants[id].StockQuantity = remaining
	}

	now := time.Now()
	orders := make([]models.Order, 0, len(specs))
	for _, spec := range specs {
		s.nextOrderID++
		shop := s.shops[spec.ShopID]
		order := &models.Order{
			ID:              s.nextOrderID,
			OrderNumber:     spec.OrderNumber,
			CheckoutID:      spec.CheckoutID,
			UserID:          spec.UserID,
			ShopID:          spec.ShopID,
			ShopName:        shop.name,
			ShopSlug:        shop.slug,
			Subtotal:        spec.Subtotal,
			ShippingCost:    spec.ShippingCost,
			Tax:             spec.Tax,
			TotalAmount:     spec.TotalAmount,
			ShippingAddress: spec.ShippingAddress,
			PaymentMethod:   spec.PaymentMethod,
			PaymentStatus:   spec.PaymentStatus,
			Status:          spec.Status,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		for _, line := range spec.Lines {
			s.nextItemID++
			order.Items = append(order.Items, models.OrderItem{
				ID:                s.nextItemID,
				OrderID:           order.ID,
				ProductID:         line.ProductID,
				ProductVariantID:  line.VariantID,
				Quantity:          line.Quantity,
				UnitPrice:         line.UnitPrice,
				Subtotal:          line.Subtotal,
				ProductName:       line.ProductName,
				ProductImageURL:   line.ImageURL,
				VariantAttributes: line.VariantAttributes,
			})
		}
		s.nextHistoryID++
		order.History = []models.OrderStatusHistory{{
			ID:        s.nextHistoryID,
			OrderID:   order.ID,
			Status:    spec.Status,
			Comment:   "order created",
			CreatedBy: spec.UserID,
			CreatedAt: now,
		}}
		s.orders[order.ID] = order
		s.numbers[spec.OrderNumber] = order.ID
		orders = append(orders, copyOrder(order))
	}

	if clearCartFor != nil {
		purchased := make(map[int64]bool)
		for _, spec := range specs {
			for _, line := range spec.Lines {
				purchased[line.VariantID] = true
			}
		}
		var kept []models.CartLine
		for _, line := range s.carts[*clearCartFor] {
			if !purchased[line.VariantID] {
				kept = append(kept, line)
			}
		}
		s.carts[*clearCartFor] = kept
	}

	return orders, nil
}

func (s *MemoryStore) OrderByID(_ context.Context, orderID int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, services.ErrOrderNotFound
	}
	o := copyOrder(order)
	return &o, nil
}

func (s *MemoryStore) OrderByNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.numbers[orderNumber]
	if !ok {
		return nil, services.ErrOrderNotFound
	}
	o := copyOrder(s.orders[id])
	return &o, nil
}

func (s *MemoryStore) OrdersByUser(_ context.Context, userID int64, f models.OrderFilter) ([]models.Order, error) {
	return s.list(func(o *models.Order) bool {
		return o.UserID != nil && *o.UserID == userID
	}, f)
}

func (s *MemoryStore) OrdersByShop(_ context.Context, shopID int64, f models.OrderFilter) ([]models.Order, error) {
	return s.list(func(o *models.Order) bool { return o.ShopID == shopID }, f)
}

func (s *MemoryStore) list(match func(*models.Order) bool, f models.OrderFilter) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if !match(o) {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateOrderStatus(_ context.Context, orderID int64, from, to models.OrderStatus, comment string, updatedBy *int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, services.ErrOrderNotFound
	}
	if order.Status != from {
		return nil, services.ErrStatusConflict
	}
	now := time.Now()
	order.Status = to
	order.UpdatedAt = now
	s.nextHistoryID++
	order.History = append(order.History, models.OrderStatusHistory{
		ID:        s.nextHistoryID,
		OrderID:   orderID,
		Status:    to,
		Comment:   comment,
		CreatedBy: updatedBy,
		CreatedAt: now,
	})
	o := copyOrder(order)
	return &o, nil
}

func (s *MemoryStore) CartLines(_ context.Context, userID int64) ([]models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Cart rows clamped to quantity 0 stay in the cart table but are not
	// checkout input.
	lines := make([]models.CartLine, 0, len(s.carts[userID]))
	for _, line := range s.carts[userID] {
		if line.Quantity > 0 {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (s *MemoryStore) ShopOwner(_ context.Context, shopID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shop, ok := s.shops[shopID]
	if !ok {
		return 0, services.ErrShopNotFound
	}
	return shop.owner, nil
}

// copyOrder snapshots an order with its history newest-first, matching the
// SQL read paths.
func copyOrder(o *models.Order) models.Order {
	out := *o
	out.Items = append([]models.OrderItem(nil), o.Items...)
	out.History = make([]models.OrderStatusHistory, len(o.History))
	for i, h := range o.History {
		out.History[len(o.History)-1-i] = h
	}
	return out
}
