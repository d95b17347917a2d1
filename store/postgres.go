package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"marketplace/models"
	"marketplace/services"
)

// PostgresStore is the production Store. Every checkout runs as one
// database transaction; stock is mutated only through conditional
// decrements so concurrent checkouts cannot oversell.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ResolveVariants(ctx context.Context, variantIDs []int64) (map[int64]models.VariantInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.variant_id, v.product_id, p.shop_id,
		       p.name, COALESCE(p.image_url, ''),
		       v.price, v.stock_quantity,
		       COALESCE(v.attributes::text, '{}')
		FROM product_variants v
		JOIN products p ON p.product_id = v.product_id
		JOIN shops sh ON sh.shop_id = p.shop_id
		WHERE v.variant_id = ANY($1)
		  AND v.is_active AND p.is_active AND sh.is_active
	`, pq.Array(variantIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	variants := make(map[int64]models.VariantInfo, len(variantIDs))
	for rows.Next() {
		var v models.VariantInfo
		var attrs string
		if err := rows.Scan(
			&v.VariantID, &v.ProductID, &v.ShopID,
			&v.ProductName, &v.ImageURL,
			&v.Price, &v.StockQuantity,
			&attrs,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(attrs), &v.Attributes); err != nil {
			return nil, fmt.Errorf("variant %d attributes: %w", v.VariantID, err)
		}
		variants[v.VariantID] = v
	}
	return variants, rows.Err()
}

func (s *PostgresStore) CreateOrders(ctx context.Context, specs []models.OrderSpec, clearCartFor *int64) ([]models.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	shops, err := shopNames(ctx, tx, specs)
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(specs))
	for _, spec := range specs {
		order, err := insertOrder(ctx, tx, spec)
		if err != nil {
			return nil, err
		}
		order.ShopName = shops[spec.ShopID].name
		order.ShopSlug = shops[spec.ShopID].slug
		orders = append(orders, *order)
	}

	if clearCartFor != nil {
		ids := make([]int64, 0)
		for _, spec := range specs {
			for _, line := range spec.Lines {
				ids = append(ids, line.VariantID)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM cart_items
			WHERE cart_id = (SELECT cart_id FROM carts WHERE user_id = $1)
			  AND variant_id = ANY($2)
		`, *clearCartFor, pq.Array(ids)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapOrderNumberConflict(err)
	}
	return orders, nil
}

func insertOrder(ctx context.Context, tx *sql.Tx, spec models.OrderSpec) (*models.Order, error) {
	addrJSON, err := json.Marshal(spec.ShippingAddress)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		OrderNumber:     spec.OrderNumber,
		CheckoutID:      spec.CheckoutID,
		UserID:          spec.UserID,
		ShopID:          spec.ShopID,
		Subtotal:        spec.Subtotal,
		ShippingCost:    spec.ShippingCost,
		Tax:             spec.Tax,
		TotalAmount:     spec.TotalAmount,
		ShippingAddress: spec.ShippingAddress,
		PaymentMethod:   spec.PaymentMethod,
		PaymentStatus:   spec.PaymentStatus,
		Status:          spec.Status,
	}

	var userID sql.NullInt64
	if spec.UserID != nil {
		userID = sql.NullInt64{Int64: *spec.UserID, Valid: true}
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (order_number, checkout_id, user_id, shop_id,
		                    subtotal, shipping_cost, tax, total_amount,
		                    shipping_address, payment_method, payment_status, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING order_id, created_at, updated_at
	`, spec.OrderNumber, spec.CheckoutID, userID, spec.ShopID,
		spec.Subtotal, spec.ShippingCost, spec.Tax, spec.TotalAmount,
		addrJSON, spec.PaymentMethod, spec.PaymentStatus, spec.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, mapOrderNumberConflict(err)
	}

	for _, line := range spec.Lines {
		res, err := tx.ExecContext(ctx, `
			UPDATE product_variants
			SET stock_quantity = stock_quantity - $1
			WHERE variant_id = $2 AND stock_quantity >= $1
		`, line.Quantity, line.VariantID)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			// Lost the race for the last units. The transaction is still
			// healthy, so read the remaining stock for the error payload.
			var available int
			if err := tx.QueryRowContext(ctx,
				`SELECT stock_quantity FROM product_variants WHERE variant_id = $1`,
				line.VariantID).Scan(&available); err != nil && err != sql.ErrNoRows {
				return nil, err
			}
			return nil, &services.InsufficientStockError{
				ProductName: line.ProductName,
				Requested:   line.Quantity,
				Available:   available,
			}
		}

		attrsJSON, err := json.Marshal(line.VariantAttributes)
		if err != nil {
			return nil, err
		}
		item := models.OrderItem{
			OrderID:           order.ID,
			ProductID:         line.ProductID,
			ProductVariantID:  line.VariantID,
			Quantity:          line.Quantity,
			UnitPrice:         line.UnitPrice,
			Subtotal:          line.Subtotal,
			ProductName:       line.ProductName,
			ProductImageURL:   line.ImageURL,
			VariantAttributes: line.VariantAttributes,
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_variant_id,
			                         quantity, unit_price, subtotal,
			                         product_name, product_image_url, variant_attributes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING order_item_id
		`, order.ID, line.ProductID, line.VariantID,
			line.Quantity, line.UnitPrice, line.Subtotal,
			line.ProductName, line.ImageURL, attrsJSON,
		).Scan(&item.ID)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	var createdBy sql.NullInt64
	if spec.UserID != nil {
		createdBy = sql.NullInt64{Int64: *spec.UserID, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, status, comment, created_by)
		VALUES ($1, $2, $3, $4)
	`, order.ID, spec.Status, "order created", createdBy); err != nil {
		return nil, err
	}

	return &order, nil
}

type shopRow struct {
	name string
	slug string
}

func shopNames(ctx context.Context, tx *sql.Tx, specs []models.OrderSpec) (map[int64]shopRow, error) {
	ids := make([]int64, 0, len(specs))
	for _, spec := range specs {
		ids = append(ids, spec.ShopID)
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT shop_id, name, slug FROM shops WHERE shop_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shops := make(map[int64]shopRow, len(ids))
	for rows.Next() {
		var id int64
		var sr shopRow
		if err := rows.Scan(&id, &sr.name, &sr.slug); err != nil {
			return nil, err
		}
		shops[id] = sr
	}
	return shops, rows.Err()
}

// mapOrderNumberConflict turns a unique violation on orders.order_number
// into the sentinel the engine retries on.
func mapOrderNumberConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) &&
		pqErr.Code == "23505" &&
		strings.Contains(pqErr.Constraint, "order_number") {
		return services.ErrOrderNumberTaken
	}
	return err
}

func (s *PostgresStore) OrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	return s.loadOrder(ctx, "o.order_id = $1", orderID)
}

func (s *PostgresStore) OrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return s.loadOrder(ctx, "o.order_number = $1", orderNumber)
}

const orderColumns = `
	o.order_id, o.order_number, o.checkout_id, o.user_id, o.shop_id,
	sh.name, sh.slug,
	o.subtotal, o.shipping_cost, o.tax, o.total_amount,
	o.shipping_address::text, o.payment_method, o.payment_status, o.status,
	o.created_at, o.updated_at`

func (s *PostgresStore) loadOrder(ctx context.Context, where string, arg interface{}) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		JOIN shops sh ON sh.shop_id = o.shop_id
		WHERE `+where, arg)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, services.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.fillOrders(ctx, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *PostgresStore) OrdersByUser(ctx context.Context, userID int64, f models.OrderFilter) ([]models.Order, error) {
	return s.listOrders(ctx, "o.user_id = $1", userID, f)
}

func (s *PostgresStore) OrdersByShop(ctx context.Context, shopID int64, f models.OrderFilter) ([]models.Order, error) {
	return s.listOrders(ctx, "o.shop_id = $1", shopID, f)
}

func (s *PostgresStore) listOrders(ctx context.Context, where string, arg interface{}, f models.OrderFilter) ([]models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		JOIN shops sh ON sh.shop_id = o.shop_id
		WHERE ` + where
	args := []interface{}{arg}
	if f.Status != "" {
		query += " AND o.status = $2"
		args = append(args, f.Status)
	}
	query += fmt.Sprintf(" ORDER BY o.created_at DESC LIMIT %d", f.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.fillOrders(ctx, orders); err != nil {
		return nil, err
	}
	out := make([]models.Order, len(orders))
	for i, o := range orders {
		out[i] = *o
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row scanner) (*models.Order, error) {
	var order models.Order
	var userID sql.NullInt64
	var addr string
	if err := row.Scan(
		&order.ID, &order.OrderNumber, &order.CheckoutID, &userID, &order.ShopID,
		&order.ShopName, &order.ShopSlug,
		&order.Subtotal, &order.ShippingCost, &order.Tax, &order.TotalAmount,
		&addr, &order.PaymentMethod, &order.PaymentStatus, &order.Status,
		&order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if userID.Valid {
		order.UserID = &userID.Int64
	}
	if err := json.Unmarshal([]byte(addr), &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("order %d shipping address: %w", order.ID, err)
	}
	return &order, nil
}

// fillOrders loads items and history (newest first) for the given orders in
// two batched reads.
func (s *PostgresStore) fillOrders(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[int64]*models.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT order_item_id, order_id, product_id, product_variant_id,
		       quantity, unit_price, subtotal,
		       product_name, COALESCE(product_image_url, ''),
		       COALESCE(variant_attributes::text, '{}')
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_item_id
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var item models.OrderItem
		var attrs string
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.ProductVariantID,
			&item.Quantity, &item.UnitPrice, &item.Subtotal,
			&item.ProductName, &item.ProductImageURL, &attrs,
		); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(attrs), &item.VariantAttributes); err != nil {
			return fmt.Errorf("order item %d attributes: %w", item.ID, err)
		}
		byID[item.OrderID].Items = append(byID[item.OrderID].Items, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	hrows, err := s.db.QueryContext(ctx, `
		SELECT history_id, order_id, status, COALESCE(comment, ''), created_by, created_at
		FROM order_status_history
		WHERE order_id = ANY($1)
		ORDER BY created_at DESC, history_id DESC
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer hrows.Close()
	for hrows.Next() {
		var h models.OrderStatusHistory
		var createdBy sql.NullInt64
		if err := hrows.Scan(&h.ID, &h.OrderID, &h.Status, &h.Comment, &createdBy, &h.CreatedAt); err != nil {
			return err
		}
		if createdBy.Valid {
			h.CreatedBy = &createdBy.Int64
		}
		byID[h.OrderID].History = append(byID[h.OrderID].History, h)
	}
	return hrows.Err()
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, orderID int64, from, to models.OrderStatus, comment string, updatedBy *int64) (*models.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = now()
		WHERE order_id = $2 AND status = $3
	`, to, orderID, from)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE order_id = $1)`, orderID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, services.ErrOrderNotFound
		}
		return nil, services.ErrStatusConflict
	}

	var createdBy sql.NullInt64
	if updatedBy != nil {
		createdBy = sql.NullInt64{Int64: *updatedBy, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, status, comment, created_by)
		VALUES ($1, $2, $3, $4)
	`, orderID, to, comment, createdBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.OrderByID(ctx, orderID)
}

func (s *PostgresStore) CartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ci.variant_id, v.product_id, ci.quantity
		FROM cart_items ci
		JOIN carts c ON c.cart_id = ci.cart_id
		JOIN product_variants v ON v.variant_id = ci.variant_id
		WHERE c.user_id = $1 AND ci.quantity > 0
		ORDER BY ci.cart_item_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []models.CartLine
	for rows.Next() {
		var line models.CartLine
		if err := rows.Scan(&line.VariantID, &line.ProductID, &line.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (s *PostgresStore) ShopOwner(ctx context.Context, shopID int64) (int64, error) {
	var owner int64
	err := s.db.QueryRowContext(ctx,
		`SELECT owner_user_id FROM shops WHERE shop_id = $1`, shopID).Scan(&owner)
	if err == sql.ErrNoRows {
		return 0, services.ErrShopNotFound
	}
	if err != nil {
		return 0, err
	}
	return owner, nil
}
