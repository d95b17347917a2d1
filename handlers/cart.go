package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"marketplace/models"
)

func CartHandler(db *sql.DB, getUserID GetUserID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		userID, ok := getUserID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		var cartID int64
		err := db.QueryRow("SELECT cart_id FROM carts WHERE user_id=$1", userID).Scan(&cartID)
		if err == sql.ErrNoRows {
			err = db.QueryRow("INSERT INTO carts(user_id) VALUES($1) RETURNING cart_id", userID).Scan(&cartID)
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		rows, err := db.Query(`
			SELECT ci.cart_item_id, ci.quantity,
			       v.variant_id, v.product_id, p.shop_id,
			       p.name, COALESCE(p.image_url, ''),
			       v.price, v.stock_quantity,
			       COALESCE(v.attributes::text, '{}')
			FROM cart_items ci
			JOIN product_variants v ON v.variant_id = ci.variant_id
			JOIN products p ON p.product_id = v.product_id
			WHERE ci.cart_id = $1
			ORDER BY ci.cart_item_id
		`, cartID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		defer rows.Close()
		items := []models.CartItem{}
		for rows.Next() {
			var ci models.CartItem
			var attrs string
			if err := rows.Scan(
				&ci.CartItemID, &ci.Quantity,
				&ci.Variant.VariantID, &ci.Variant.ProductID, &ci.Variant.ShopID,
				&ci.Variant.ProductName, &ci.Variant.ImageURL,
				&ci.Variant.Price, &ci.Variant.StockQuantity,
				&attrs,
			); err != nil {
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if err := json.Unmarshal([]byte(attrs), &ci.Variant.Attributes); err != nil {
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			ci.LineTotal = ci.Variant.Price.Mul(decimal.NewFromInt(int64(ci.Quantity)))
			items = append(items, ci)
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func AddOrUpdateCartItem(db *sql.DB, getUserID GetUserID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		userID, ok := getUserID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		var req models.CartItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		var cartID int64
		if err := db.QueryRow("SELECT cart_id FROM carts WHERE user_id=$1", userID).Scan(&cartID); err == sql.ErrNoRows {
			if err := db.QueryRow("INSERT INTO carts(user_id) VALUES($1) RETURNING cart_id", userID).Scan(&cartID); err != nil {
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if req.Quantity < 0 {
			_, err := db.Exec(`
				UPDATE cart_items
				SET quantity = GREATEST(quantity + $1, 0)
				WHERE cart_id = $2 AND variant_id = $3
			`, req.Quantity, cartID, req.VariantID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
		} else {
			_, err := db.Exec(`
				INSERT INTO cart_items(cart_id, variant_id, quantity)
				VALUES($1, $2, $3)
				ON CONFLICT (cart_id, variant_id) DO
				UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
			`, cartID, req.VariantID, req.Quantity)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func RemoveCartItem(db *sql.DB, getUserID GetUserID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		userID, ok := getUserID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		variantID, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad variant id")
			return
		}
		var cartID int64
		if err := db.QueryRow("SELECT cart_id FROM carts WHERE user_id=$1", userID).Scan(&cartID); err != nil {
			writeError(w, http.StatusNotFound, "cart not found")
			return
		}
		if _, err := db.Exec("DELETE FROM cart_items WHERE cart_id=$1 AND variant_id=$2", cartID, variantID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
