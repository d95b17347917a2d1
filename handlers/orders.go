package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"marketplace/models"
	"marketplace/services"
	"marketplace/validators"
)

// GetUserID reads the authenticated user from the request context; ok is
// false for anonymous requests.
type GetUserID func(*http.Request) (int64, bool)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]interface{}{"ok": false, "message": message})
}

// orderError maps the service error taxonomy onto stable HTTP codes and
// shopper-readable messages.
func orderError(w http.ResponseWriter, err error) {
	var (
		stock      *services.InsufficientStockError
		notFound   *services.ProductNotFoundError
		integrity  *services.DataIntegrityError
		transition *services.InvalidStatusTransitionError
	)
	switch {
	case errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrIncompleteAddress),
		errors.Is(err, services.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &stock), errors.As(err, &integrity), errors.As(err, &transition):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound),
		errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrShopNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrStatusConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// CreateOrderHandler is POST /orders: checkout straight from the request
// payload. Guest checkout is allowed, so auth is optional here.
func CreateOrderHandler(svc *services.OrderService, getUserID GetUserID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req models.CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := validators.ValidateAddress(req.Address); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var userID *int64
		if id, ok := getUserID(r); ok {
			userID = &id
		}
		orders, err := svc.Checkout(r.Context(), userID, services.PayloadSource(req.Items), req.Address)
		if err != nil {
			orderError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"ok":           true,
			"order":        orders[0],
			"shop_orders":  orders,
			"id":           orders[0].ID,
			"order_number": orders[0].OrderNumber,
		})
	}
}

// CheckoutFromCartHandler is POST /orders/from-cart: the same engine fed
// from the caller's persisted cart, which is cleared on success.
func CheckoutFromCartHandler(svc *services.OrderService, getUserID GetUserID) http.HandlerFunc {
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
		var req models.CartCheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := validators.ValidateAddress(req.Address); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		orders, err := svc.Checkout(r.Context(), &userID, svc.CartSource(userID), req.Address)
		if err != nil {
			orderError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"ok":           true,
			"order":        orders[0],
			"shop_orders":  orders,
			"id":           orders[0].ID,
			"order_number": orders[0].OrderNumber,
		})
	}
}

// MyOrdersHandler is GET /orders/my-orders with optional status and limit
// query filters.
func MyOrdersHandler(svc *services.OrderService, getUserID GetUserID) http.HandlerFunc {
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
		filter, err := parseFilter(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		orders, err := svc.OrdersForUser(r.Context(), userID, filter)
		if err != nil {
			orderError(w, err)
			return
		}
		if orders == nil {
			orders = []models.Order{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "orders": orders})
	}
}

// LookupHandler is POST /orders/lookup, the public tracking endpoint. Both
// fields are format-checked before any database access.
func LookupHandler(svc *services.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req models.LookupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := validators.ValidateOrderNumber(req.OrderNumber); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := validators.ValidateEmail(req.Email); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		order, err := svc.TrackOrder(r.Context(), req.OrderNumber, req.Email)
		if err != nil {
			if errors.Is(err, services.ErrOrderNotFound) {
				writeError(w, http.StatusNotFound, "order not found")
				return
			}
			orderError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "order": order})
	}
}

// OrderHandler serves the /orders/{id} subtree: GET for a single order,
// PATCH on /orders/{id}/status for lifecycle transitions.
func OrderHandler(svc *services.OrderService, getUserID GetUserID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) == 3 && parts[2] == "status" {
			updateStatus(svc, getUserID, parts[1])(w, r)
			return
		}
		if len(parts) != 2 {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		orderID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		order, err := svc.OrderByID(r.Context(), orderID)
		if err != nil {
			orderError(w, err)
			return
		}
		// Owned orders are visible to their owner only; guest orders have
		// no owner to check against.
		if order.UserID != nil {
			userID, ok := getUserID(r)
			if !ok || userID != *order.UserID {
				writeError(w, http.StatusNotFound, "order not found")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "order": order})
	}
}

func updateStatus(svc *services.OrderService, getUserID GetUserID, rawID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		userID, ok := getUserID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		orderID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		var req models.StatusUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		order, err := svc.UpdateStatus(r.Context(), orderID, req.Status, req.Comment, &userID)
		if err != nil {
			orderError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "order": order})
	}
}

// ShopOrdersHandler is GET /shops/{shopId}/orders, restricted to the shop
// owner.
func ShopOrdersHandler(svc *services.OrderService, getUserID GetUserID) http.HandlerFunc {
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
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 3 || parts[2] != "orders" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		shopID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			writeError(w, http.StatusNotFound, "shop not found")
			return
		}
		owner, err := svc.ShopOwner(r.Context(), shopID)
		if err != nil {
			orderError(w, err)
			return
		}
		if owner != userID {
			writeError(w, http.StatusNotFound, "shop not found")
			return
		}
		filter, err := parseFilter(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		orders, err := svc.OrdersForShop(r.Context(), shopID, filter)
		if err != nil {
			orderError(w, err)
			return
		}
		if orders == nil {
			orders = []models.Order{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "orders": orders})
	}
}

func parseFilter(r *http.Request) (models.OrderFilter, error) {
	var f models.OrderFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.OrderStatus(raw)
		if !status.Valid() {
			return f, errors.New("unknown status filter")
		}
		f.Status = status
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return f, errors.New("limit must be a positive integer")
		}
		f.Limit = limit
	}
	return f, nil
}
