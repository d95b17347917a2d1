package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/handlers"
	"marketplace/models"
	"marketplace/services"
	"marketplace/store"
)

func price(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedStore() *store.MemoryStore {
	st := store.NewMemoryStore()
	st.AddShop(1, "Maple Goods", "maple-goods", 100)
	st.AddShop(2, "Pine Crafts", "pine-crafts", 200)
	st.AddVariant(models.VariantInfo{
		VariantID: 11, ProductID: 1, ShopID: 1,
		ProductName: "Wool Scarf", Price: price("25.50"), StockQuantity: 10,
	})
	st.AddVariant(models.VariantInfo{
		VariantID: 21, ProductID: 2, ShopID: 2,
		ProductName: "Oak Bowl", Price: price("40.00"), StockQuantity: 3,
	})
	return st
}

// newTestServer wires the order routes like main.go does, with the auth
// collaborator stubbed by an X-User-ID header.
func newTestServer(st *store.MemoryStore) *httptest.Server {
	svc := services.NewOrderService(st, nil, nil)
	getUserID := func(r *http.Request) (int64, bool) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			return 0, false
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", handlers.CreateOrderHandler(svc, getUserID))
	mux.HandleFunc("/orders/my-orders", handlers.MyOrdersHandler(svc, getUserID))
	mux.HandleFunc("/orders/lookup", handlers.LookupHandler(svc))
	mux.HandleFunc("/orders/from-cart", handlers.CheckoutFromCartHandler(svc, getUserID))
	mux.HandleFunc("/orders/", handlers.OrderHandler(svc, getUserID))
	mux.HandleFunc("/shops/", handlers.ShopOrdersHandler(svc, getUserID))
	return httptest.NewServer(mux)
}

func doJSON(t *testing.T, method, url string, body interface{}, userID string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func checkoutBody() map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": 1, "variant_id": 11, "quantity": 2},
			{"product_id": 2, "variant_id": 21, "quantity": 1},
		},
		"address": map[string]string{
			"first_name": "Anna",
			"last_name":  "Petrova",
			"street":     "12 Rue de la Paix",
			"email":      "anna@example.com",
		},
		"total": "91.00",
	}
}

func TestCreateOrder(t *testing.T) {
	st := seedStore()
	srv := newTestServer(st)
	defer srv.Close()

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders", checkoutBody(), "7")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["ok"])

	shopOrders, ok := body["shop_orders"].([]interface{})
	require.True(t, ok)
	assert.Len(t, shopOrders, 2)

	number, ok := body["order_number"].(string)
	require.True(t, ok)
	assert.True(t, services.OrderNumberPattern.MatchString(number), "bad number %q", number)
	assert.NotZero(t, body["id"])

	assert.Equal(t, 8, st.Stock(11))
	assert.Equal(t, 2, st.Stock(21))
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	srv := newTestServer(seedStore())
	defer srv.Close()

	body := checkoutBody()
	body["items"] = []map[string]interface{}{
		{"product_id": 2, "variant_id": 21, "quantity": 5},
	}
	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/orders", body, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, decoded["ok"])
	assert.Contains(t, decoded["message"], "Oak Bowl")
	assert.Contains(t, decoded["message"], "available 3")
}

func TestCreateOrderOverlongAddressField(t *testing.T) {
	srv := newTestServer(seedStore())
	defer srv.Close()

	body := checkoutBody()
	body["address"] = map[string]string{
		"first_name": "Anna",
		"last_name":  "Petrova",
		"street":     strings.Repeat("s", 256),
	}
	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/orders", body, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, decoded["ok"])
	assert.Contains(t, decoded["message"], "street")
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	srv := newTestServer(seedStore())
	defer srv.Close()

	body := checkoutBody()
	body["items"] = []map[string]interface{}{
		{"product_id": 9, "variant_id": 99, "quantity": 1},
	}
	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/orders", body, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, decoded["ok"])
}

func TestCreateOrderEmptyCart(t *testing.T) {
	srv := newTestServer(seedStore())
	defer srv.Close()

	body := checkoutBody()
	body["items"] = []map[string]interface{}{}
	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/orders", body, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, decoded["ok"])
}

func TestGetOrderVisibility(t *testing.T) {
	srv := newTestServer(seedStore())
	defer srv.Close()

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders", checkoutBody(), "7")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := int64(body["id"].(float64))
	url := fmt.Sprintf("%s/orders/%d", srv.URL, orderID)

	// Owner sees the order.
	resp, body = doJSON(t, http.MethodGet, url, nil, "7")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])

	// Anonymous and other users get a 404, not a 403.
	resp, _ = doJSON(t, http.MethodGet, url, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodGet, url, nil, "8")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetGuestOrderByID(t *testing.T) {
	srv := newTestServer(seedStore())
	defer srv.Close()

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders", checkoutBody(), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := int64(body["id"].(float64))

	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/orders/%d", srv.URL, orderID), nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
}

func TestMyOrders(t *testing.T) {
	srv := newTestServer(seedStore())
	defer srv.Close()

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/orders/my-orders", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, body := doJSON(t, http.MethodPost, srv.URL+"/orders", checkoutBody(), "7")
	require.Equal(t, true, body["ok"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/orders/my-orders", nil, "7")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	orders := body["orders"].([]interface{})
	assert.Len(t, orders, 2)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/orders/my-orders?status=shipped", nil, "7")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["orders"])

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/orders/my-orders?status=bogus", nil, "7")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLookup(t *testing.T) {
	srv := newTestServer(seedStore())
	defer srv.Close()

	_, created := doJSON(t, http.MethodPost, srv.URL+"/orders", checkoutBody(), "")
	number := created["order_number"].(string)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders/lookup",
		map[string]string{"orderNumber": number, "email": "anna@example.com"}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])

	// Wrong email: the order must not exist as far as the caller can tell.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/orders/lookup",
		map[string]string{"orderNumber": number, "email": "other@example.com"}, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["ok"])

	// Well-formed but nonexistent.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/orders/lookup",
		map[string]string{"orderNumber": "ORD-2025-000001", "email": "anna@example.com"}, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["ok"])

	// Malformed number is rejected before any lookup.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/orders/lookup",
		map[string]string{"orderNumber": "DROP TABLE orders", "email": "anna@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/orders/lookup",
		map[string]string{"orderNumber": "ORD-2025-000001", "email": "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateStatus(t *testing.T) {
	srv := newTestServer(seedStore())
	defer srv.Close()

	_, created := doJSON(t, http.MethodPost, srv.URL+"/orders", checkoutBody(), "7")
	orderID := int64(created["id"].(float64))
	url := fmt.Sprintf("%s/orders/%d/status", srv.URL, orderID)

	resp, body := doJSON(t, http.MethodPatch, url,
		map[string]string{"status": "confirmed", "comment": "payment cleared"}, "100")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	order := body["order"].(map[string]interface{})
	assert.Equal(t, "confirmed", order["status"])

	resp, body = doJSON(t, http.MethodPatch, url,
		map[string]string{"status": "delivered"}, "100")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["message"], "invalid status transition")

	resp, _ = doJSON(t, http.MethodPatch, url,
		map[string]string{"status": "shipped"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCheckoutFromCart(t *testing.T) {
	st := seedStore()
	srv := newTestServer(st)
	defer srv.Close()

	st.SeedCart(7,
		models.CartLine{ProductID: 1, VariantID: 11, Quantity: 1},
		models.CartLine{ProductID: 2, VariantID: 21, Quantity: 2},
	)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders/from-cart",
		map[string]interface{}{"address": map[string]string{
			"first_name": "Anna", "last_name": "Petrova", "street": "12 Rue de la Paix",
		}}, "7")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Len(t, body["shop_orders"], 2)
	assert.Equal(t, 9, st.Stock(11))
	assert.Equal(t, 1, st.Stock(21))
}

func TestShopOrders(t *testing.T) {
	srv := newTestServer(seedStore())
	defer srv.Close()

	_, created := doJSON(t, http.MethodPost, srv.URL+"/orders", checkoutBody(), "7")
	require.Equal(t, true, created["ok"])

	// Owner of shop 1 sees only shop 1 orders.
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/shops/1/orders", nil, "100")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	orders := body["orders"].([]interface{})
	require.Len(t, orders, 1)
	assert.Equal(t, "maple-goods", orders[0].(map[string]interface{})["shop_slug"])

	// Not the owner.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/shops/1/orders", nil, "200")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Unknown shop.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/shops/999/orders", nil, "100")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
