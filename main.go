package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"marketplace/config"
	"marketplace/handlers"
	"marketplace/models"
	"marketplace/services"
	"marketplace/store"
)

type contextKey string

const userIDKey contextKey = "user_id"

func main() {
	cfg := config.LoadConfig()
	if len(cfg.JWTSecret) == 0 {
		log.Fatal("JWT_SECRET is not set in environment")
	}

	db, err := sql.Open("postgres", cfg.DBConnStr)
	if err != nil {
		log.Fatalf("Не удалось открыть подключение к БД: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Не удалось пинговать БД: %v", err)
	}
	log.Println("Успешно подключились к БД")

	shippingFlat, err := decimal.NewFromString(cfg.ShippingFlat)
	if err != nil {
		log.Fatalf("SHIPPING_FLAT: %v", err)
	}
	taxRate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		log.Fatalf("TAX_RATE: %v", err)
	}

	orders := services.NewOrderService(
		store.NewPostgresStore(db),
		services.FlatShipping(shippingFlat),
		services.RateTax(taxRate),
	)

	parseToken := func(r *http.Request) (int64, bool) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return 0, false
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.ParseWithClaims(tokenStr, &models.Claims{}, func(t *jwt.Token) (interface{}, error) {
			return cfg.JWTSecret, nil
		})
		if err != nil || !token.Valid {
			return 0, false
		}
		return token.Claims.(*models.Claims).UserID, true
	}

	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			userID, ok := parseToken(r)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next(w, r.WithContext(ctx))
		}
	}

	// Guest checkout and order reads work without a token, so these routes
	// only attach the user id when a valid token is present.
	optionalAuth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if userID, ok := parseToken(r); ok {
				r = r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
			}
			next(w, r)
		}
	}

	getUserID := func(r *http.Request) (int64, bool) {
		userID, ok := r.Context().Value(userIDKey).(int64)
		return userID, ok
	}

	http.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("pong"))
	})

	http.HandleFunc("/cart", auth(handlers.CartHandler(db, getUserID)))
	http.HandleFunc("/cart/items", auth(handlers.AddOrUpdateCartItem(db, getUserID)))
	http.HandleFunc("/cart/items/", auth(handlers.RemoveCartItem(db, getUserID)))

	http.HandleFunc("/orders", optionalAuth(handlers.CreateOrderHandler(orders, getUserID)))
	http.HandleFunc("/orders/my-orders", auth(handlers.MyOrdersHandler(orders, getUserID)))
	http.HandleFunc("/orders/lookup", handlers.LookupHandler(orders))
	http.HandleFunc("/orders/from-cart", auth(handlers.CheckoutFromCartHandler(orders, getUserID)))
	http.HandleFunc("/orders/", optionalAuth(handlers.OrderHandler(orders, getUserID)))

	http.HandleFunc("/shops/", auth(handlers.ShopOrdersHandler(orders, getUserID)))

	log.Printf("Сервер запущен на порту %s", cfg.ServerPort)
	log.Fatal(http.ListenAndServe(":"+cfg.ServerPort, nil))
}
