package router

import (
	"net/http"
	"strings"

	"shopcart/internal/handler"
	"shopcart/internal/middleware"

	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	productHandler *handler.ProductHandler,
	cartHandler *handler.CartHandler,
	orderHandler *handler.OrderHandler,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Product handler function
	productRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		// Check if this is a request for a specific product ID
		if r.URL.Path != "/api/products" && r.URL.Path != "/api/products/" {
			productHandler.GetByID(w, r)
			return
		}
		productHandler.GetAll(w, r)
	}

	// Register product routes (both with and without trailing slash)
	mux.HandleFunc("/api/products", productRouteHandler)
	mux.HandleFunc("/api/products/", productRouteHandler)

	// Cart handler function
	cartRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/cart" || r.URL.Path == "/api/cart/" {
			cartHandler.Get(w, r)
			return
		}

		if r.URL.Path == "/api/cart/badge" {
			cartHandler.Badge(w, r)
			return
		}

		// Remaining paths carry a cart ID: PATCH /api/cart/{cartId}
		if r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/api/cart/") {
			cartHandler.Patch(w, r)
			return
		}

		http.Error(w, "not found", http.StatusNotFound)
	}

	// Register cart routes (both with and without trailing slash)
	mux.HandleFunc("/api/cart", cartRouteHandler)
	mux.HandleFunc("/api/cart/", cartRouteHandler)

	// Order handler function
	orderRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		// Route based on method and path
		if r.URL.Path == "/api/orders" || r.URL.Path == "/api/orders/" {
			switch r.Method {
			case http.MethodPost:
				orderHandler.Create(w, r)
			case http.MethodGet:
				orderHandler.List(w, r)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		// Check if this is a request for a specific order ID
		if strings.HasPrefix(r.URL.Path, "/api/orders/") {
			switch r.Method {
			case http.MethodGet:
				orderHandler.GetByID(w, r)
			case http.MethodPatch:
				orderHandler.UpdateStatus(w, r)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		http.Error(w, "not found", http.StatusNotFound)
	}

	// Register order routes (both with and without trailing slash)
	mux.HandleFunc("/api/orders", orderRouteHandler)
	mux.HandleFunc("/api/orders/", orderRouteHandler)

	// Apply middleware in order: Recovery -> Logging -> CORS -> APIKeyAuth
	var h http.Handler = mux
	h = middleware.APIKeyAuth(apiKey, logger)(h)
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = middleware.RequestID(h)
	h = middleware.Recovery(logger)(h)

	return h
}
