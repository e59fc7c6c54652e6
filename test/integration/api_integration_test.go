package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopcart/internal/cart"
	"shopcart/internal/handler"
	"shopcart/internal/model"
	"shopcart/internal/order"
	"shopcart/internal/pricing"
	"shopcart/internal/repository"
	"shopcart/internal/router"
	"shopcart/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T, testDB *TestDB) http.Handler {
	t.Helper()

	logger := zerolog.Nop()

	// Initialize repositories
	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	cartRepo := repository.NewCartRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)

	// In-memory cart stores with a short settling window so persisted state
	// can be observed quickly in tests.
	resolver := pricing.NewResolver(pricing.StrategyFirst)
	manager := cart.NewManager(cartRepo, resolver, nil, cart.SyncerConfig{
		Window:       10 * time.Millisecond,
		WriteTimeout: time.Second,
	}, logger)
	t.Cleanup(manager.Close)

	// Initialize services
	productService := service.NewProductService(productRepo, logger)
	cartService := service.NewCartService(manager, cartRepo, productRepo, nil, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, manager, resolver, nil, logger)

	// Initialize handlers
	productHandler := handler.NewProductHandler(productService, logger)
	cartHandler := handler.NewCartHandler(cartService, logger)
	orderHandler := handler.NewOrderHandler(orderService, logger)

	// Create router
	return router.New(productHandler, cartHandler, orderHandler, "test-api-key", logger)
}

func doRequest(server http.Handler, method, target string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "test-api-key")
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)
	return w
}

func TestProductAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)

	t.Run("GET /api/products returns all products", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		w := doRequest(server, http.MethodGet, "/api/products", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var products []model.Product
		err := json.NewDecoder(w.Body).Decode(&products)
		require.NoError(t, err)
		assert.Len(t, products, 5)
	})

	t.Run("GET /api/products/{id} includes promotions", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		w := doRequest(server, http.MethodGet, "/api/products/P001", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var product model.Product
		err := json.NewDecoder(w.Body).Decode(&product)
		require.NoError(t, err)
		assert.Equal(t, "P001", product.ID)
		require.Len(t, product.Promotions, 1)
		assert.Equal(t, model.DiscountPercent, product.Promotions[0].DiscountType)
	})

	t.Run("GET /api/products/{id} returns 404 for non-existent product", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		w := doRequest(server, http.MethodGet, "/api/products/P999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GET /api/products without API key returns 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("GET /health returns 200 without API key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCartAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)

	getCart := func(t *testing.T, userID string) model.Cart {
		t.Helper()
		w := doRequest(server, http.MethodGet, "/api/cart?userId="+userID, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var c model.Cart
		require.NoError(t, json.NewDecoder(w.Body).Decode(&c))
		return c
	}

	t.Run("GET /api/cart creates an empty cart on first access", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		c := getCart(t, "user-1")
		assert.Equal(t, "user-1", c.UserID)
		assert.Empty(t, c.Lines)
		assert.Equal(t, 0, c.Totals.SelectedQuantity)
	})

	t.Run("PATCH then GET reflects priced lines and totals", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		c := getCart(t, "user-1")

		patch := model.CartPatchRequest{
			UserID: "user-1",
			Items: []model.CartItemPatch{
				{ProductID: "P001", Quantity: 2, IsSelect: true},
				{ProductID: "P003", Quantity: 1, IsSelect: false},
			},
		}
		w := doRequest(server, http.MethodPatch, "/api/cart/"+c.ID.String(), patch)
		require.Equal(t, http.StatusOK, w.Code)

		var updated model.Cart
		require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
		require.Len(t, updated.Lines, 2)
		assert.Equal(t, "P001", updated.Lines[0].Product.ID)
		// P001 carries a 10 percent promotion: 200000 -> 180000 each.
		assert.Equal(t, 2, updated.Totals.SelectedQuantity)
		assert.InDelta(t, 360000, updated.Totals.SelectedAmount, 0.01)

		got := getCart(t, "user-1")
		assert.Equal(t, updated.Totals, got.Totals)
	})

	t.Run("PATCH persists items to the database", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		c := getCart(t, "user-1")

		patch := model.CartPatchRequest{
			UserID: "user-1",
			Items: []model.CartItemPatch{
				{ProductID: "P002", Quantity: 3, IsSelect: true},
			},
		}
		w := doRequest(server, http.MethodPatch, "/api/cart/"+c.ID.String(), patch)
		require.Equal(t, http.StatusOK, w.Code)

		cartRepo := repository.NewCartRepository(testDB.Pool, zerolog.Nop())
		require.Eventually(t, func() bool {
			record, err := cartRepo.GetByUser(context.Background(), "user-1")
			return err == nil && record != nil && len(record.Items) == 1
		}, 2*time.Second, 20*time.Millisecond)

		record, err := cartRepo.GetByUser(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, "P002", record.Items[0].ProductID)
		assert.Equal(t, 3, record.Items[0].Quantity)
	})

	t.Run("GET /api/cart/badge returns selected quantity", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		c := getCart(t, "user-1")

		patch := model.CartPatchRequest{
			UserID: "user-1",
			Items: []model.CartItemPatch{
				{ProductID: "P001", Quantity: 2, IsSelect: true},
				{ProductID: "P003", Quantity: 4, IsSelect: true},
				{ProductID: "P004", Quantity: 1, IsSelect: false},
			},
		}
		w := doRequest(server, http.MethodPatch, "/api/cart/"+c.ID.String(), patch)
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(server, http.MethodGet, "/api/cart/badge?userId=user-1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var badge map[string]int
		require.NoError(t, json.NewDecoder(w.Body).Decode(&badge))
		assert.Equal(t, 6, badge["count"])
	})

	t.Run("GET /api/cart without userId returns 400", func(t *testing.T) {
		w := doRequest(server, http.MethodGet, "/api/cart", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)

	validOrder := func() model.OrderRequest {
		return model.OrderRequest{
			UserID:         "user-1",
			StoreID:        "store-1",
			RecipientName:  "Jamie Tester",
			RecipientPhone: "0123456789",
			Address:        "1 Test Street",
			Payment:        "COD",
			Total:          460000,
			Items: []model.OrderItemRequest{
				{ProductID: "P001", Quantity: 2},
				{ProductID: "P002", Quantity: 1},
			},
		}
	}

	t.Run("POST /api/orders creates an order with server-side pricing", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		w := doRequest(server, http.MethodPost, "/api/orders", validOrder())
		assert.Equal(t, http.StatusCreated, w.Code)

		var created model.Order
		require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
		assert.Equal(t, "user-1", created.UserID)
		require.Len(t, created.Items, 2)

		// P001: 10 percent off 200000, times 2. P002: 150000 minus 50000
		// fixed. The submitted total is ignored in favour of these.
		assert.InDelta(t, 460000, created.Total, 0.01)

		var p001 *model.OrderItem
		for i := range created.Items {
			if created.Items[i].ProductID == "P001" {
				p001 = &created.Items[i]
			}
		}
		require.NotNil(t, p001)
		assert.InDelta(t, 180000, p001.UnitPrice, 0.01)
		require.Len(t, p001.Gifts, 1)
		assert.Equal(t, 2, p001.Gifts[0].Quantity)
	})

	t.Run("POST /api/orders fails with non-existent product", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		req := validOrder()
		req.Items = []model.OrderItemRequest{{ProductID: "P999", Quantity: 1}}

		w := doRequest(server, http.MethodPost, "/api/orders", req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("POST /api/orders fails with invalid quantity", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		req := validOrder()
		req.Items = []model.OrderItemRequest{{ProductID: "P001", Quantity: -1}}

		w := doRequest(server, http.MethodPost, "/api/orders", req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("GET /api/orders lists the user's orders", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		w := doRequest(server, http.MethodPost, "/api/orders", validOrder())
		require.Equal(t, http.StatusCreated, w.Code)

		w = doRequest(server, http.MethodGet, "/api/orders?userId=user-1", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var page model.OrderListResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
		assert.Equal(t, 1, page.Total)
		require.Len(t, page.Orders, 1)
		assert.Len(t, page.Orders[0].Items, 2)
	})

	t.Run("PATCH /api/orders/{id} walks the status lifecycle", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		w := doRequest(server, http.MethodPost, "/api/orders", validOrder())
		require.Equal(t, http.StatusCreated, w.Code)

		var created model.Order
		require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

		tracking := "TRACK-001"
		w = doRequest(server, http.MethodPatch, "/api/orders/"+created.ID.String(), model.OrderStatusRequest{
			Status:       order.StatusOnShip,
			TrackingCode: &tracking,
		})
		assert.Equal(t, http.StatusOK, w.Code)

		var shipped model.Order
		require.NoError(t, json.NewDecoder(w.Body).Decode(&shipped))
		assert.Equal(t, order.StatusOnShip, shipped.Status)
		require.NotNil(t, shipped.TrackingCode)
		assert.Equal(t, "TRACK-001", *shipped.TrackingCode)

		// COMPLETED is terminal: cancelling afterwards must be rejected.
		w = doRequest(server, http.MethodPatch, "/api/orders/"+created.ID.String(), model.OrderStatusRequest{
			Status: order.StatusCompleted,
		})
		assert.Equal(t, http.StatusOK, w.Code)

		w = doRequest(server, http.MethodPatch, "/api/orders/"+created.ID.String(), model.OrderStatusRequest{
			Status: order.StatusCanceled,
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("checkout prunes ordered lines from the cart", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		w := doRequest(server, http.MethodGet, "/api/cart?userId=user-1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var c model.Cart
		require.NoError(t, json.NewDecoder(w.Body).Decode(&c))

		patch := model.CartPatchRequest{
			UserID: "user-1",
			Items: []model.CartItemPatch{
				{ProductID: "P001", Quantity: 2, IsSelect: true},
				{ProductID: "P002", Quantity: 1, IsSelect: true},
				{ProductID: "P003", Quantity: 1, IsSelect: true},
			},
		}
		w = doRequest(server, http.MethodPatch, "/api/cart/"+c.ID.String(), patch)
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(server, http.MethodPost, "/api/orders", validOrder())
		require.Equal(t, http.StatusCreated, w.Code)

		w = doRequest(server, http.MethodGet, "/api/cart?userId=user-1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var after model.Cart
		require.NoError(t, json.NewDecoder(w.Body).Decode(&after))
		require.Len(t, after.Lines, 1)
		assert.Equal(t, "P003", after.Lines[0].Product.ID)
	})
}

func TestCORS_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)

	t.Run("OPTIONS request returns CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	})
}
