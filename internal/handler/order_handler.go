package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"shopcart/internal/model"
	"shopcart/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	var req model.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	created, err := h.service.Checkout(r.Context(), &req)
	if err != nil {
		if status, message, ok := statusForDomainError(err); ok {
			writeError(w, status, message, h.logger)
			return
		}
		if strings.Contains(err.Error(), "required") || strings.Contains(err.Error(), "nil") {
			writeError(w, http.StatusBadRequest, err.Error(), h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create order", h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /api/orders?userId=&limit=&currentPage= requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required", h.logger)
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		limit, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit parameter", h.logger)
			return
		}
	}

	currentPage := 1
	if raw := r.URL.Query().Get("currentPage"); raw != "" {
		var err error
		currentPage, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid currentPage parameter", h.logger)
			return
		}
	}

	page, err := h.service.List(r.Context(), userID, limit, currentPage)
	if err != nil {
		if status, message, ok := statusForDomainError(err); ok {
			writeError(w, status, message, h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list orders", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	orderID, ok := h.orderIDFromPath(w, r)
	if !ok {
		return
	}

	o, err := h.service.GetByID(r.Context(), orderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to retrieve order", h.logger)
		return
	}
	if o == nil {
		writeError(w, http.StatusNotFound, "order not found", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// UpdateStatus handles PATCH /api/orders/{id} requests applying a lifecycle
// transition.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	orderID, ok := h.orderIDFromPath(w, r)
	if !ok {
		return
	}

	var req model.OrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	o, err := h.service.UpdateStatus(r.Context(), orderID, &req)
	if err != nil {
		if status, message, ok := statusForDomainError(err); ok {
			writeError(w, status, message, h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update order status", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// orderIDFromPath extracts the order id from /api/orders/{id}, writing the
// error response itself on failure.
func (h *OrderHandler) orderIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	path := r.URL.Path
	if len(path) <= len("/api/orders/") {
		writeError(w, http.StatusBadRequest, "order ID is required", h.logger)
		return uuid.Nil, false
	}

	orderID, err := uuid.Parse(path[len("/api/orders/"):])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID format", h.logger)
		return uuid.Nil, false
	}
	return orderID, true
}
