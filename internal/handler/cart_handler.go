package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"shopcart/internal/model"
	"shopcart/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CartHandler handles cart-related HTTP requests.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// Get handles GET /api/cart?userId=&isSelect= requests.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required", h.logger)
		return
	}

	var isSelect *bool
	if raw := r.URL.Query().Get("isSelect"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid isSelect parameter", h.logger)
			return
		}
		isSelect = &value
	}

	cart, err := h.service.GetCart(r.Context(), userID, isSelect)
	if err != nil {
		if status, message, ok := statusForDomainError(err); ok {
			writeError(w, status, message, h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to retrieve cart", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// Patch handles PATCH /api/cart/{cartId} requests with full-replace
// semantics.
func (h *CartHandler) Patch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	// Expecting path: /api/cart/{cartId}
	path := r.URL.Path
	if len(path) <= len("/api/cart/") {
		writeError(w, http.StatusBadRequest, "cart ID is required", h.logger)
		return
	}
	cartID, err := uuid.Parse(path[len("/api/cart/"):])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cart ID format", h.logger)
		return
	}

	var req model.CartPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	cart, err := h.service.ApplyPatch(r.Context(), cartID, &req)
	if err != nil {
		if status, message, ok := statusForDomainError(err); ok {
			writeError(w, status, message, h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update cart", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// Badge handles GET /api/cart/badge?userId= requests for the cart-icon badge
// count.
func (h *CartHandler) Badge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required", h.logger)
		return
	}

	count, err := h.service.BadgeCount(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to retrieve badge count", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}
