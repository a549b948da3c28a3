package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/marketplace/storefront/internal/domain"
	"github.com/fjod/marketplace/storefront/internal/service"
	"github.com/fjod/marketplace/storefront/internal/shipping"
	"github.com/sirupsen/logrus"
)

type CartService interface {
	GetState(ctx context.Context, sessionID string) (domain.CartState, error)
	UpdateQuantity(ctx context.Context, sessionID string, key domain.LineKey, quantity int) (domain.CartState, error)
	RemoveItem(ctx context.Context, sessionID string, key domain.LineKey) (domain.CartState, error)
	Clear(ctx context.Context, sessionID string) (domain.CartState, error)
	SetCheckoutInfo(ctx context.Context, sessionID string, patch domain.ContactPatch) (domain.CartState, error)
	Summary(ctx context.Context, sessionID string) (shipping.Quote, error)
}

type CartAdder interface {
	AddToCart(ctx context.Context, sessionID string, req service.AddRequest) (domain.CartState, error)
}

type CartHandler struct {
	carts   CartService
	adder   CartAdder
	timeout time.Duration
	log     logrus.FieldLogger
}

func NewCartHandler(carts CartService, adder CartAdder, timeout time.Duration, log logrus.FieldLogger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		adder:   adder,
		timeout: timeout,
		log:     log,
	}
}

type AddItemRequestDTO struct {
	ProductID    string `json:"product_id"`
	Quantity     int    `json:"quantity"`
	Color        string `json:"color,omitempty"`
	Size         string `json:"size,omitempty"`
	ShippingZone string `json:"shipping_zone,omitempty"`
}

// LineRequestDTO addresses an existing line by its identity key.
type LineRequestDTO struct {
	ProductID    string `json:"product_id"`
	Color        string `json:"color,omitempty"`
	Size         string `json:"size,omitempty"`
	ShippingZone string `json:"shipping_zone,omitempty"`
	Quantity     int    `json:"quantity,omitempty"`
}

func (d LineRequestDTO) key() domain.LineKey {
	return domain.LineKey{
		ProductID:    d.ProductID,
		Color:        d.Color,
		Size:         d.Size,
		ShippingZone: d.ShippingZone,
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	state, err := h.carts.GetState(ctx, SessionID(r.Context()))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// GET /api/v1/cart/summary
func (h *CartHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	quote, err := h.carts.Summary(ctx, SessionID(r.Context()))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	state, err := h.adder.AddToCart(ctx, SessionID(r.Context()), service.AddRequest{
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		Color:        req.Color,
		Size:         req.Size,
		ShippingZone: req.ShippingZone,
	})
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, state)
}

// PUT /api/v1/cart/items
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LineRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	state, err := h.carts.UpdateQuantity(ctx, SessionID(r.Context()), req.key(), req.Quantity)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// DELETE /api/v1/cart/items
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LineRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	state, err := h.carts.RemoveItem(ctx, SessionID(r.Context()), req.key())
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	state, err := h.carts.Clear(ctx, SessionID(r.Context()))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// PATCH /api/v1/cart/checkout-info
func (h *CartHandler) SetCheckoutInfo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var patch domain.ContactPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	state, err := h.carts.SetCheckoutInfo(ctx, SessionID(r.Context()), patch)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}
