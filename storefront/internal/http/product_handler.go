package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/marketplace/storefront/internal/client"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type Catalog interface {
	Product(ctx context.Context, productID string) (*client.Product, error)
	ShopProducts(ctx context.Context, sellerID string) ([]client.Product, error)
}

type ProductHandler struct {
	catalog Catalog
	timeout time.Duration
	log     logrus.FieldLogger
}

func NewProductHandler(catalog Catalog, timeout time.Duration, log logrus.FieldLogger) *ProductHandler {
	return &ProductHandler{catalog: catalog, timeout: timeout, log: log}
}

// GET /api/v1/products/{product_id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.catalog.Product(ctx, chi.URLParam(r, "product_id"))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// GET /api/v1/shops/{seller_id}/products
func (h *ProductHandler) GetShopProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ShopProducts(ctx, chi.URLParam(r, "seller_id"))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}
