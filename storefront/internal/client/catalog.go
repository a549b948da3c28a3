package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/fjod/marketplace/storefront/internal/domain"
	"github.com/go-resty/resty/v2"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrShopNotFound    = errors.New("shop not found")
)

type ShippingZone struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type Product struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Price         domain.Price   `json:"price"`
	Image         string         `json:"image,omitempty"`
	SellerID      string         `json:"sellerId"`
	SellerName    string         `json:"sellerName"`
	Colors        []string       `json:"colors,omitempty"`
	Sizes         []string       `json:"sizes,omitempty"`
	ShippingZones []ShippingZone `json:"shippingZones,omitempty"`
	Stock         int            `json:"stock"`
}

// Zone looks up a shipping zone offered by the product.
func (p Product) Zone(name string) (ShippingZone, bool) {
	for _, z := range p.ShippingZones {
		if z.Name == name {
			return z, true
		}
	}
	return ShippingZone{}, false
}

type CatalogClient struct {
	base
}

func NewCatalogClient(opts Options) *CatalogClient {
	return &CatalogClient{base: newBase("catalog-api", opts)}
}

func (c *CatalogClient) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var out Product
	err := c.do(ctx, http.MethodGet, "/products/{id}", &out, func(r *resty.Request) {
		r.SetPathParam("id", productID)
	})
	if err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	return &out, nil
}

func (c *CatalogClient) ListShopProducts(ctx context.Context, sellerID string) ([]Product, error) {
	var out []Product
	err := c.do(ctx, http.MethodGet, "/shops/{id}/products", &out, func(r *resty.Request) {
		r.SetPathParam("id", sellerID)
	})
	if err != nil {
		return nil, notFound(err, ErrShopNotFound)
	}
	if out == nil {
		out = []Product{}
	}
	return out, nil
}

func notFound(err, sentinel error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return sentinel
	}
	return err
}
