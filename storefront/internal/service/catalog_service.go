package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/fjod/marketplace/storefront/internal/client"
	"github.com/fjod/marketplace/storefront/internal/domain"
)

type CatalogAPI interface {
	GetProduct(ctx context.Context, productID string) (*client.Product, error)
	ListShopProducts(ctx context.Context, sellerID string) ([]client.Product, error)
}

// AddRequest is an add-to-cart click: a product id plus the options the
// customer picked. Everything else is resolved from the catalog.
type AddRequest struct {
	ProductID    string
	Quantity     int
	Color        string
	Size         string
	ShippingZone string
}

type CatalogService struct {
	catalog CatalogAPI
	carts   *CartService
}

func NewCatalogService(catalog CatalogAPI, carts *CartService) *CatalogService {
	return &CatalogService{catalog: catalog, carts: carts}
}

func (s *CatalogService) Product(ctx context.Context, productID string) (*client.Product, error) {
	p, err := s.catalog.GetProduct(ctx, productID)
	if errors.Is(err, client.ErrProductNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (s *CatalogService) ShopProducts(ctx context.Context, sellerID string) ([]client.Product, error) {
	products, err := s.catalog.ListShopProducts(ctx, sellerID)
	if errors.Is(err, client.ErrShopNotFound) {
		return nil, ErrShopNotFound
	}
	return products, err
}

// AddToCart resolves the product and merges the resulting line into the
// session's cart. Stock is not checked, the Order API does that at checkout.
func (s *CatalogService) AddToCart(ctx context.Context, sessionID string, req AddRequest) (domain.CartState, error) {
	if strings.TrimSpace(req.ProductID) == "" {
		return domain.CartState{}, &ValidationError{Fields: []string{"product_id"}, Message: "Please choose a product."}
	}

	p, err := s.Product(ctx, req.ProductID)
	if err != nil {
		return domain.CartState{}, err
	}

	item, err := lineFromProduct(p, req)
	if err != nil {
		return domain.CartState{}, err
	}
	return s.carts.AddItem(ctx, sessionID, item)
}

func lineFromProduct(p *client.Product, req AddRequest) (domain.CartLineItem, error) {
	if req.Color != "" && !slices.Contains(p.Colors, req.Color) {
		return domain.CartLineItem{}, optionError("color", req.Color)
	}
	if req.Size != "" && !slices.Contains(p.Sizes, req.Size) {
		return domain.CartLineItem{}, optionError("size", req.Size)
	}

	item := domain.CartLineItem{
		ProductID:  req.ProductID,
		Name:       p.Name,
		UnitPrice:  p.Price,
		Image:      p.Image,
		Quantity:   req.Quantity,
		SellerID:   p.SellerID,
		SellerName: p.SellerName,
		Color:      req.Color,
		Size:       req.Size,
	}
	if req.ShippingZone != "" {
		zone, ok := p.Zone(req.ShippingZone)
		if !ok {
			return domain.CartLineItem{}, optionError("shipping_zone", req.ShippingZone)
		}
		item.ShippingZone = zone.Name
		item.ShippingPrice = zone.Price
	}
	return item, nil
}

func optionError(field, value string) *ValidationError {
	return &ValidationError{
		Fields:  []string{field},
		Message: fmt.Sprintf("%q is not available for this product.", value),
	}
}
