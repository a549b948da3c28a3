// Package shipping derives per-seller and order shipping from a cart snapshot.
//
// A seller is charged once per distinct (zone, price) pair selected on its
// lines, not once per line. Two lines with the same zone name but a different
// recorded price are two charges.
package shipping

import (
	"github.com/fjod/marketplace/storefront/internal/cart"
	"github.com/fjod/marketplace/storefront/internal/domain"
)

// ZoneCharge is one chargeable (zone, price) pair.
type ZoneCharge struct {
	Zone  string `json:"zone"`
	Price int64  `json:"price"`
}

// Charges returns the distinct zone charges of a seller group in the order
// they were first selected. Lines without a zone contribute nothing.
func Charges(group domain.SellerGroup) []ZoneCharge {
	seen := make(map[ZoneCharge]struct{})
	charges := make([]ZoneCharge, 0)
	for _, item := range group.Items {
		if item.ShippingZone == "" {
			continue
		}
		c := ZoneCharge{Zone: item.ShippingZone, Price: item.ShippingPrice}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		charges = append(charges, c)
	}
	return charges
}

func SellerShipping(group domain.SellerGroup) int64 {
	var total int64
	for _, c := range Charges(group) {
		total += c.Price
	}
	return total
}

// TotalShipping sums each seller's contribution. There is no cross-seller
// consolidation.
func TotalShipping(s domain.CartState) int64 {
	var total int64
	for _, g := range cart.ItemsBySupplier(s) {
		total += SellerShipping(g)
	}
	return total
}

type SellerQuote struct {
	SellerID   string                `json:"seller_id"`
	SellerName string                `json:"seller_name"`
	Items      []domain.CartLineItem `json:"items"`
	Subtotal   int64                 `json:"subtotal"`
	Charges    []ZoneCharge          `json:"shipping_charges"`
	Shipping   int64                 `json:"shipping"`
	// ShippingPending is set when none of the seller's lines carries a zone.
	// The UI shows the shipping as "to be calculated".
	ShippingPending bool `json:"shipping_pending"`
}

// Quote is the priced view of a cart.
type Quote struct {
	Sellers    []SellerQuote `json:"sellers"`
	TotalItems int           `json:"total_items"`
	Subtotal   int64         `json:"subtotal"`
	Shipping   int64         `json:"shipping"`
	GrandTotal int64         `json:"grand_total"`
}

func Summarize(s domain.CartState) Quote {
	groups := cart.ItemsBySupplier(s)
	q := Quote{
		Sellers:    make([]SellerQuote, 0, len(groups)),
		TotalItems: cart.TotalItems(s),
		Subtotal:   cart.TotalPrice(s),
	}
	for _, g := range groups {
		charges := Charges(g)
		sq := SellerQuote{
			SellerID:        g.SellerID,
			SellerName:      g.SellerName,
			Items:           g.Items,
			Subtotal:        g.Subtotal(),
			Charges:         charges,
			ShippingPending: len(charges) == 0,
		}
		for _, c := range charges {
			sq.Shipping += c.Price
		}
		q.Shipping += sq.Shipping
		q.Sellers = append(q.Sellers, sq)
	}
	q.GrandTotal = q.Subtotal + q.Shipping
	return q
}

// GrandTotal is the amount charged at payment: items plus aggregated shipping.
func GrandTotal(s domain.CartState) int64 {
	return cart.TotalPrice(s) + TotalShipping(s)
}
