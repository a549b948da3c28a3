package domain

import "time"

// PendingCheckout correlates a created order with the gateway redirect that
// comes back to the storefront. It is written right before the redirect and
// consumed by whichever return route the browser lands on.
type PendingCheckout struct {
	OrderID   string    `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}
