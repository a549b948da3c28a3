// Package cart holds the cart store as pure functions over an immutable
// CartState snapshot. None of the functions perform I/O or fail: an unknown
// line key degrades to a no-op so a stale click on a removed item is harmless.
package cart

import "github.com/fjod/marketplace/storefront/internal/domain"

// AddItem merges item into the line with the same identity key, summing the
// quantities, or appends it as a new line. Stock is not checked here, the
// Order API re-validates on submission.
func AddItem(s domain.CartState, item domain.CartLineItem) domain.CartState {
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	next := clone(s)
	key := item.Key()
	for i := range next.Items {
		if next.Items[i].Key() == key {
			next.Items[i].Quantity += item.Quantity
			return next
		}
	}
	next.Items = append(next.Items, item)
	return next
}

// UpdateQuantity sets the matching line to max(1, quantity). Removal is only
// done by RemoveItem.
func UpdateQuantity(s domain.CartState, key domain.LineKey, quantity int) domain.CartState {
	idx := indexOf(s, key)
	if idx < 0 {
		return s
	}
	if quantity < 1 {
		quantity = 1
	}

	next := clone(s)
	next.Items[idx].Quantity = quantity
	return next
}

func RemoveItem(s domain.CartState, key domain.LineKey) domain.CartState {
	idx := indexOf(s, key)
	if idx < 0 {
		return s
	}

	next := clone(s)
	next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
	return next
}

// Clear empties the line list and keeps the contact draft.
func Clear(s domain.CartState) domain.CartState {
	return domain.CartState{
		Items:    []domain.CartLineItem{},
		Checkout: s.Checkout,
	}
}

// SetCheckoutInfo shallow-merges the non-nil fields of patch.
func SetCheckoutInfo(s domain.CartState, patch domain.ContactPatch) domain.CartState {
	next := clone(s)
	c := &next.Checkout
	if patch.FirstName != nil {
		c.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		c.LastName = *patch.LastName
	}
	if patch.PhoneNumber != nil {
		c.PhoneNumber = *patch.PhoneNumber
	}
	if patch.Address != nil {
		c.Address = *patch.Address
	}
	if patch.PaymentMethod != nil {
		c.PaymentMethod = *patch.PaymentMethod
	}
	return next
}

func indexOf(s domain.CartState, key domain.LineKey) int {
	for i := range s.Items {
		if s.Items[i].Key() == key {
			return i
		}
	}
	return -1
}

func clone(s domain.CartState) domain.CartState {
	items := make([]domain.CartLineItem, len(s.Items))
	copy(items, s.Items)
	return domain.CartState{Items: items, Checkout: s.Checkout}
}
