package cart

import (
	"testing"

	"github.com/fjod/marketplace/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(productID, seller string, price int64, qty int) domain.CartLineItem {
	return domain.CartLineItem{
		ProductID:  productID,
		Name:       "Product " + productID,
		UnitPrice:  domain.PriceOf(price),
		Quantity:   qty,
		SellerID:   seller,
		SellerName: "Seller " + seller,
	}
}

func ptr[T any](v T) *T { return &v }

func TestAddItem_MergesSameKey(t *testing.T) {
	s := domain.NewCartState()
	s = AddItem(s, line("1", "s1", 1000, 2))
	s = AddItem(s, line("1", "s1", 1000, 3))

	require.Len(t, s.Items, 1)
	assert.Equal(t, 5, s.Items[0].Quantity)
}

func TestAddItem_DistinctVariantsAreSeparateLines(t *testing.T) {
	red := line("1", "s1", 1000, 1)
	red.Color = "red"
	blue := line("1", "s1", 1000, 1)
	blue.Color = "blue"
	zoned := line("1", "s1", 1000, 1)
	zoned.Color = "red"
	zoned.ShippingZone = "Dakar"

	s := AddItem(AddItem(AddItem(domain.NewCartState(), red), blue), zoned)

	assert.Len(t, s.Items, 3)
	assert.Equal(t, 3, TotalItems(s))
}

func TestAddItem_FloorsQuantity(t *testing.T) {
	s := AddItem(domain.NewCartState(), line("1", "s1", 1000, 0))

	require.Len(t, s.Items, 1)
	assert.Equal(t, 1, s.Items[0].Quantity)
}

func TestAddItem_DoesNotMutateInput(t *testing.T) {
	before := AddItem(domain.NewCartState(), line("1", "s1", 1000, 1))
	after := AddItem(before, line("1", "s1", 1000, 4))

	assert.Equal(t, 1, before.Items[0].Quantity)
	assert.Equal(t, 5, after.Items[0].Quantity)
}

func TestUpdateQuantity(t *testing.T) {
	s := AddItem(domain.NewCartState(), line("1", "s1", 1000, 2))
	key := s.Items[0].Key()

	tests := []struct {
		name     string
		quantity int
		want     int
	}{
		{"sets value", 7, 7},
		{"zero floors to one", 0, 1},
		{"negative floors to one", -3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UpdateQuantity(s, key, tt.quantity)
			require.Len(t, got.Items, 1)
			assert.Equal(t, tt.want, got.Items[0].Quantity)
			assert.Equal(t, 2, s.Items[0].Quantity)
		})
	}
}

func TestUpdateQuantity_UnknownKeyIsNoop(t *testing.T) {
	s := AddItem(domain.NewCartState(), line("1", "s1", 1000, 2))

	got := UpdateQuantity(s, domain.LineKey{ProductID: "404"}, 9)

	assert.Equal(t, s, got)
}

func TestRemoveItem(t *testing.T) {
	s := domain.NewCartState()
	s = AddItem(s, line("1", "s1", 1000, 1))
	s = AddItem(s, line("2", "s1", 2000, 1))
	s = AddItem(s, line("3", "s2", 3000, 1))

	got := RemoveItem(s, domain.LineKey{ProductID: "2"})

	require.Len(t, got.Items, 2)
	assert.Equal(t, "1", got.Items[0].ProductID)
	assert.Equal(t, "3", got.Items[1].ProductID)
	assert.Len(t, s.Items, 3)
}

func TestRemoveItem_AbsentKeyIsNoop(t *testing.T) {
	s := AddItem(domain.NewCartState(), line("1", "s1", 1000, 1))

	got := RemoveItem(s, domain.LineKey{ProductID: "1", Color: "green"})

	assert.Equal(t, s, got)
}

func TestClear_KeepsCheckoutDraft(t *testing.T) {
	s := AddItem(domain.NewCartState(), line("1", "s1", 1000, 1))
	s = SetCheckoutInfo(s, domain.ContactPatch{FirstName: ptr("Awa")})

	got := Clear(s)

	assert.True(t, got.IsEmpty())
	assert.NotNil(t, got.Items)
	assert.Equal(t, "Awa", got.Checkout.FirstName)
}

func TestSetCheckoutInfo_MergesOnlyProvidedFields(t *testing.T) {
	s := domain.NewCartState()
	s = SetCheckoutInfo(s, domain.ContactPatch{
		FirstName:   ptr("Awa"),
		PhoneNumber: ptr("+221770000000"),
	})
	s = SetCheckoutInfo(s, domain.ContactPatch{
		Address:       ptr("Rue 10, Dakar"),
		PaymentMethod: ptr(domain.PaymentMethodCard),
	})

	assert.Equal(t, domain.CheckoutContactInfo{
		FirstName:     "Awa",
		PhoneNumber:   "+221770000000",
		Address:       "Rue 10, Dakar",
		PaymentMethod: domain.PaymentMethodCard,
	}, s.Checkout)
}

func TestTotals(t *testing.T) {
	s := domain.NewCartState()
	s = AddItem(s, line("1", "s1", 1500, 2))
	formatted := line("2", "s2", 0, 1)
	formatted.UnitPrice = "1 500 FCFA"
	s = AddItem(s, formatted)

	assert.Equal(t, 3, TotalItems(s))
	assert.Equal(t, int64(4500), TotalPrice(s))
}

func TestTotals_Empty(t *testing.T) {
	s := domain.NewCartState()

	assert.Equal(t, 0, TotalItems(s))
	assert.Equal(t, int64(0), TotalPrice(s))
	assert.Empty(t, ItemsBySupplier(s))
}

func TestItemsBySupplier_FirstAppearanceOrder(t *testing.T) {
	s := domain.NewCartState()
	s = AddItem(s, line("1", "b", 100, 1))
	s = AddItem(s, line("2", "a", 200, 1))
	s = AddItem(s, line("3", "b", 300, 1))
	s = AddItem(s, line("4", "c", 400, 1))

	groups := ItemsBySupplier(s)

	require.Len(t, groups, 3)
	assert.Equal(t, "b", groups[0].SellerID)
	assert.Equal(t, "Seller b", groups[0].SellerName)
	assert.Equal(t, "a", groups[1].SellerID)
	assert.Equal(t, "c", groups[2].SellerID)
	require.Len(t, groups[0].Items, 2)
	assert.Equal(t, "1", groups[0].Items[0].ProductID)
	assert.Equal(t, "3", groups[0].Items[1].ProductID)
	assert.Equal(t, int64(400), groups[0].Subtotal())

	count := 0
	for _, g := range groups {
		count += len(g.Items)
	}
	assert.Equal(t, len(s.Items), count)
}

func TestTotalPrice_IndependentOfLineOrder(t *testing.T) {
	formatted := line("4", "c", 0, 2)
	formatted.UnitPrice = "2 750 FCFA"
	lines := []domain.CartLineItem{
		line("1", "a", 1000, 2),
		line("2", "b", 500, 1),
		line("3", "a", 2000, 3),
		formatted,
	}
	orders := map[string][]int{
		"as added":    {0, 1, 2, 3},
		"reversed":    {3, 2, 1, 0},
		"interleaved": {2, 0, 3, 1},
		"seller last": {1, 3, 0, 2},
	}

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			s := domain.NewCartState()
			for _, i := range order {
				s = AddItem(s, lines[i])
			}

			assert.Equal(t, int64(14000), TotalPrice(s))
			assert.Equal(t, 8, TotalItems(s))
		})
	}
}

func TestItemsBySupplier_PartitionsEveryLine(t *testing.T) {
	s := domain.NewCartState()
	s = AddItem(s, line("1", "b", 100, 1))
	s = AddItem(s, line("2", "a", 200, 1))
	s = AddItem(s, line("1", "b", 100, 2))
	s = AddItem(s, line("3", "b", 300, 1))
	s = AddItem(s, line("4", "c", 400, 1))
	s = AddItem(s, line("5", "a", 500, 4))

	var flat []domain.CartLineItem
	seen := make(map[string]bool)
	for _, g := range ItemsBySupplier(s) {
		assert.False(t, seen[g.SellerID], "seller %s grouped twice", g.SellerID)
		seen[g.SellerID] = true
		for _, item := range g.Items {
			assert.Equal(t, g.SellerID, item.SellerID)
		}
		flat = append(flat, g.Items...)
	}

	assert.ElementsMatch(t, s.Items, flat)
}
