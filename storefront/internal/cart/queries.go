package cart

import "github.com/fjod/marketplace/storefront/internal/domain"

func TotalItems(s domain.CartState) int {
	total := 0
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}

// TotalPrice sums unit price times quantity. Unit prices are re-parsed to
// integers so a formatted string price still adds up.
func TotalPrice(s domain.CartState) int64 {
	var total int64
	for _, item := range s.Items {
		total += item.LineTotal()
	}
	return total
}

// ItemsBySupplier groups lines by seller id. Groups come out in order of the
// seller's first line and each line keeps its relative position.
func ItemsBySupplier(s domain.CartState) []domain.SellerGroup {
	index := make(map[string]int)
	groups := make([]domain.SellerGroup, 0)
	for _, item := range s.Items {
		i, ok := index[item.SellerID]
		if !ok {
			i = len(groups)
			index[item.SellerID] = i
			groups = append(groups, domain.SellerGroup{
				SellerID:   item.SellerID,
				SellerName: item.SellerName,
			})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}
