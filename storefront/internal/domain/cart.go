package domain

type PaymentMethod string

const (
	PaymentMethodWave        PaymentMethod = "WAVE"
	PaymentMethodOrangeMoney PaymentMethod = "ORANGE_MONEY"
	PaymentMethodCard        PaymentMethod = "CARD"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodWave, PaymentMethodOrangeMoney, PaymentMethodCard:
		return true
	}
	return false
}

// LineKey identifies a cart line. Two selections of the same product with a
// different color, size or shipping zone are distinct lines.
type LineKey struct {
	ProductID    string `json:"product_id"`
	Color        string `json:"color,omitempty"`
	Size         string `json:"size,omitempty"`
	ShippingZone string `json:"shipping_zone,omitempty"`
}

type CartLineItem struct {
	ProductID     string `json:"product_id" bson:"product_id"`
	Name          string `json:"name" bson:"name"`
	UnitPrice     Price  `json:"unit_price" bson:"unit_price"`
	Image         string `json:"image,omitempty" bson:"image,omitempty"`
	Quantity      int    `json:"quantity" bson:"quantity"`
	SellerID      string `json:"seller_id" bson:"seller_id"`
	SellerName    string `json:"seller_name" bson:"seller_name"`
	Color         string `json:"color,omitempty" bson:"color,omitempty"`
	Size          string `json:"size,omitempty" bson:"size,omitempty"`
	ShippingZone  string `json:"shipping_zone,omitempty" bson:"shipping_zone,omitempty"`
	ShippingPrice int64  `json:"shipping_price,omitempty" bson:"shipping_price,omitempty"`
}

func (i CartLineItem) Key() LineKey {
	return LineKey{
		ProductID:    i.ProductID,
		Color:        i.Color,
		Size:         i.Size,
		ShippingZone: i.ShippingZone,
	}
}

// LineTotal is the parsed unit price times quantity.
func (i CartLineItem) LineTotal() int64 {
	return i.UnitPrice.Units() * int64(i.Quantity)
}

type CheckoutContactInfo struct {
	FirstName     string        `json:"first_name" bson:"first_name"`
	LastName      string        `json:"last_name" bson:"last_name"`
	PhoneNumber   string        `json:"phone_number" bson:"phone_number"`
	Address       string        `json:"address" bson:"address"`
	PaymentMethod PaymentMethod `json:"payment_method" bson:"payment_method"`
}

// ContactPatch carries a partial update of CheckoutContactInfo. Nil fields are
// left untouched.
type ContactPatch struct {
	FirstName     *string        `json:"first_name,omitempty"`
	LastName      *string        `json:"last_name,omitempty"`
	PhoneNumber   *string        `json:"phone_number,omitempty"`
	Address       *string        `json:"address,omitempty"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
}

// CartState is the aggregate persisted per browser session.
type CartState struct {
	Items    []CartLineItem      `json:"items" bson:"items"`
	Checkout CheckoutContactInfo `json:"checkout" bson:"checkout"`
}

func NewCartState() CartState {
	return CartState{
		Items:    []CartLineItem{},
		Checkout: CheckoutContactInfo{PaymentMethod: PaymentMethodWave},
	}
}

func (s CartState) IsEmpty() bool {
	return len(s.Items) == 0
}

// SellerGroup is derived on every read and never persisted.
type SellerGroup struct {
	SellerID   string         `json:"seller_id"`
	SellerName string         `json:"seller_name"`
	Items      []CartLineItem `json:"items"`
}

func (g SellerGroup) Subtotal() int64 {
	var total int64
	for _, item := range g.Items {
		total += item.LineTotal()
	}
	return total
}
