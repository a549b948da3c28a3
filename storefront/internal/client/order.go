package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-resty/resty/v2"
)

type OrderLine struct {
	ProductID    int64  `json:"productId"`
	Quantity     int    `json:"quantity"`
	Color        string `json:"color,omitempty"`
	Size         string `json:"size,omitempty"`
	ShippingZone string `json:"shippingZone,omitempty"`
}

type CustomerInfo struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
}

type OrderRequest struct {
	Items         []OrderLine  `json:"items"`
	PaymentMethod string       `json:"paymentMethod"`
	CustomerInfo  CustomerInfo `json:"customerInfo"`
}

type orderResponse struct {
	ID json.RawMessage `json:"id"`
}

var errMissingOrderID = errors.New("order api returned no id")

type OrderClient struct {
	base
}

func NewOrderClient(opts Options) *OrderClient {
	return &OrderClient{base: newBase("order-api", opts)}
}

// CreateOrder submits the order and returns its id. The API re-validates stock
// and prices, a rejection comes back as *APIError.
func (c *OrderClient) CreateOrder(ctx context.Context, req OrderRequest) (string, error) {
	var out orderResponse
	err := c.do(ctx, http.MethodPost, "/orders", &out, func(r *resty.Request) {
		r.SetBody(req)
	})
	if err != nil {
		return "", err
	}

	id := idString(out.ID)
	if id == "" {
		return "", errMissingOrderID
	}
	return id, nil
}

// idString accepts the id as a JSON string or number.
func idString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
