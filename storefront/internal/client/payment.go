package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-resty/resty/v2"
)

type PaymentRequest struct {
	OrderID       string `json:"orderId"`
	Amount        int64  `json:"amount"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
	CustomerEmail string `json:"customerEmail,omitempty"`
}

type paymentResponse struct {
	PaymentURL string `json:"paymentUrl"`
}

var errMissingPaymentURL = errors.New("payment api returned no payment url")

type PaymentClient struct {
	base
}

func NewPaymentClient(opts Options) *PaymentClient {
	return &PaymentClient{base: newBase("payment-api", opts)}
}

// InitiatePayment opens a hosted payment session and returns the gateway URL
// the browser must be sent to.
func (c *PaymentClient) InitiatePayment(ctx context.Context, req PaymentRequest) (string, error) {
	var out paymentResponse
	err := c.do(ctx, http.MethodPost, "/payment/initiate", &out, func(r *resty.Request) {
		r.SetBody(req)
	})
	if err != nil {
		return "", err
	}
	if out.PaymentURL == "" {
		return "", errMissingPaymentURL
	}
	return out.PaymentURL, nil
}
