package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fjod/marketplace/storefront/internal/client"
)

var (
	ErrIllegalTransition = errors.New("illegal transition of checkout status")
	ErrProductNotFound   = errors.New("product not found")
	ErrShopNotFound      = errors.New("shop not found")
)

const (
	msgOrderFailed    = "Order creation failed. Please try again."
	msgPaymentFailed  = "Payment initiation failed. Please try again."
	msgHandoffFailed  = "We could not send you to the payment page. Please try again."
	msgEmptyCart      = "Your cart is empty."
	msgMissingContact = "Please fill in your first name, last name, phone number and address."
)

// CheckoutError is implemented by every error the orchestrator returns to
// the user. UserMessage is safe to show as is.
type CheckoutError interface {
	error
	UserMessage() string
}

// ValidationError is a local failure. Nothing was sent to any API.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("validation failed: %s", strings.Join(e.Fields, ", "))
	}
	return "validation failed: " + e.Message
}

func (e *ValidationError) UserMessage() string {
	return e.Message
}

type RejectionReason string

const (
	ReasonStockUnavailable RejectionReason = "STOCK_UNAVAILABLE"
	ReasonPriceChanged     RejectionReason = "PRICE_CHANGED"
	ReasonRejected         RejectionReason = "REJECTED"
	ReasonUnavailable      RejectionReason = "UNAVAILABLE"
)

// OrderSubmissionError means no order was created. The cart is untouched.
type OrderSubmissionError struct {
	Reason        RejectionReason
	ServerMessage string
	Err           error
}

func newOrderSubmissionError(err error) *OrderSubmissionError {
	e := &OrderSubmissionError{Reason: ReasonUnavailable, Err: err}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return e
	}
	e.ServerMessage = apiErr.Message
	switch code := strings.ToUpper(apiErr.Code); {
	case code == "STOCK_UNAVAILABLE" || code == "OUT_OF_STOCK" || code == "INSUFFICIENT_STOCK":
		e.Reason = ReasonStockUnavailable
	case code == "PRICE_CHANGED":
		e.Reason = ReasonPriceChanged
	case apiErr.StatusCode == http.StatusConflict:
		e.Reason = ReasonStockUnavailable
	case !apiErr.Temporary():
		e.Reason = ReasonRejected
	}
	return e
}

func (e *OrderSubmissionError) Error() string {
	return fmt.Sprintf("order submission failed (%s): %v", e.Reason, e.Err)
}

func (e *OrderSubmissionError) Unwrap() error { return e.Err }

func (e *OrderSubmissionError) UserMessage() string {
	if e.ServerMessage != "" {
		return e.ServerMessage
	}
	return msgOrderFailed
}

// PaymentInitiationError happens after the order was created. OrderID names
// the order left without a payment session.
type PaymentInitiationError struct {
	OrderID       string
	ServerMessage string
	Err           error
}

func newPaymentInitiationError(orderID string, err error) *PaymentInitiationError {
	e := &PaymentInitiationError{OrderID: orderID, Err: err}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		e.ServerMessage = apiErr.Message
	}
	return e
}

func (e *PaymentInitiationError) Error() string {
	return fmt.Sprintf("payment initiation failed for order %s: %v", e.OrderID, e.Err)
}

func (e *PaymentInitiationError) Unwrap() error { return e.Err }

func (e *PaymentInitiationError) UserMessage() string {
	if e.ServerMessage != "" {
		return e.ServerMessage
	}
	return msgPaymentFailed
}

// HandoffError is a failure to persist the pending marker before redirecting.
// The browser is not redirected.
type HandoffError struct {
	OrderID string
	Err     error
}

func (e *HandoffError) Error() string {
	return fmt.Sprintf("handoff failed for order %s: %v", e.OrderID, e.Err)
}

func (e *HandoffError) Unwrap() error { return e.Err }

func (e *HandoffError) UserMessage() string {
	return msgHandoffFailed
}

// failureKind labels metrics and journal rows.
func failureKind(err error) string {
	var (
		verr *ValidationError
		oerr *OrderSubmissionError
		perr *PaymentInitiationError
		herr *HandoffError
	)
	switch {
	case errors.As(err, &verr):
		return "validation"
	case errors.As(err, &oerr):
		return "order_submission"
	case errors.As(err, &perr):
		return "payment_initiation"
	case errors.As(err, &herr):
		return "handoff"
	}
	return "internal"
}
