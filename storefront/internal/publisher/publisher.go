// Package publisher emits checkout lifecycle events for downstream consumers
// such as order reconciliation and support tooling.
package publisher

import (
	"context"
	"time"
)

type EventType string

const (
	EventCheckoutHandedOff EventType = "checkout.handed_off"
	EventCheckoutFailed    EventType = "checkout.failed"
	EventPaymentReturned   EventType = "checkout.payment_returned"
	EventPaymentCancelled  EventType = "checkout.payment_cancelled"
)

const DefaultTopic = "storefront-checkout-events"

type Event struct {
	Type       EventType `json:"event_type"`
	SessionID  string    `json:"session_id"`
	OrderID    string    `json:"order_id,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	Status     string    `json:"status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
