package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/marketplace/storefront/internal/cache"
	"github.com/fjod/marketplace/storefront/internal/client"
	"github.com/fjod/marketplace/storefront/internal/domain"
	"github.com/fjod/marketplace/storefront/internal/journal"
	"github.com/fjod/marketplace/storefront/internal/metrics"
	"github.com/fjod/marketplace/storefront/internal/publisher"
	"github.com/fjod/marketplace/storefront/internal/shipping"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type OrderAPI interface {
	CreateOrder(ctx context.Context, req client.OrderRequest) (string, error)
}

type PaymentAPI interface {
	InitiatePayment(ctx context.Context, req client.PaymentRequest) (string, error)
}

type CartStore interface {
	GetState(ctx context.Context, sessionID string) (domain.CartState, error)
	Clear(ctx context.Context, sessionID string) (domain.CartState, error)
}

type Journal interface {
	RecordAttempt(ctx context.Context, a *journal.Attempt) error
	MarkReturned(ctx context.Context, orderID string, outcome journal.Outcome) error
}

type EventPublisher interface {
	Publish(ctx context.Context, e publisher.Event) error
}

type CheckoutResult struct {
	Status     domain.CheckoutStatus `json:"status"`
	OrderID    string                `json:"order_id,omitempty"`
	PaymentURL string                `json:"payment_url,omitempty"`
	Amount     int64                 `json:"amount,omitempty"`
}

// Option configures the collaborators shared by the orchestrator and the
// resumption handlers.
type Option func(*settings)

type settings struct {
	journal      Journal
	events       EventPublisher
	metrics      *metrics.Metrics
	log          logrus.FieldLogger
	timeout      time.Duration
	now          func() time.Time
	onTransition func(sessionID string, from, to domain.CheckoutStatus)
}

func newSettings(opts []Option) settings {
	s := settings{
		events:  publisher.NopPublisher{},
		log:     logrus.StandardLogger(),
		timeout: 15 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func WithJournal(j Journal) Option {
	return func(s *settings) { s.journal = j }
}

func WithEvents(p EventPublisher) Option {
	return func(s *settings) { s.events = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *settings) { s.log = log }
}

// WithStepTimeout bounds each network-facing step.
func WithStepTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithTransitionHook is called on every status change of a run.
func WithTransitionHook(fn func(sessionID string, from, to domain.CheckoutStatus)) Option {
	return func(s *settings) { s.onTransition = fn }
}

// Orchestrator turns a cart snapshot into an order and a payment redirect.
//
// Idle -> Validating -> SubmittingOrder -> InitiatingPayment ->
// RedirectingToGateway -> HandedOff, with Failed reachable from the three
// network-facing states and a validation failure returning to Idle. Nothing
// is retried. A retry is a new run started by the user.
type Orchestrator struct {
	carts    CartStore
	orders   OrderAPI
	payments PaymentAPI
	markers  cache.MarkerStore
	settings

	inflight singleflight.Group
}

func NewOrchestrator(carts CartStore, orders OrderAPI, payments PaymentAPI, markers cache.MarkerStore, opts ...Option) *Orchestrator {
	return &Orchestrator{
		carts:    carts,
		orders:   orders,
		payments: payments,
		markers:  markers,
		settings: newSettings(opts),
	}
}

// Checkout runs the state machine for one session. Concurrent submits of the
// same session share a single run and its result, so a double click cannot
// create two orders.
func (o *Orchestrator) Checkout(ctx context.Context, sessionID string) (*CheckoutResult, error) {
	v, err, shared := o.inflight.Do(sessionID, func() (interface{}, error) {
		return o.run(ctx, sessionID)
	})
	if shared {
		o.log.WithField("session_id", sessionID).Debug("joined in-flight checkout")
	}
	res, _ := v.(*CheckoutResult)
	if res == nil {
		return nil, err
	}
	out := *res
	return &out, err
}

type checkoutRun struct {
	sessionID string
	status    domain.CheckoutStatus
	orderID   string
	amount    int64
	method    domain.PaymentMethod
	hook      func(sessionID string, from, to domain.CheckoutStatus)
	log       logrus.FieldLogger
}

func (r *checkoutRun) advance(next domain.CheckoutStatus) error {
	if !domain.CanTransitionTo(r.status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.status, next)
	}
	r.log.WithFields(logrus.Fields{"from": r.status, "to": next}).Debug("checkout status changed")
	if r.hook != nil {
		r.hook(r.sessionID, r.status, next)
	}
	r.status = next
	return nil
}

func (r *checkoutRun) result() *CheckoutResult {
	return &CheckoutResult{Status: r.status, OrderID: r.orderID, Amount: r.amount}
}

func (o *Orchestrator) run(ctx context.Context, sessionID string) (*CheckoutResult, error) {
	run := &checkoutRun{
		sessionID: sessionID,
		status:    domain.CheckoutStatusIdle,
		hook:      o.onTransition,
		log:       o.log.WithField("session_id", sessionID),
	}
	if err := run.advance(domain.CheckoutStatusValidating); err != nil {
		return nil, err
	}

	state, err := o.carts.GetState(ctx, sessionID)
	if err != nil {
		_ = run.advance(domain.CheckoutStatusIdle)
		return run.result(), fmt.Errorf("load cart: %w", err)
	}
	order, verr := buildOrderRequest(state)
	if verr != nil {
		if err := run.advance(domain.CheckoutStatusIdle); err != nil {
			return nil, err
		}
		run.log.WithField("fields", verr.Fields).Info("checkout validation failed")
		o.metrics.CheckoutOutcome(string(domain.CheckoutStatusIdle), "validation")
		return run.result(), verr
	}
	run.amount = shipping.GrandTotal(state)
	run.method = state.Checkout.PaymentMethod

	// Once an order is sent it cannot be taken back, so the remaining steps
	// outlive a client disconnect.
	ctx = context.WithoutCancel(ctx)

	if err := run.advance(domain.CheckoutStatusSubmittingOrder); err != nil {
		return nil, err
	}
	orderID, err := o.submitOrder(ctx, order)
	if err != nil {
		return o.fail(ctx, run, newOrderSubmissionError(err))
	}
	run.orderID = orderID
	run.log = run.log.WithField("order_id", orderID)

	if err := run.advance(domain.CheckoutStatusInitiatingPayment); err != nil {
		return nil, err
	}
	paymentURL, err := o.initiatePayment(ctx, client.PaymentRequest{
		OrderID:       orderID,
		Amount:        run.amount,
		CustomerName:  strings.TrimSpace(state.Checkout.FirstName + " " + state.Checkout.LastName),
		CustomerPhone: state.Checkout.PhoneNumber,
	})
	if err != nil {
		run.log.Warn("order created but payment could not be initiated, order left without payment")
		return o.fail(ctx, run, newPaymentInitiationError(orderID, err))
	}

	if err := run.advance(domain.CheckoutStatusRedirectingToGateway); err != nil {
		return nil, err
	}
	if err := o.handoff(ctx, run); err != nil {
		run.log.Warn("order created but pending marker not written, order left without payment")
		return o.fail(ctx, run, &HandoffError{OrderID: orderID, Err: err})
	}

	if err := run.advance(domain.CheckoutStatusHandedOff); err != nil {
		return nil, err
	}
	run.log.WithField("amount", run.amount).Info("checkout handed off to payment gateway")
	o.metrics.CheckoutOutcome(string(domain.CheckoutStatusHandedOff), "")
	o.record(ctx, run, "")
	o.publish(ctx, run, publisher.EventCheckoutHandedOff, "")

	res := run.result()
	res.PaymentURL = paymentURL
	return res, nil
}

func (o *Orchestrator) submitOrder(ctx context.Context, req client.OrderRequest) (string, error) {
	defer o.metrics.ObserveStep("submit_order", time.Now())
	stepCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.orders.CreateOrder(stepCtx, req)
}

func (o *Orchestrator) initiatePayment(ctx context.Context, req client.PaymentRequest) (string, error) {
	defer o.metrics.ObserveStep("initiate_payment", time.Now())
	stepCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.payments.InitiatePayment(stepCtx, req)
}

// handoff writes the pending marker and then clears the cart. The marker is
// required, a failed clear is only logged since the order is already paid
// for from the gateway's point of view.
func (o *Orchestrator) handoff(ctx context.Context, run *checkoutRun) error {
	stepCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	marker := domain.PendingCheckout{OrderID: run.orderID, CreatedAt: o.now().UTC()}
	if err := o.markers.Put(stepCtx, run.sessionID, marker); err != nil {
		return fmt.Errorf("write pending checkout: %w", err)
	}
	if _, err := o.carts.Clear(stepCtx, run.sessionID); err != nil {
		run.log.WithError(err).Error("failed to clear cart after handoff")
		o.metrics.SideEffectError("cart_clear")
	}
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, run *checkoutRun, cause CheckoutError) (*CheckoutResult, error) {
	if err := run.advance(domain.CheckoutStatusFailed); err != nil {
		return nil, errors.Join(err, cause)
	}
	kind := failureKind(cause)
	run.log.WithError(cause).WithField("kind", kind).Error("checkout failed")
	o.metrics.CheckoutOutcome(string(domain.CheckoutStatusFailed), kind)
	o.record(ctx, run, cause.Error())
	o.publish(ctx, run, publisher.EventCheckoutFailed, kind)
	return run.result(), cause
}

func (o *Orchestrator) record(ctx context.Context, run *checkoutRun, reason string) {
	if o.journal == nil {
		return
	}
	err := o.journal.RecordAttempt(ctx, &journal.Attempt{
		SessionID:     run.sessionID,
		Status:        run.status,
		OrderID:       run.orderID,
		Amount:        run.amount,
		PaymentMethod: run.method,
		FailureReason: reason,
	})
	if err != nil {
		run.log.WithError(err).Warn("failed to record checkout attempt")
		o.metrics.SideEffectError("journal")
	}
}

func (o *Orchestrator) publish(ctx context.Context, run *checkoutRun, t publisher.EventType, reason string) {
	err := o.events.Publish(ctx, publisher.Event{
		Type:       t,
		SessionID:  run.sessionID,
		OrderID:    run.orderID,
		Amount:     run.amount,
		Status:     string(run.status),
		Reason:     reason,
		OccurredAt: o.now().UTC(),
	})
	if err != nil {
		run.log.WithError(err).Warn("failed to publish checkout event")
		o.metrics.SideEffectError("events")
	}
}

// buildOrderRequest validates the snapshot and serializes it for the Order
// API. It never touches the network.
func buildOrderRequest(state domain.CartState) (client.OrderRequest, *ValidationError) {
	if state.IsEmpty() {
		return client.OrderRequest{}, &ValidationError{Fields: []string{"items"}, Message: msgEmptyCart}
	}

	c := state.Checkout
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"first_name", c.FirstName},
		{"last_name", c.LastName},
		{"phone_number", c.PhoneNumber},
		{"address", c.Address},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return client.OrderRequest{}, &ValidationError{Fields: missing, Message: msgMissingContact}
	}
	if !c.PaymentMethod.Valid() {
		return client.OrderRequest{}, &ValidationError{
			Fields:  []string{"payment_method"},
			Message: "Please choose a supported payment method.",
		}
	}

	lines := make([]client.OrderLine, 0, len(state.Items))
	for _, item := range state.Items {
		id, err := strconv.ParseInt(item.ProductID, 10, 64)
		if err != nil {
			return client.OrderRequest{}, &ValidationError{
				Fields:  []string{"items"},
				Message: fmt.Sprintf("%s can no longer be ordered. Please remove it from your cart.", item.Name),
			}
		}
		lines = append(lines, client.OrderLine{
			ProductID:    id,
			Quantity:     item.Quantity,
			Color:        item.Color,
			Size:         item.Size,
			ShippingZone: item.ShippingZone,
		})
	}

	return client.OrderRequest{
		Items:         lines,
		PaymentMethod: string(c.PaymentMethod),
		CustomerInfo: client.CustomerInfo{
			FirstName:   c.FirstName,
			LastName:    c.LastName,
			PhoneNumber: c.PhoneNumber,
			Address:     c.Address,
		},
	}, nil
}
