package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/marketplace/storefront/internal/cart"
	"github.com/fjod/marketplace/storefront/internal/client"
	"github.com/fjod/marketplace/storefront/internal/domain"
	"github.com/fjod/marketplace/storefront/internal/journal"
	"github.com/fjod/marketplace/storefront/internal/logging"
	"github.com/fjod/marketplace/storefront/internal/metrics"
	"github.com/fjod/marketplace/storefront/internal/service"
	"github.com/fjod/marketplace/storefront/internal/shipping"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSID = "5f0c6c8e-3c1e-4b8a-9d55-6f2f6f0f4a11"

type fakeCarts struct {
	states map[string]domain.CartState
	err    error
	keys   []domain.LineKey
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{states: make(map[string]domain.CartState)}
}

func (f *fakeCarts) get(sid string) domain.CartState {
	s, ok := f.states[sid]
	if !ok {
		return domain.NewCartState()
	}
	return s
}

func (f *fakeCarts) GetState(_ context.Context, sid string) (domain.CartState, error) {
	return f.get(sid), f.err
}

func (f *fakeCarts) UpdateQuantity(_ context.Context, sid string, key domain.LineKey, qty int) (domain.CartState, error) {
	f.keys = append(f.keys, key)
	f.states[sid] = cart.UpdateQuantity(f.get(sid), key, qty)
	return f.states[sid], f.err
}

func (f *fakeCarts) RemoveItem(_ context.Context, sid string, key domain.LineKey) (domain.CartState, error) {
	f.keys = append(f.keys, key)
	f.states[sid] = cart.RemoveItem(f.get(sid), key)
	return f.states[sid], f.err
}

func (f *fakeCarts) Clear(_ context.Context, sid string) (domain.CartState, error) {
	f.states[sid] = cart.Clear(f.get(sid))
	return f.states[sid], f.err
}

func (f *fakeCarts) SetCheckoutInfo(_ context.Context, sid string, patch domain.ContactPatch) (domain.CartState, error) {
	f.states[sid] = cart.SetCheckoutInfo(f.get(sid), patch)
	return f.states[sid], f.err
}

func (f *fakeCarts) Summary(_ context.Context, sid string) (shipping.Quote, error) {
	return shipping.Summarize(f.get(sid)), f.err
}

func (f *fakeCarts) AddToCart(_ context.Context, sid string, req service.AddRequest) (domain.CartState, error) {
	if f.err != nil {
		return domain.CartState{}, f.err
	}
	f.states[sid] = cart.AddItem(f.get(sid), domain.CartLineItem{
		ProductID:    req.ProductID,
		Name:         "Boubou",
		UnitPrice:    domain.PriceOf(15000),
		Quantity:     req.Quantity,
		SellerID:     "s1",
		ShippingZone: req.ShippingZone,
	})
	return f.states[sid], nil
}

type fakeCheckout struct {
	res *service.CheckoutResult
	err error
	sid string
}

func (f *fakeCheckout) Checkout(_ context.Context, sid string) (*service.CheckoutResult, error) {
	f.sid = sid
	return f.res, f.err
}

type fakeResumer struct {
	orderID string
	err     error
}

func (f *fakeResumer) Success(context.Context, string) (service.SuccessResult, error) {
	if f.err != nil {
		return service.SuccessResult{}, f.err
	}
	return service.SuccessResult{Status: "success", OrderID: f.orderID}, nil
}

func (f *fakeResumer) Cancel(context.Context, string) (service.CancelResult, error) {
	return service.CancelResult{Status: "cancelled", Message: "Your payment was cancelled. No amount was charged.", RetryURL: "/checkout"}, nil
}

type fakeCatalog struct {
	err error
}

func (f fakeCatalog) Product(_ context.Context, id string) (*client.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &client.Product{ID: id, Name: "Boubou", Price: domain.PriceOf(15000)}, nil
}

func (f fakeCatalog) ShopProducts(_ context.Context, sellerID string) ([]client.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []client.Product{{ID: "1", SellerID: sellerID}}, nil
}

type testServer struct {
	handler  http.Handler
	carts    *fakeCarts
	checkout *fakeCheckout
	resumer  *fakeResumer
}

func newTestServer(catalog Catalog) *testServer {
	log := logging.Discard()
	ts := &testServer{
		carts:    newFakeCarts(),
		checkout: &fakeCheckout{},
		resumer:  &fakeResumer{},
	}
	ts.handler = NewRouter(RouterConfig{
		Cart:           NewCartHandler(ts.carts, ts.carts, time.Second, log),
		Checkout:       NewCheckoutHandler(ts.checkout, ts.resumer, log),
		Products:       NewProductHandler(catalog, time.Second, log),
		Session:        SessionConfig{CookieName: "sid", MaxAge: time.Hour},
		Metrics:        metrics.New(prometheus.NewRegistry()),
		RequestTimeout: 5 * time.Second,
		Log:            log,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.AddCookie(&http.Cookie{Name: "sid", Value: testSID})
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

func TestCartLifecycle(t *testing.T) {
	ts := newTestServer(fakeCatalog{})

	rr := ts.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: "12", Quantity: 2, ShippingZone: "Dakar"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.do(t, http.MethodPut, "/api/v1/cart/items", LineRequestDTO{ProductID: "12", ShippingZone: "Dakar", Quantity: 0})
	require.Equal(t, http.StatusOK, rr.Code)
	state := decode[domain.CartState](t, rr)
	require.Len(t, state.Items, 1)
	assert.Equal(t, 1, state.Items[0].Quantity)

	rr = ts.do(t, http.MethodPatch, "/api/v1/cart/checkout-info", map[string]string{"first_name": "Awa"})
	require.Equal(t, http.StatusOK, rr.Code)
	state = decode[domain.CartState](t, rr)
	assert.Equal(t, "Awa", state.Checkout.FirstName)
	assert.Equal(t, domain.PaymentMethodWave, state.Checkout.PaymentMethod)

	rr = ts.do(t, http.MethodGet, "/api/v1/cart/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	quote := decode[shipping.Quote](t, rr)
	assert.Equal(t, int64(15000), quote.Subtotal)

	rr = ts.do(t, http.MethodDelete, "/api/v1/cart/items", LineRequestDTO{ProductID: "12"})
	require.Equal(t, http.StatusOK, rr.Code)
	state = decode[domain.CartState](t, rr)
	assert.Len(t, state.Items, 1, "key without zone does not match the Dakar line")

	rr = ts.do(t, http.MethodDelete, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	state = decode[domain.CartState](t, rr)
	assert.Empty(t, state.Items)
	assert.Equal(t, "Awa", state.Checkout.FirstName)
}

func TestAddItem_Validation(t *testing.T) {
	ts := newTestServer(fakeCatalog{})

	rr := ts.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_product_id", decode[ErrorResponse](t, rr).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString("{not json"))
	rr = httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddItem_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unknown product", service.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
		{"bad option", &service.ValidationError{Fields: []string{"color"}, Message: `"rouge" is not available for this product.`}, http.StatusUnprocessableEntity, "validation_failed"},
		{"catalog down", client.ErrUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(fakeCatalog{})
			ts.carts.err = tt.err

			rr := ts.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: "12", Quantity: 1})

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rr).Code)
		})
	}
}

func TestCheckout_Success(t *testing.T) {
	ts := newTestServer(fakeCatalog{})
	ts.checkout.res = &service.CheckoutResult{
		Status:     domain.CheckoutStatusHandedOff,
		OrderID:    "42",
		PaymentURL: "https://gateway/x",
		Amount:     8500,
	}

	rr := ts.do(t, http.MethodPost, "/api/v1/checkout", nil)

	require.Equal(t, http.StatusCreated, rr.Code)
	res := decode[service.CheckoutResult](t, rr)
	assert.Equal(t, "https://gateway/x", res.PaymentURL)
	assert.Equal(t, testSID, ts.checkout.sid)
}

func TestCheckout_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "validation",
			err:     &service.ValidationError{Fields: []string{"address"}, Message: "Please fill in your address."},
			status:  http.StatusUnprocessableEntity,
			code:    "validation_failed",
			message: "Please fill in your address.",
		},
		{
			name:    "stock",
			err:     &service.OrderSubmissionError{Reason: service.ReasonStockUnavailable, ServerMessage: "Basket is out of stock"},
			status:  http.StatusUnprocessableEntity,
			code:    "order_stock_unavailable",
			message: "Basket is out of stock",
		},
		{
			name:    "order api down",
			err:     &service.OrderSubmissionError{Reason: service.ReasonUnavailable, Err: client.ErrUnavailable},
			status:  http.StatusBadGateway,
			code:    "order_unavailable",
			message: "Order creation failed. Please try again.",
		},
		{
			name:    "payment",
			err:     &service.PaymentInitiationError{OrderID: "42", Err: errors.New("timeout")},
			status:  http.StatusBadGateway,
			code:    "payment_initiation_failed",
			message: "Payment initiation failed. Please try again.",
		},
		{
			name:   "handoff",
			err:    &service.HandoffError{OrderID: "42", Err: errors.New("redis down")},
			status: http.StatusBadGateway,
			code:   "handoff_failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(fakeCatalog{})
			ts.checkout.err = tt.err

			rr := ts.do(t, http.MethodPost, "/api/v1/checkout", nil)

			assert.Equal(t, tt.status, rr.Code)
			body := decode[ErrorResponse](t, rr)
			assert.Equal(t, tt.code, body.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Error)
			}
		})
	}
}

func TestResumptionRoutes(t *testing.T) {
	ts := newTestServer(fakeCatalog{})
	ts.resumer.orderID = "42"

	rr := ts.do(t, http.MethodGet, "/checkout/success", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, service.SuccessResult{Status: "success", OrderID: "42"}, decode[service.SuccessResult](t, rr))

	rr = ts.do(t, http.MethodGet, "/checkout/cancel", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode[service.CancelResult](t, rr)
	assert.Equal(t, "cancelled", res.Status)
	assert.Equal(t, "/checkout", res.RetryURL)
}

func TestProductRoutes(t *testing.T) {
	ts := newTestServer(fakeCatalog{})

	rr := ts.do(t, http.MethodGet, "/api/v1/products/12", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "12", decode[client.Product](t, rr).ID)

	rr = ts.do(t, http.MethodGet, "/api/v1/shops/s9/products", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	products := decode[[]client.Product](t, rr)
	require.Len(t, products, 1)
	assert.Equal(t, "s9", products[0].SellerID)

	ts = newTestServer(fakeCatalog{err: service.ErrShopNotFound})
	rr = ts.do(t, http.MethodGet, "/api/v1/shops/s9/products", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetProduct_ReadsURLParam(t *testing.T) {
	h := NewProductHandler(fakeCatalog{}, time.Second, logging.Discard())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/77", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("product_id", "77")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()

	h.GetProduct(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "77", decode[client.Product](t, rr).ID)
}

func TestHealth(t *testing.T) {
	log := logging.Discard()
	carts := newFakeCarts()
	handler := NewRouter(RouterConfig{
		Cart:     NewCartHandler(carts, carts, time.Second, log),
		Checkout: NewCheckoutHandler(&fakeCheckout{}, &fakeResumer{}, log),
		Products: NewProductHandler(fakeCatalog{}, time.Second, log),
		Session:  SessionConfig{CookieName: "sid"},
		Health: map[string]HealthCheck{
			"redis": func(context.Context) error { return nil },
			"mongo": func(context.Context) error { return errors.New("server selection timeout") },
		},
		RequestTimeout: time.Second,
		Log:            log,
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	body := decode[map[string]string](t, rr)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "ok", body["redis"])
}

type fakeAttempts map[string]journal.Attempt

func (f fakeAttempts) GetByOrderID(_ context.Context, orderID string) (*journal.Attempt, error) {
	a, ok := f[orderID]
	if !ok {
		return nil, journal.ErrAttemptNotFound
	}
	return &a, nil
}

func TestAttemptLookup(t *testing.T) {
	log := logging.Discard()
	carts := newFakeCarts()
	handler := NewRouter(RouterConfig{
		Cart:     NewCartHandler(carts, carts, time.Second, log),
		Checkout: NewCheckoutHandler(&fakeCheckout{}, &fakeResumer{}, log),
		Products: NewProductHandler(fakeCatalog{}, time.Second, log),
		Attempts: NewAttemptHandler(fakeAttempts{
			"42": {
				SessionID:     testSID,
				Status:        domain.CheckoutStatusFailed,
				OrderID:       "42",
				Amount:        8500,
				PaymentMethod: domain.PaymentMethodWave,
				FailureReason: "payment initiation failed for order 42: timeout",
			},
		}, time.Second, log),
		Session:        SessionConfig{CookieName: "sid"},
		RequestTimeout: time.Second,
		Log:            log,
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/internal/checkout-attempts/42", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[journal.Attempt](t, rr)
	assert.Equal(t, domain.CheckoutStatusFailed, got.Status)
	assert.Equal(t, int64(8500), got.Amount)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/internal/checkout-attempts/7", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "attempt_not_found", decode[ErrorResponse](t, rr).Code)
}

func TestAttemptLookup_DisabledWithoutJournal(t *testing.T) {
	ts := newTestServer(fakeCatalog{})

	rr := ts.do(t, http.MethodGet, "/internal/checkout-attempts/42", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
