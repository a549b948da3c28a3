package http

import (
	"context"
	"net/http"

	"github.com/fjod/marketplace/storefront/internal/service"
	"github.com/sirupsen/logrus"
)

type Checkouter interface {
	Checkout(ctx context.Context, sessionID string) (*service.CheckoutResult, error)
}

type Resumer interface {
	Success(ctx context.Context, sessionID string) (service.SuccessResult, error)
	Cancel(ctx context.Context, sessionID string) (service.CancelResult, error)
}

type CheckoutHandler struct {
	checkout Checkouter
	resume   Resumer
	log      logrus.FieldLogger
}

func NewCheckoutHandler(checkout Checkouter, resume Resumer, log logrus.FieldLogger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, resume: resume, log: log}
}

// POST /api/v1/checkout
//
// The orchestrator bounds its own network steps, so no handler timeout is
// applied here.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	res, err := h.checkout.Checkout(r.Context(), SessionID(r.Context()))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

// GET /checkout/success
func (h *CheckoutHandler) Success(w http.ResponseWriter, r *http.Request) {
	res, err := h.resume.Success(r.Context(), SessionID(r.Context()))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// GET /checkout/cancel
func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	res, err := h.resume.Cancel(r.Context(), SessionID(r.Context()))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
