package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/marketplace/storefront/internal/journal"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type AttemptLookup interface {
	GetByOrderID(ctx context.Context, orderID string) (*journal.Attempt, error)
}

// AttemptHandler lets support look up the latest checkout attempt for an
// order, e.g. an order created upstream whose payment never started.
type AttemptHandler struct {
	attempts AttemptLookup
	timeout  time.Duration
	log      logrus.FieldLogger
}

func NewAttemptHandler(attempts AttemptLookup, timeout time.Duration, log logrus.FieldLogger) *AttemptHandler {
	return &AttemptHandler{attempts: attempts, timeout: timeout, log: log}
}

// GET /internal/checkout-attempts/{order_id}
func (h *AttemptHandler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	a, err := h.attempts.GetByOrderID(ctx, chi.URLParam(r, "order_id"))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}
