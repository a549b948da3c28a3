package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fjod/marketplace/storefront/internal/client"
	"github.com/fjod/marketplace/storefront/internal/journal"
	"github.com/fjod/marketplace/storefront/internal/service"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Warn("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// handleServiceError maps service and client errors to HTTP responses. A
// CheckoutError carries its own user-facing message.
func handleServiceError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	var (
		verr *service.ValidationError
		oerr *service.OrderSubmissionError
		perr *service.PaymentInitiationError
		herr *service.HandoffError
	)
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   verr.UserMessage(),
			Code:    "validation_failed",
			Details: strings.Join(verr.Fields, ","),
		})
	case errors.As(err, &oerr):
		status := http.StatusUnprocessableEntity
		if oerr.Reason == service.ReasonUnavailable {
			status = http.StatusBadGateway
		}
		respondJSON(w, status, ErrorResponse{
			Error: oerr.UserMessage(),
			Code:  "order_" + strings.ToLower(string(oerr.Reason)),
		})
	case errors.As(err, &perr):
		respondError(w, http.StatusBadGateway, "payment_initiation_failed", perr.UserMessage())
	case errors.As(err, &herr):
		respondError(w, http.StatusBadGateway, "handoff_failed", herr.UserMessage())
	case errors.Is(err, service.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, service.ErrShopNotFound):
		respondError(w, http.StatusNotFound, "shop_not_found", "shop not found")
	case errors.Is(err, journal.ErrAttemptNotFound):
		respondError(w, http.StatusNotFound, "attempt_not_found", "no checkout attempt for this order")
	case errors.Is(err, client.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "service temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		log.WithError(err).Error("request failed")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
