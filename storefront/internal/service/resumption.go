package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/marketplace/storefront/internal/cache"
	"github.com/fjod/marketplace/storefront/internal/journal"
	"github.com/fjod/marketplace/storefront/internal/publisher"
	"github.com/sirupsen/logrus"
)

const (
	msgPaymentCancelled = "Your payment was cancelled. No amount was charged."
	retryURL            = "/checkout"
)

type SuccessResult struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id,omitempty"`
}

type CancelResult struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	RetryURL string `json:"retry_url"`
}

// ResumptionService handles the browser coming back from the payment
// gateway. The redirect itself is the only signal: payment status is not
// re-verified with any API.
type ResumptionService struct {
	markers      cache.MarkerStore
	confirmDelay time.Duration
	settings
}

func NewResumptionService(markers cache.MarkerStore, confirmDelay time.Duration, opts ...Option) *ResumptionService {
	return &ResumptionService{
		markers:      markers,
		confirmDelay: confirmDelay,
		settings:     newSettings(opts),
	}
}

// Success consumes the pending marker, if any, and reports success after the
// confirmation delay. A refresh finds no marker and shows no order id.
func (s *ResumptionService) Success(ctx context.Context, sessionID string) (SuccessResult, error) {
	log := s.log.WithField("session_id", sessionID)

	marker, found, err := s.markers.Take(ctx, sessionID)
	if err != nil {
		log.WithError(err).Warn("failed to read pending checkout")
		s.metrics.SideEffectError("marker_take")
	}
	s.metrics.Resumption("success", found)

	res := SuccessResult{Status: "success"}
	if found {
		res.OrderID = marker.OrderID
		log.WithField("order_id", marker.OrderID).Info("payment gateway returned to success route")
		s.settle(ctx, log, marker.OrderID, journal.OutcomePaymentReturned, publisher.EventPaymentReturned, sessionID)
	}

	if err := wait(ctx, s.confirmDelay); err != nil {
		return SuccessResult{}, err
	}
	return res, nil
}

// Cancel removes the pending marker unconditionally. Gateway abandonment is a
// normal outcome, so marker errors are logged and not returned.
func (s *ResumptionService) Cancel(ctx context.Context, sessionID string) (CancelResult, error) {
	log := s.log.WithField("session_id", sessionID)

	marker, found, err := s.markers.Take(ctx, sessionID)
	if err != nil {
		log.WithError(err).Warn("failed to read pending checkout, deleting it")
		if err := s.markers.Delete(ctx, sessionID); err != nil {
			log.WithError(err).Error("failed to delete pending checkout")
			s.metrics.SideEffectError("marker_delete")
		}
	}
	s.metrics.Resumption("cancel", found)

	if found {
		log.WithField("order_id", marker.OrderID).Info("payment cancelled at gateway")
		s.settle(ctx, log, marker.OrderID, journal.OutcomePaymentCancelled, publisher.EventPaymentCancelled, sessionID)
	}

	return CancelResult{
		Status:   "cancelled",
		Message:  msgPaymentCancelled,
		RetryURL: retryURL,
	}, nil
}

func (s *ResumptionService) settle(ctx context.Context, log logrus.FieldLogger, orderID string, outcome journal.Outcome, t publisher.EventType, sessionID string) {
	ctx = context.WithoutCancel(ctx)
	if s.journal != nil {
		err := s.journal.MarkReturned(ctx, orderID, outcome)
		switch {
		case errors.Is(err, journal.ErrAttemptNotFound):
			log.WithField("order_id", orderID).Debug("no journal entry for returned order")
		case err != nil:
			log.WithError(err).Warn("failed to mark checkout attempt returned")
			s.metrics.SideEffectError("journal")
		}
	}

	err := s.events.Publish(ctx, publisher.Event{
		Type:       t,
		SessionID:  sessionID,
		OrderID:    orderID,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		log.WithError(err).Warn("failed to publish checkout event")
		s.metrics.SideEffectError("events")
	}
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
