// Package journal records every checkout attempt in Postgres. It gives support
// a trail for orders that were created but never paid.
package journal

import (
	"errors"
	"time"

	"github.com/fjod/marketplace/storefront/internal/domain"
	"github.com/google/uuid"
)

var ErrAttemptNotFound = errors.New("checkout attempt not found")

type Outcome string

const (
	OutcomePaymentReturned  Outcome = "PAYMENT_RETURNED"
	OutcomePaymentCancelled Outcome = "PAYMENT_CANCELLED"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// Attempt is one orchestrator run that got past validation.
type Attempt struct {
	ID            uuid.UUID             `json:"id"`
	SessionID     string                `json:"session_id"`
	Status        domain.CheckoutStatus `json:"status"`
	OrderID       string                `json:"order_id,omitempty"`
	Amount        int64                 `json:"amount"`
	PaymentMethod domain.PaymentMethod  `json:"payment_method"`
	FailureReason string                `json:"failure_reason,omitempty"`
	Outcome       Outcome               `json:"outcome,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	ReturnedAt    *time.Time            `json:"returned_at,omitempty"`
}
